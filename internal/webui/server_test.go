package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connector/internal/auth"
	"github.com/yourusername/linkedin-connector/internal/batch"
	"github.com/yourusername/linkedin-connector/internal/config"
	"github.com/yourusername/linkedin-connector/internal/connection"
	"github.com/yourusername/linkedin-connector/internal/logger"
	"github.com/yourusername/linkedin-connector/internal/metrics"
	"github.com/yourusername/linkedin-connector/internal/report"
)

func init() {
	logger.Set(zap.NewNop())
}

const sampleCSV = "profile_url,invite_msg\n" +
	"https://www.linkedin.com/in/a/,Hi A\n" +
	"https://www.linkedin.com/in/b/,Hi B\n" +
	"https://www.linkedin.com/in/c/,Hi C\n"

// fakeRunner marks every task as sent. When release is set it blocks until
// the channel is closed.
type fakeRunner struct {
	release chan struct{}
	err     error
	limits  []int
}

func (f *fakeRunner) Run(ctx context.Context, tasks []connection.Task, limit int, obs batch.Observer) ([]connection.Result, error) {
	f.limits = append(f.limits, limit)
	obs.Status("Logged into LinkedIn successfully.")
	if f.err != nil {
		return nil, f.err
	}
	if f.release != nil {
		<-f.release
	}

	ts := time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)
	var results []connection.Result
	for i, t := range tasks[:limit] {
		r := connection.Result{ProfileURL: t.ProfileURL, Outcome: connection.OutcomeSent, Status: connection.StatusSent, Timestamp: ts}
		results = append(results, r)
		obs.Progress(i+1, limit, r)
	}
	obs.Status("All connection requests processed!")
	return results, nil
}

func newTestServer(runner Runner) *Server {
	cfg := config.Default()
	cfg.Run.DefaultLimit = 2
	return NewServer(cfg.Server, cfg.Run, runner, prometheus.NewRegistry())
}

func upload(t *testing.T, h http.Handler, content string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "profiles.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadJob(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := upload(t, h, sampleCSV)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/jobs/"))
	return strings.TrimPrefix(loc, "/jobs/")
}

func start(h http.Handler, id, limit string) *httptest.ResponseRecorder {
	form := url.Values{}
	if limit != "" {
		form.Set("limit", limit)
	}
	req := httptest.NewRequest(http.MethodPost, "/jobs/"+id+"/start", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestUploadStartDownload(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(runner)
	h := s.Handler()

	id := uploadJob(t, h)

	page := get(h, "/jobs/"+id)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "https://www.linkedin.com/in/c/")
	assert.Contains(t, page.Body.String(), `value="2"`)

	rec := start(h, id, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	s.Wait()
	assert.Equal(t, []int{2}, runner.limits)

	status := get(h, "/jobs/"+id+"/status")
	require.Equal(t, http.StatusOK, status.Code)
	var v JobView
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &v))
	assert.Equal(t, JobDone, v.State)
	assert.Equal(t, 2, v.Done)
	assert.Equal(t, 100, v.Percent)
	assert.Equal(t, "All connection requests processed!", v.Status)

	dl := get(h, "/jobs/"+id+"/report.csv")
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, report.ContentType, dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), report.Filename)

	rows, err := report.ReadResults(dl.Body)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "https://www.linkedin.com/in/a/", rows[0].Profile)
	assert.Equal(t, "Sent (2026-10-18 09:30:00)", rows[0].Status)
}

func TestUploadRejectsBadCSV(t *testing.T) {
	h := newTestServer(&fakeRunner{}).Handler()

	rec := upload(t, h, "url,message\nhttps://x,hi\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "profile_url")

	rec = upload(t, h, "profile_url,invite_msg\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartRejectsInvalidLimit(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner).Handler()
	id := uploadJob(t, h)

	for _, limit := range []string{"0", "4", "many"} {
		rec := start(h, id, limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
	assert.Empty(t, runner.limits)
}

func TestSecondRunConflicts(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	s := newTestServer(runner)
	h := s.Handler()

	first := uploadJob(t, h)
	second := uploadJob(t, h)

	require.Equal(t, http.StatusSeeOther, start(h, first, "3").Code)
	assert.Equal(t, http.StatusConflict, start(h, second, "1").Code)

	health := get(h, "/healthz")
	assert.Contains(t, health.Body.String(), first)

	close(runner.release)
	s.Wait()

	assert.Equal(t, http.StatusSeeOther, start(h, second, "1").Code)
	s.Wait()
}

func TestFailedRunIsReported(t *testing.T) {
	s := newTestServer(&fakeRunner{err: auth.ErrLoginFailed})
	h := s.Handler()
	id := uploadJob(t, h)

	require.Equal(t, http.StatusSeeOther, start(h, id, "1").Code)
	s.Wait()

	var v JobView
	require.NoError(t, json.Unmarshal(get(h, "/jobs/"+id+"/status").Body.Bytes(), &v))
	assert.Equal(t, JobFailed, v.State)
	assert.Contains(t, v.Error, auth.ErrLoginFailed.Error())

	assert.Equal(t, http.StatusNotFound, get(h, "/jobs/"+id+"/report.csv").Code)
}

func TestOldJobsAreEvicted(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	s := newTestServer(runner)
	s.maxJobs = 2
	h := s.Handler()

	running := uploadJob(t, h)
	require.Equal(t, http.StatusSeeOther, start(h, running, "1").Code)

	idle := uploadJob(t, h)
	newest := uploadJob(t, h)

	assert.Equal(t, http.StatusOK, get(h, "/jobs/"+running+"/status").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/jobs/"+idle+"/status").Code)
	assert.Equal(t, http.StatusOK, get(h, "/jobs/"+newest+"/status").Code)

	close(runner.release)
	s.Wait()

	latest := uploadJob(t, h)
	assert.Equal(t, http.StatusNotFound, get(h, "/jobs/"+running+"/status").Code)
	assert.Equal(t, http.StatusOK, get(h, "/jobs/"+newest+"/status").Code)
	assert.Equal(t, http.StatusOK, get(h, "/jobs/"+latest+"/status").Code)
}

func TestUnknownJob(t *testing.T) {
	h := newTestServer(&fakeRunner{}).Handler()
	assert.Equal(t, http.StatusNotFound, get(h, "/jobs/nope").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/jobs/nope/status").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.MustNew(reg)
	m.ObserveLogin(nil)

	cfg := config.Default()
	h := NewServer(cfg.Server, cfg.Run, &fakeRunner{}, reg).Handler()

	rec := get(h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linkedin_connector_logins_total")
}

func TestShutdownCancelsActiveRun(t *testing.T) {
	s := newTestServer(blockingRunner{})
	h := s.Handler()
	id := uploadJob(t, h)
	require.Equal(t, http.StatusSeeOther, start(h, id, "1").Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	var v JobView
	require.NoError(t, json.Unmarshal(get(h, "/jobs/"+id+"/status").Body.Bytes(), &v))
	assert.Equal(t, JobFailed, v.State)
	assert.Contains(t, v.Error, context.Canceled.Error())
}

// blockingRunner waits for cancellation like a run sleeping between requests
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, tasks []connection.Task, limit int, obs batch.Observer) ([]connection.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
