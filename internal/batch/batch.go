package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/linkedin-connector/internal/auth"
	"github.com/yourusername/linkedin-connector/internal/browser"
	"github.com/yourusername/linkedin-connector/internal/config"
	"github.com/yourusername/linkedin-connector/internal/connection"
	"github.com/yourusername/linkedin-connector/internal/logger"
	"github.com/yourusername/linkedin-connector/internal/metrics"
	"github.com/yourusername/linkedin-connector/internal/storage"
)

var (
	ErrNoTasks      = errors.New("no connection tasks to process")
	ErrInvalidLimit = errors.New("limit must be between 1 and the number of tasks")
)

// Session is the exclusive browser handle of one run
type Session interface {
	browser.Driver
	Close() error
}

// SessionFactory opens the session for a run
type SessionFactory func(ctx context.Context) (Session, error)

// Recorder journals runs. storage.Store implements it.
type Recorder interface {
	StartRun(ctx context.Context, run storage.Run) error
	RecordAttempt(ctx context.Context, a storage.Attempt) error
	FinishRun(ctx context.Context, id string, processed int, runErr string, finishedAt time.Time) error
}

// Runner logs in once and sends connection requests in input order
type Runner struct {
	open     SessionFactory
	creds    auth.Credentials
	timing   config.TimingConfig
	recorder Recorder
	metrics  *metrics.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner. Recorder and metrics are optional.
func NewRunner(open SessionFactory, creds auth.Credentials, timing config.TimingConfig) *Runner {
	return &Runner{
		open:   open,
		creds:  creds,
		timing: timing,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// WithRecorder journals every run to rec
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	r.recorder = rec
	return r
}

// WithMetrics reports attempts to m
func (r *Runner) WithMetrics(m *metrics.Metrics) *Runner {
	r.metrics = m
	return r
}

// Run processes the first limit tasks. A login failure aborts with no
// results; per-profile failures are part of the results. The session is
// closed on every return path.
func (r *Runner) Run(ctx context.Context, tasks []connection.Task, limit int, obs Observer) (results []connection.Result, err error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	if limit < 1 || limit > len(tasks) {
		return nil, fmt.Errorf("%w: got %d for %d tasks", ErrInvalidLimit, limit, len(tasks))
	}
	if obs == nil {
		obs = NopObserver{}
	}

	runID := uuid.NewString()
	log := logger.With("run_id", runID)
	r.startRun(ctx, runID, limit)
	defer func() {
		r.finishRun(runID, len(results), err)
	}()

	r.metrics.RunStarted()
	defer r.metrics.RunFinished()

	obs.Status("Initializing automation... Please wait.")
	session, err := r.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warnw("Failed to close browser session", "error", cerr)
		}
	}()

	loginErr := auth.New(session, r.timing).Login(ctx, r.creds)
	r.metrics.ObserveLogin(loginErr)
	if loginErr != nil {
		return nil, loginErr
	}
	obs.Status("Logged into LinkedIn successfully.")

	workflow := connection.NewWorkflow(session, r.timing)
	results = make([]connection.Result, 0, limit)

	for i, task := range tasks[:limit] {
		obs.Status(fmt.Sprintf("Sending request to: %s", task.ProfileURL))

		started := r.now()
		result := workflow.Send(ctx, task)
		r.metrics.ObserveRequest(string(result.Outcome), r.now().Sub(started))

		results = append(results, result)
		r.recordAttempt(runID, result)
		obs.Progress(i+1, limit, result)

		log.Infow("Processed profile", "index", i+1, "limit", limit, "outcome", result.Outcome)

		if i == limit-1 {
			break
		}
		if err := r.sleep(ctx, r.timing.GetRequestDelay()); err != nil {
			log.Warnw("Run interrupted", "processed", len(results), "error", err)
			return results, err
		}
	}

	// a cancellation during the last profile has no delay left to surface it
	if err := ctx.Err(); err != nil {
		log.Warnw("Run interrupted", "processed", len(results), "error", err)
		return results, err
	}

	obs.Status("All connection requests processed!")
	return results, nil
}

func (r *Runner) startRun(ctx context.Context, id string, limit int) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.StartRun(ctx, storage.Run{ID: id, StartedAt: r.now(), Requested: limit}); err != nil {
		logger.Error("Failed to journal run start", "run_id", id, "error", err)
	}
}

// recordAttempt journals on a fresh context so the attempt that was running
// when the run got cancelled is still written
func (r *Runner) recordAttempt(runID string, result connection.Result) {
	if r.recorder == nil {
		return
	}
	err := r.recorder.RecordAttempt(context.Background(), storage.Attempt{
		RunID:       runID,
		ProfileURL:  result.ProfileURL,
		Outcome:     string(result.Outcome),
		Status:      result.Status,
		AttemptedAt: result.Timestamp,
	})
	if err != nil {
		logger.Error("Failed to journal attempt", "run_id", runID, "error", err)
	}
}

func (r *Runner) finishRun(id string, processed int, runErr error) {
	if r.recorder == nil {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	// the run context may already be cancelled
	if err := r.recorder.FinishRun(context.Background(), id, processed, msg, r.now()); err != nil {
		logger.Error("Failed to journal run finish", "run_id", id, "error", err)
	}
}

// DefaultLimit is the preselected limit: the configured default capped by
// the row count. A non-positive default selects every row.
func DefaultLimit(rows, configured int) int {
	if configured < 1 {
		return rows
	}
	return min(configured, rows)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
