package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linkedin-connector/internal/config"
	"github.com/yourusername/linkedin-connector/internal/connection"
	"github.com/yourusername/linkedin-connector/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "config.yaml", fmt.Sprintf(`
database:
  path: %q
logging:
  level: error
`, dbPath))
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHistoryRequiresJournal(t *testing.T) {
	cfgPath := writeConfig(t, "")

	_, err := execute("--config", cfgPath, "history")

	assert.ErrorIs(t, err, errJournalDisabled)
}

func TestHistoryListsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	store, err := storage.Open(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	started := time.Date(2026, 10, 18, 10, 0, 0, 0, time.Local)
	require.NoError(t, store.StartRun(ctx, storage.Run{ID: "run-1", StartedAt: started, Requested: 2}))
	require.NoError(t, store.RecordAttempt(ctx, storage.Attempt{
		RunID:       "run-1",
		ProfileURL:  "https://www.linkedin.com/in/jane/",
		Outcome:     string(connection.OutcomeSent),
		Status:      connection.StatusSent,
		AttemptedAt: started.Add(time.Second),
	}))
	require.NoError(t, store.FinishRun(ctx, "run-1", 1, "context canceled", started.Add(time.Minute)))
	require.NoError(t, store.Close())

	out, err := execute("--config", writeConfig(t, dbPath), "history", "--details")

	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "context canceled")
	assert.Contains(t, out, "https://www.linkedin.com/in/jane/")
	assert.Contains(t, out, "1 runs, 1 attempts (1 sent")
}

func TestRunRequiresCredentials(t *testing.T) {
	t.Setenv("LINKEDIN_USERNAME", "")
	t.Setenv("LINKEDIN_PASSWORD", "")
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "in.csv", "profile_url,invite_msg\nhttps://www.linkedin.com/in/a/,Hi\n")

	_, err := execute("--config", writeConfig(t, ""), "run", "--csv", csvPath, "--yes")

	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestRunRejectsInvalidCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "in.csv", "url,note\nhttps://www.linkedin.com/in/a/,Hi\n")

	_, err := execute("--config", writeConfig(t, ""), "run", "--csv", csvPath, "--yes")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CSV")
}

func TestRunRequiresCSVFlag(t *testing.T) {
	_, err := execute("run")
	assert.ErrorContains(t, err, "csv")
}

func TestWriteReportAndSummary(t *testing.T) {
	ts := time.Date(2026, 10, 18, 10, 0, 0, 0, time.Local)
	results := []connection.Result{
		{ProfileURL: "https://www.linkedin.com/in/a/", Outcome: connection.OutcomeSent, Status: connection.StatusSent, Timestamp: ts},
		{ProfileURL: "https://www.linkedin.com/in/b/", Outcome: connection.OutcomePending, Status: connection.StatusPending, Timestamp: ts},
	}
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, writeReport(path, results))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Profile,Status\n"))

	var buf bytes.Buffer
	printSummary(&buf, results, path)
	assert.Contains(t, buf.String(), "1 sent, 1 pending, 0 failed")
	assert.Contains(t, buf.String(), path)
}

func TestWarningBannerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := displayWarningBanner(ctx, &buf)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, buf.String(), "WARNING")
}
