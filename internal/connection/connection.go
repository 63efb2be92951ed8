package connection

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/yourusername/linkedin-connector/internal/browser"
	"github.com/yourusername/linkedin-connector/internal/config"
	"github.com/yourusername/linkedin-connector/internal/logger"
	"github.com/yourusername/linkedin-connector/internal/selectors"
)

const (
	MaxNoteLength = 300 // LinkedIn's character limit for connection notes

	// TimestampLayout is the fixed date-time format of every result
	TimestampLayout = "2006-01-02 15:04:05"

	StatusSent    = "Sent"
	StatusPending = "Skipped: invitation already pending"
	failedPrefix  = "Failed: "
)

// Failure kinds. Every failed Result wraps exactly one of them.
var (
	ErrNavigation         = errors.New("profile navigation failed")
	ErrPageStructure      = errors.New("profile page did not render the expected structure")
	ErrConnectUnavailable = errors.New("connect control not available")
	ErrInviteDialog       = errors.New("invitation dialog step failed")
)

// Outcome classifies a finished attempt
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomePending Outcome = "pending"
)

// Task is one input row
type Task struct {
	ProfileURL string
	InviteMsg  string
}

// Result is the outcome of one Task
type Result struct {
	ProfileURL string
	Outcome    Outcome
	Status     string
	Err        error
	Timestamp  time.Time
}

// TimestampString formats Timestamp with TimestampLayout
func (r Result) TimestampString() string {
	return r.Timestamp.Format(TimestampLayout)
}

// Workflow sends connection requests through an authenticated session
type Workflow struct {
	driver browser.Driver
	timing config.TimingConfig
	now    func() time.Time
}

// NewWorkflow creates a Workflow on top of a logged-in session
func NewWorkflow(driver browser.Driver, timing config.TimingConfig) *Workflow {
	return &Workflow{driver: driver, timing: timing, now: time.Now}
}

// Send runs the invite sequence for one profile. It never returns an error:
// failures become a failed Result so the batch can move on.
func (w *Workflow) Send(ctx context.Context, task Task) Result {
	logger.Info("Sending connection request", "profile_url", task.ProfileURL)

	result := Result{ProfileURL: task.ProfileURL}

	outcome, err := w.send(ctx, task)
	result.Timestamp = w.now()
	result.Outcome = outcome

	switch outcome {
	case OutcomeSent:
		result.Status = StatusSent
		logger.Info("Connection request sent successfully", "profile_url", task.ProfileURL)
	case OutcomePending:
		result.Status = StatusPending
		logger.Info("Invitation already pending, skipping", "profile_url", task.ProfileURL)
	default:
		result.Outcome = OutcomeFailed
		result.Err = err
		result.Status = failedPrefix + err.Error()
		logger.Warn("Failed to send connection request", "profile_url", task.ProfileURL, "error", err)
	}

	return result
}

func (w *Workflow) send(ctx context.Context, task Task) (Outcome, error) {
	if err := w.driver.Navigate(ctx, task.ProfileURL); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrNavigation, err)
	}

	if _, err := w.driver.WaitFor(ctx, selectors.ProfileReady, w.timing.GetProfileReadyTimeout()); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrPageStructure, err)
	}

	connectBtn, err := w.driver.WaitFor(ctx, selectors.ConnectButton, w.timing.GetElementTimeout())
	if err != nil {
		if w.invitationPending(ctx) {
			return OutcomePending, nil
		}
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrConnectUnavailable, err)
	}
	if err := connectBtn.Click(ctx); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: failed to click connect button: %w", ErrConnectUnavailable, err)
	}

	if err := w.clickStep(ctx, selectors.AddNoteButton); err != nil {
		return OutcomeFailed, err
	}

	noteField, err := w.driver.WaitFor(ctx, selectors.NoteInput, w.timing.GetElementTimeout())
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrInviteDialog, err)
	}
	if err := noteField.Input(ctx, TruncateNote(task.InviteMsg)); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: failed to type note: %w", ErrInviteDialog, err)
	}

	if err := w.clickStep(ctx, selectors.SendButton); err != nil {
		return OutcomeFailed, err
	}

	return OutcomeSent, nil
}

func (w *Workflow) clickStep(ctx context.Context, sel browser.Selector) error {
	el, err := w.driver.WaitFor(ctx, sel, w.timing.GetElementTimeout())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInviteDialog, err)
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("%w: failed to click %s: %w", ErrInviteDialog, sel.Name, err)
	}
	return nil
}

// invitationPending reports whether a missing Connect control is explained by
// an invitation already sent. Any other cause (existing connection, Connect
// hidden in the overflow menu, restricted profile) stays a failure.
func (w *Workflow) invitationPending(ctx context.Context) bool {
	has, err := w.driver.Has(ctx, selectors.PendingButton)
	return err == nil && has
}

// TruncateNote keeps a note within MaxNoteLength runes
func TruncateNote(note string) string {
	if utf8.RuneCountInString(note) <= MaxNoteLength {
		return note
	}

	logger.Warn("Note truncated to fit character limit", "max_length", MaxNoteLength)
	runes := []rune(note)
	return string(runes[:MaxNoteLength-3]) + "..."
}
