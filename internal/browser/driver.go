// Package browser owns the single Chromium session of a run and exposes it
// through a small selector-based interface, so the LinkedIn page structure
// is only known to internal/selectors.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is wrapped by every bounded wait that ran out of time
var ErrTimeout = errors.New("timed out waiting for element")

// Selector locates one element. Exactly one strategy applies: XPath when
// set, otherwise CSS, optionally narrowed by a regular expression on the
// element text.
type Selector struct {
	Name  string
	CSS   string
	XPath string
	Text  string
}

func (s Selector) String() string {
	switch {
	case s.XPath != "":
		return fmt.Sprintf("%s (xpath %s)", s.Name, s.XPath)
	case s.Text != "":
		return fmt.Sprintf("%s (%s with text /%s/)", s.Name, s.CSS, s.Text)
	default:
		return fmt.Sprintf("%s (%s)", s.Name, s.CSS)
	}
}

// LookupError reports an element that could not be found
type LookupError struct {
	Selector Selector
	Timeout  time.Duration
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("waited %s for %s: %v", e.Timeout, e.Selector.Name, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Driver is what the login and invite flows need from a browser tab
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor polls until sel matches or timeout elapses
	WaitFor(ctx context.Context, sel Selector, timeout time.Duration) (Element, error)
	// Has checks for sel once, without waiting
	Has(ctx context.Context, sel Selector) (bool, error)
}

// Element is a located control
type Element interface {
	Click(ctx context.Context) error
	Input(ctx context.Context, text string) error
	// Submit presses Enter inside the element
	Submit(ctx context.Context) error
}
