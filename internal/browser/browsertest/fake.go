// Package browsertest provides a scriptable in-memory browser.Driver.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/linkedin-connector/internal/browser"
)

// Page scripts how the fake behaves while a URL is loaded. Selectors are
// keyed by browser.Selector.Name.
type Page struct {
	// Missing selectors time out in WaitFor
	Missing map[string]bool
	// Present selectors are reported by Has
	Present map[string]bool
	// Errors make WaitFor fail with a non-timeout error
	Errors map[string]error
	// ClickErr makes clicking the named element fail
	ClickErr map[string]error
}

// Driver records every interaction in Actions
type Driver struct {
	mu sync.Mutex

	Pages       map[string]Page
	NavigateErr map[string]error

	Actions  []string
	Waits    map[string]time.Duration
	current  string
	closed   int
	closeErr error
}

// New returns a driver on which every selector is found
func New() *Driver {
	return &Driver{
		Pages:       make(map[string]Page),
		NavigateErr: make(map[string]error),
		Waits:       make(map[string]time.Duration),
	}
}

// Script sets the behaviour for url and returns d for chaining
func (d *Driver) Script(url string, p Page) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Pages[url] = p
	return d
}

// FailClose makes Close return err
func (d *Driver) FailClose(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeErr = err
}

func (d *Driver) record(format string, args ...interface{}) {
	d.Actions = append(d.Actions, fmt.Sprintf(format, args...))
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	d.record("navigate %s", url)
	if err := d.NavigateErr[url]; err != nil {
		return err
	}
	d.current = url
	return nil
}

func (d *Driver) WaitFor(ctx context.Context, sel browser.Selector, timeout time.Duration) (browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.record("wait %s", sel.Name)
	d.Waits[sel.Name] = timeout

	page := d.Pages[d.current]
	if err := page.Errors[sel.Name]; err != nil {
		return nil, &browser.LookupError{Selector: sel, Timeout: timeout, Err: err}
	}
	if page.Missing[sel.Name] {
		return nil, &browser.LookupError{Selector: sel, Timeout: timeout, Err: browser.ErrTimeout}
	}
	return &element{d: d, name: sel.Name, clickErr: page.ClickErr[sel.Name]}, nil
}

func (d *Driver) Has(ctx context.Context, sel browser.Selector) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.record("has %s", sel.Name)
	return d.Pages[d.current].Present[sel.Name], nil
}

// Close counts calls so tests can assert the session was released once
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return d.closeErr
}

// Closed returns how many times Close was called
func (d *Driver) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Recorded returns a copy of the action log
func (d *Driver) Recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Actions...)
}

// Navigations returns the visited URLs in order
func (d *Driver) Navigations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var urls []string
	for _, a := range d.Actions {
		if url, ok := strings.CutPrefix(a, "navigate "); ok {
			urls = append(urls, url)
		}
	}
	return urls
}

type element struct {
	d        *Driver
	name     string
	clickErr error
}

func (e *element) Click(ctx context.Context) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.clickErr != nil {
		return e.clickErr
	}
	e.d.record("click %s", e.name)
	return nil
}

func (e *element) Input(ctx context.Context, text string) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.record("input %s %s", e.name, text)
	return nil
}

func (e *element) Submit(ctx context.Context) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.record("submit %s", e.name)
	return nil
}
