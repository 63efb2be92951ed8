package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/yourusername/linkedin-connector/internal/config"
	"github.com/yourusername/linkedin-connector/internal/logger"
	"github.com/yourusername/linkedin-connector/internal/stealth"
)

// Session is one browser process with one page, reused for the whole run
type Session struct {
	launcher    *launcher.Launcher
	browser     *rod.Browser
	page        *rod.Page
	navTimeout  time.Duration
	typingDelay time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Launch starts Chromium with the stealth configuration and opens the working page
func Launch(ctx context.Context, cfg config.BrowserConfig, timing config.TimingConfig) (*Session, error) {
	l := launcher.New().Context(ctx)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	} else if path, exists := launcher.LookPath(); exists {
		logger.Info("Using system Chrome browser", "path", path)
		l = l.Bin(path)
	} else {
		logger.Info("System Chrome not found, using downloaded browser")
	}

	userAgent := stealth.ResolveUserAgent(cfg.UserAgent)
	l = stealth.ConfigureLauncher(l, userAgent, cfg.Headless, cfg.NoSandbox)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s := &Session{
		launcher:    l,
		navTimeout:  timing.GetNavigationTimeout(),
		typingDelay: cfg.GetTypingDelay(),
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s.page, err = stealth.NewPage(s.browser, cfg.ViewportWidth, cfg.ViewportHeight)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Info("Browser launched successfully", "headless", cfg.Headless, "user_agent", userAgent)
	return s, nil
}

// Navigate loads url and waits for the load event within the navigation timeout
func (s *Session) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(s.navTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

// WaitFor polls the page until sel matches
func (s *Session) WaitFor(ctx context.Context, sel Selector, timeout time.Duration) (Element, error) {
	page := s.page.Context(ctx).Timeout(timeout)

	var (
		el  *rod.Element
		err error
	)
	switch {
	case sel.XPath != "":
		el, err = page.ElementX(sel.XPath)
	case sel.Text != "":
		el, err = page.ElementR(sel.CSS, sel.Text)
	default:
		el, err = page.Element(sel.CSS)
	}
	if err != nil {
		page.CancelTimeout()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = ErrTimeout
		}
		return nil, &LookupError{Selector: sel, Timeout: timeout, Err: err}
	}

	return &rodElement{el: el.CancelTimeout(), typingDelay: s.typingDelay}, nil
}

// Has checks the current DOM for sel without waiting
func (s *Session) Has(ctx context.Context, sel Selector) (bool, error) {
	page := s.page.Context(ctx)

	var (
		has bool
		err error
	)
	switch {
	case sel.XPath != "":
		has, _, err = page.HasX(sel.XPath)
	case sel.Text != "":
		has, _, err = page.HasR(sel.CSS, sel.Text)
	default:
		has, _, err = page.Has(sel.CSS)
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe %s: %w", sel.Name, err)
	}
	return has, nil
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		logger.Info("Closing browser...")
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
	})
	return s.closeErr
}

type rodElement struct {
	el          *rod.Element
	typingDelay time.Duration
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Input(ctx context.Context, text string) error {
	return stealth.TypeText(ctx, e.el, text, e.typingDelay)
}

func (e *rodElement) Submit(ctx context.Context) error {
	return e.el.Context(ctx).Type(input.Enter)
}
