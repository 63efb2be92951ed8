package stealth

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RandomUserAgent selects a user agent from the pool on every launch
const RandomUserAgent = "random"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// automationMask hides the usual headless giveaways on every new document
const automationMask = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	window.chrome = window.chrome || { runtime: {} };
	const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
	if (originalQuery) {
		window.navigator.permissions.query = (parameters) => (
			parameters.name === 'notifications' ?
				Promise.resolve({ state: Notification.permission }) :
				originalQuery(parameters)
		);
	}
}`

// ResolveUserAgent returns configured unless it asks for rotation
func ResolveUserAgent(configured string) string {
	if configured != RandomUserAgent {
		return configured
	}
	rngMu.Lock()
	defer rngMu.Unlock()
	return userAgents[rng.Intn(len(userAgents))]
}

// ConfigureLauncher applies the desktop-client disguise to the Chromium command line
func ConfigureLauncher(l *launcher.Launcher, userAgent string, headless, noSandbox bool) *launcher.Launcher {
	l = l.Headless(headless).
		NoSandbox(noSandbox).
		Devtools(false).
		Leakless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("user-agent", userAgent).
		Delete("enable-automation")

	return l
}

// NewPage opens a page with the go-rod/stealth evasions, the automation mask and a fixed viewport
func NewPage(browser *rod.Browser, width, height int) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	if _, err := page.EvalOnNewDocument(automationMask); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to mask automation flags: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  width,
		Height: height,
	})
	if err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return page, nil
}

// RandomDelay returns a random duration between min and max
func RandomDelay(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	rngMu.Lock()
	defer rngMu.Unlock()
	return min + time.Duration(rng.Int63n(int64(max-min)))
}

// KeystrokeDelay jitters base by ±40%
func KeystrokeDelay(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return RandomDelay(base*6/10, base*14/10)
}

// TypeText inserts text into el. A zero delay inserts it in one go,
// otherwise one rune at a time with a jittered pause. Cancelling ctx stops
// typing between keystrokes.
func TypeText(ctx context.Context, el *rod.Element, text string, delay time.Duration) error {
	return typeRunes(ctx, text, delay, el.Context(ctx).Input)
}

func typeRunes(ctx context.Context, text string, delay time.Duration, input func(string) error) error {
	if delay <= 0 {
		return input(text)
	}

	for _, r := range text {
		if err := input(string(r)); err != nil {
			return fmt.Errorf("failed to type text: %w", err)
		}
		if err := Pause(ctx, KeystrokeDelay(delay)); err != nil {
			return err
		}
	}
	return nil
}

// Pause waits for d or until ctx is done
func Pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
