package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/linkedin-connector/internal/browser"
	"github.com/yourusername/linkedin-connector/internal/config"
	"github.com/yourusername/linkedin-connector/internal/logger"
	"github.com/yourusername/linkedin-connector/internal/selectors"
)

var (
	// ErrLoginFailed wraps every failure of the login sequence. It is fatal for a run.
	ErrLoginFailed = errors.New("linkedin login failed")

	// ErrMissingCredentials is returned before touching the browser
	ErrMissingCredentials = errors.New("linkedin credentials are empty")
)

// Credentials are the two secrets used to sign in
type Credentials struct {
	Username string
	Password string
}

// FromConfig reads the credentials loaded from the environment / .env
func FromConfig(cfg config.LinkedInConfig) Credentials {
	return Credentials{Username: cfg.Username, Password: cfg.Password}
}

// Authenticator performs the one-time login of a run
type Authenticator struct {
	driver browser.Driver
	timing config.TimingConfig
}

// New creates an Authenticator on top of a live browser session
func New(driver browser.Driver, timing config.TimingConfig) *Authenticator {
	return &Authenticator{driver: driver, timing: timing}
}

// Login signs in and waits for the feed link. It is not retried.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return ErrMissingCredentials
	}

	logger.Info("Starting LinkedIn login", "username", creds.Username)

	if err := a.driver.Navigate(ctx, selectors.LoginURL); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	usernameField, err := a.driver.WaitFor(ctx, selectors.LoginUsername, a.timing.GetLoginFormTimeout())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if err := usernameField.Input(ctx, creds.Username); err != nil {
		return fmt.Errorf("%w: failed to type username: %w", ErrLoginFailed, err)
	}

	passwordField, err := a.driver.WaitFor(ctx, selectors.LoginPassword, a.timing.GetElementTimeout())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	// password is never logged
	if err := passwordField.Input(ctx, creds.Password); err != nil {
		return fmt.Errorf("%w: failed to type password: %w", ErrLoginFailed, err)
	}
	if err := passwordField.Submit(ctx); err != nil {
		return fmt.Errorf("%w: failed to submit login form: %w", ErrLoginFailed, err)
	}

	logger.Debug("Waiting for post-login navigation")
	if _, err := a.driver.WaitFor(ctx, selectors.FeedLink, a.timing.GetLoginSuccessTimeout()); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	logger.Info("Logged in successfully")
	return nil
}
