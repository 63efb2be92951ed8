package batch

import (
	"github.com/yourusername/linkedin-connector/internal/connection"
	"github.com/yourusername/linkedin-connector/internal/logger"
)

// Observer receives status lines and per-profile progress of a run
type Observer interface {
	Status(msg string)
	// Progress is called after each profile; done/total is the fraction completed
	Progress(done, total int, result connection.Result)
}

// NopObserver discards everything
type NopObserver struct{}

func (NopObserver) Status(string) {}

func (NopObserver) Progress(int, int, connection.Result) {}

// LogObserver reports to the global logger, used by the CLI
type LogObserver struct{}

func (LogObserver) Status(msg string) {
	logger.Info(msg)
}

func (LogObserver) Progress(done, total int, result connection.Result) {
	logger.Info("Progress",
		"done", done,
		"total", total,
		"percent", done*100/total,
		"profile_url", result.ProfileURL,
		"status", result.Status,
	)
}
