package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/yourusername/linkedin-connector/internal/config"
)

func TestInitWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "connector.log")

	require.NoError(t, Init(config.LoggingConfig{Level: "debug", ToFile: true, FilePath: path}))
	Info("request sent", "profile_url", "https://www.linkedin.com/in/jane")
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `"profile_url":"https://www.linkedin.com/in/jane"`), string(data))
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init(config.LoggingConfig{Level: "chatty"}))
	require.False(t, Get().Desugar().Core().Enabled(zapcore.DebugLevel))
	require.True(t, Get().Desugar().Core().Enabled(zapcore.InfoLevel))
}
