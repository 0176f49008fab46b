package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"warn":    LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
	assert.Equal(t, "WARN", LevelWarn.String())
}

func TestInitLogger_WritesDailyFileAboveLevel(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, InitLogger(LoggerOptions{Dir: dir, Level: LevelWarn}))
	t.Cleanup(func() {
		Close()
		globalLogger = nil
	})

	Info("refresh %d committed", 7)
	Warn("refresh %d stale", 8)
	WithFields(map[string]interface{}{"endpoint": "/stats"}).Error("upstream down")

	path := filepath.Join(dir, "cwatch-dashboard-"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.NotContains(t, out, "refresh 7 committed")
	assert.Contains(t, out, "refresh 8 stale")
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "endpoint=/stats")
}

func TestLogging_WithoutInit(t *testing.T) {
	require.Nil(t, globalLogger)
	assert.NotPanics(t, func() {
		Info("no logger yet")
		Close()
	})
}
