package logging

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, Config{Level: "debug", Redact: []string{"Abcd1234"}}))

	logger.Info("login submitted",
		slog.String("password", "Abcd1234"),
		slog.String("note", "typed abcd1234 into the form"),
		slog.String("url", "https://example.com/api/login"),
		slog.Int("status", 200),
	)

	out := buf.String()
	assert.NotContains(t, out, "Abcd1234")
	assert.NotContains(t, out, "abcd1234")
	assert.Contains(t, out, "password=***MASKED***")
	assert.Contains(t, out, "url=https://example.com/api/login")
	assert.Contains(t, out, "status=200")
}

func TestNewHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, Config{Level: "warn"}))

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestSetup_File(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "authwatch.log")
	cleanup, err := Setup(Config{Level: "info", FilePath: path, MaxSizeMB: 1})
	require.NoError(t, err)

	slog.Info("hello")
	require.NoError(t, cleanup())
	assert.FileExists(t, path)
}
