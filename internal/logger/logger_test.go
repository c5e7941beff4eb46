package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{name: "production uses json", environment: "production", wantJSON: true},
		{name: "development uses console", environment: "development", wantJSON: false},
		{name: "empty uses console", environment: "", wantJSON: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Config{Environment: tt.environment, Writer: &buf})
			l.Info("hello")

			var decoded map[string]any
			err := json.Unmarshal(buf.Bytes(), &decoded)
			if tt.wantJSON {
				require.NoError(t, err)
				assert.Equal(t, "hello", decoded["msg"])
			} else {
				assert.Error(t, err)
				assert.Contains(t, buf.String(), "hello")
			}
		})
	}
}

func TestNew_LevelVarChangesAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	l := New(Config{Format: "json", Writer: &buf, Level: level})

	l.Info("hidden")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	l.Debug("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestNew_ExplicitFormatWins(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Environment: "development", Writer: &buf})
	l.Info("test")

	assert.Contains(t, buf.String(), `"msg":"test"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestConsoleHandler_ComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := Component(slog.New(NewConsoleHandler(&buf, nil)), "cache")
	l.Info("entry saved", "entry_id", "e1")

	out := buf.String()
	assert.Contains(t, out, "[cache]")
	assert.Contains(t, out, "entry_id=e1")
	assert.NotContains(t, out, "component=")
}

func TestConsoleHandler_ErrorPrintedLast(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewConsoleHandler(&buf, nil))
	l.Warn("enrichment failed", Err(errors.New("boom")), "entry_id", "e1")

	out := buf.String()
	require.Contains(t, out, "error=boom")
	assert.Greater(t, bytes.Index(buf.Bytes(), []byte("error=boom")), bytes.Index(buf.Bytes(), []byte("entry_id=e1")))
}

func TestConsoleHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	l.Info("hidden")
	l.Debug("hidden too")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "WRN")
}

func TestConsoleHandler_GroupQualifiesKeys(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewConsoleHandler(&buf, nil)).WithGroup("http")
	l.Info("request", "status", 200)

	assert.Contains(t, buf.String(), "http.status=200")
}

func TestConsoleHandler_QuotesStringsWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewConsoleHandler(&buf, nil))
	l.Info("saved", "term", "good morning")

	assert.Contains(t, buf.String(), `term="good morning"`)
}

func TestComponent_NilLoggerDiscards(t *testing.T) {
	l := Component(nil, "votes")
	require.NotNil(t, l)
	l.Info("nothing happens")
}
