package transpile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-c2rust/pkg/translator"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.TranslateValist)
	assert.False(t, cfg.EmitNoStd)
	assert.Equal(t, InvalidCodePanic, cfg.InvalidCode)
	assert.Equal(t, "warn", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestReadConfigKeepsDefaults(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader("emit_no_std: true\ninvalid_code: compile_error\n"))
	require.NoError(t, err)
	assert.True(t, cfg.EmitNoStd)
	assert.True(t, cfg.TranslateValist, "absent keys keep their defaults")
	assert.Equal(t, translator.Options{
		TranslateValist: true,
		EmitNoStd:       true,
		InvalidCode:     translator.InvalidCodeCompileError,
	}, cfg.TranslatorOptions())

	cfg, err = ReadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestReadConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown key", "translate_va_list: false\n", "translate_va_list"},
		{"bad invalid_code", "invalid_code: abort\n", "invalid_code"},
		{"bad log level", "log_level: loud\n", "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadConfig(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c2rust.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fail_on_error: true\nlog_level: debug\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.FailOnError)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	cfg.LogLevel = LogLevelOff
	logger, err = cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Error("dropped")
	assert.Empty(t, buf.String())
}
