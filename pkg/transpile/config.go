package transpile

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-c2rust/pkg/translator"
)

// Values accepted by Config.InvalidCode
const (
	InvalidCodePanic        = "panic"
	InvalidCodeCompileError = "compile_error"
)

// LogLevelOff silences logging entirely
const LogLevelOff = "off"

// Config holds the settings of a translation run. Files are merged over
// DefaultConfig, so absent keys keep their defaults.
type Config struct {
	TranslateValist bool   `yaml:"translate_valist"`
	EmitNoStd       bool   `yaml:"emit_no_std"`
	InvalidCode     string `yaml:"invalid_code"`
	FailOnError     bool   `yaml:"fail_on_error"`
	LogLevel        string `yaml:"log_level"`
}

// DefaultConfig returns the settings used when no file or flag overrides them
func DefaultConfig() Config {
	return Config{
		TranslateValist: true,
		InvalidCode:     InvalidCodePanic,
		LogLevel:        "warn",
	}
}

// LoadConfig reads a YAML config file over the defaults
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "opening config")
	}
	defer f.Close()
	return ReadConfig(f)
}

// ReadConfig decodes a YAML config over the defaults. Unknown keys are
// rejected.
func ReadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enumerated values
func (c Config) Validate() error {
	switch c.InvalidCode {
	case InvalidCodePanic, InvalidCodeCompileError:
	default:
		return errors.Errorf("invalid_code: unknown value %q (want %s or %s)", c.InvalidCode, InvalidCodePanic, InvalidCodeCompileError)
	}
	if c.LogLevel != LogLevelOff {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return errors.Wrap(err, "log_level")
		}
	}
	return nil
}

// TranslatorOptions maps the config onto the engine options
func (c Config) TranslatorOptions() translator.Options {
	opts := translator.Options{
		TranslateValist: c.TranslateValist,
		EmitNoStd:       c.EmitNoStd,
	}
	if c.InvalidCode == InvalidCodeCompileError {
		opts.InvalidCode = translator.InvalidCodeCompileError
	}
	return opts
}

// NewLogger creates a logger writing to w at the configured level
func (c Config) NewLogger(w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if c.LogLevel == LogLevelOff {
		logger.SetOutput(io.Discard)
		return logger, nil
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "log_level")
	}
	logger.SetOutput(w)
	logger.SetLevel(level)
	return logger, nil
}
