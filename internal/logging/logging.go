// File: internal/logging/logging.go
// Package logging
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// zerolog construction shared by the command line tools and tests.

package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-conn/config"
)

const (
	EnvLogLevel   = "HIOCONN_LOG_LEVEL"
	EnvLogNoColor = "HIOCONN_LOG_NOCOLOR"
	EnvLogJSON    = "HIOCONN_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Settings is the resolved logger configuration.
type Settings struct {
	Level     zerolog.Level
	JSON      bool
	NoColor   bool
	Timestamp bool
}

// Defaults returns the settings for a profile before any overrides.
func Defaults(profile Profile) Settings {
	switch profile {
	case ProfileTest:
		return Settings{Level: zerolog.DebugLevel, NoColor: true}
	default:
		return Settings{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

// FromConfig layers the log section of cfg and then the environment over
// the runtime defaults.
func FromConfig(cfg config.LogConfig) Settings {
	s := Defaults(ProfileRuntime)
	if lvl, ok := parseLevel(cfg.Level); ok {
		s.Level = lvl
	}
	s.JSON = cfg.JSON
	s.NoColor = cfg.NoColor
	applyEnvOverrides(&s, os.Getenv)
	return s
}

// New builds a logger writing to w.
func New(w io.Writer, s Settings) zerolog.Logger {
	out := w
	if !s.JSON {
		cw := zerolog.ConsoleWriter{Out: w, NoColor: s.NoColor, TimeFormat: time.RFC3339}
		if !s.Timestamp {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		out = cw
	}
	ctx := zerolog.New(out).Level(s.Level).With()
	if s.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// ForTests returns a debug logger for tests, honoring the environment.
func ForTests(w io.Writer) zerolog.Logger {
	s := Defaults(ProfileTest)
	applyEnvOverrides(&s, os.Getenv)
	return New(w, s)
}

func applyEnvOverrides(s *Settings, getenv func(string) string) {
	if lvl, ok := parseLevel(getenv(EnvLogLevel)); ok {
		s.Level = lvl
	}
	if v, ok := parseBool(getenv(EnvLogNoColor)); ok {
		s.NoColor = v
	}
	if v, ok := parseBool(getenv(EnvLogJSON)); ok {
		s.JSON = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
