// Package logging configures the process-wide zerolog logger and provides the
// redaction helpers used wherever tokens could reach a log line.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Redacted replaces secrets in logs and error payloads.
const Redacted = "[REDACTED]"

// Setup installs the global logger. DEV gets a console writer, every other
// environment gets JSON on stdout.
func Setup(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	if strings.EqualFold(env, "DEV") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// Redact hides a secret while keeping whether it was present.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	return Redacted
}
