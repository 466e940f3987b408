// Package log configures the process-wide structured logger, built on
// sirupsen/logrus to match the teacher's logging stack.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus.Logger configured with JSON output and the given
// level string ("debug", "info", "warn", "error"); an unrecognized level
// falls back to info.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// WithSession returns a logger entry pre-tagged with a session ID, for
// correlating log lines by session; the server handlers currently log
// without it.
func WithSession(logger *logrus.Logger, sessionID string) *logrus.Entry {
	return logger.WithField("session_id", sessionID)
}
