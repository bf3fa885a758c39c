// Package logging constructs the process-wide *logrus.Logger, matching the
// JSONFormatter/InfoLevel setup every teacher cmd/server/main.go performs
// inline.
package logging

import (
	"github.com/sirupsen/logrus"
)

// New returns a JSON-formatted logger at the given level ("debug", "info",
// "warn", "error"); an unparseable level falls back to Info rather than
// failing process startup over a logging misconfiguration.
func New(environment, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	logger.SetReportCaller(environment != "production")

	return logger
}
