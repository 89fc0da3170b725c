package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logger with the specified level. Unknown levels fall back
// to info rather than failing startup.
func New(level string) *logrus.Logger {
	l := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	l.SetLevel(logLevel)

	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetOutput(os.Stdout)

	return l
}
