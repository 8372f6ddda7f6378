package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
)

// newLogger creates a new logger with the appropriate log level.
// The verbose flag forces DebugLevel; otherwise LOG_LEVEL decides,
// defaulting to InfoLevel.
func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			log.WithField("value", lvl).Warn("invalid LOG_LEVEL, using info")
		} else {
			log.SetLevel(level)
		}
	}

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	return log
}
