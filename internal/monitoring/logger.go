// Package monitoring holds the process-wide diagnostic loggers.
package monitoring

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logf and Debugf are the package-level diagnostic loggers. They default to
// the logrus standard logger but may be replaced by SetLogger; tests use
// SetLogger(nil) to mute them.
var (
	Logf   func(format string, v ...interface{}) = logrus.Infof
	Debugf func(format string, v ...interface{}) = logrus.Debugf
)

// SetLogger routes both loggers to f. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf = f
	Debugf = f
}

// Setup configures the logrus standard logger and restores the default
// routing.
func Setup(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		FullTimestamp:   true,
	})
	Logf = logrus.Infof
	Debugf = logrus.Debugf
	return nil
}
