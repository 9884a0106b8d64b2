package log

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

// SetDebugFormatter sets log formatter for logrus debug
func SetDebugFormatter() {
	logrus.SetReportCaller(true)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableLevelTruncation: true,
		FullTimestamp:          true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		},
	})
}

// SetLogLevel sets log level for logrus
func SetLogLevel(logLevel string, debug bool) error {
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
		SetDebugFormatter()
		return nil
	}
	if logLevel == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return nil
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("error parsing log level %q: %w", logLevel, err)
	}
	logrus.SetLevel(level)
	return nil
}
