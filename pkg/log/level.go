package log

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Level is the logging level type.
type Level uint32

const (
	// ErrorLevel level. Used for errors that should definitely be noted.
	ErrorLevel = Level(logrus.ErrorLevel)

	// WarnLevel level. Non-critical entries that deserve eyes.
	WarnLevel = Level(logrus.WarnLevel)

	// InfoLevel level. General operational entries about what's going on inside the application.
	InfoLevel = Level(logrus.InfoLevel)

	// DebugLevel level. Usually only enabled when debugging. Very verbose logging.
	DebugLevel = Level(logrus.DebugLevel)

	// TraceLevel level. Designates finer-grained informational events than Debug.
	TraceLevel = Level(logrus.TraceLevel)
)

// AllLevels exposes all logging levels, ordered from least to most verbose.
var AllLevels = []Level{ErrorLevel, WarnLevel, InfoLevel, DebugLevel, TraceLevel}

// ParseLevel takes a string and returns the Level constant with that name.
func ParseLevel(str string) (Level, error) {
	logrusLevel, err := logrus.ParseLevel(str)
	if err != nil {
		return InfoLevel, fmt.Errorf("invalid log level %q, supported levels: %s", str, levelNames())
	}

	return Level(logrusLevel), nil
}

// String implements fmt.Stringer.
func (level Level) String() string {
	return logrus.Level(level).String()
}

func levelNames() string {
	var names string

	for i, level := range AllLevels {
		if i > 0 {
			names += ", "
		}

		names += level.String()
	}

	return names
}
