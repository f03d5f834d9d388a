// Package log provides a leveled logger with structured logging support.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured fields attached to a log entry.
type Fields map[string]any

// Logger wraps the logrus package to have full control over the exposed functionality,
// and to give callers an easy way to clone instances with extra fields attached.
type Logger interface {
	// SetLevel parses and sets the log level.
	SetLevel(str string) error

	// WithField adds a single field to the Logger and returns a partly cloned instance.
	// The field is added to the returned instance only.
	WithField(key string, value any) Logger

	// WithFields adds a struct of fields to the Logger. All it does is call `WithField` for each `Field`.
	WithFields(fields Fields) Logger

	// WithError adds an error as a single field to the Logger.
	WithError(err error) Logger

	// Tracef logs a message at level Trace on the Logger.
	Tracef(format string, args ...any)

	// Debugf logs a message at level Debug on the Logger.
	Debugf(format string, args ...any)

	// Infof logs a message at level Info on the Logger.
	Infof(format string, args ...any)

	// Warnf logs a message at level Warn on the Logger.
	Warnf(format string, args ...any)

	// Errorf logs a message at level Error on the Logger.
	Errorf(format string, args ...any)

	// Trace logs a message at level Trace on the Logger.
	Trace(args ...any)

	// Debug logs a message at level Debug on the Logger.
	Debug(args ...any)

	// Info logs a message at level Info on the Logger.
	Info(args ...any)

	// Warn logs a message at level Warn on the Logger.
	Warn(args ...any)

	// Error logs a message at level Error on the Logger.
	Error(args ...any)
}

type logger struct {
	*logrus.Entry
}

// New returns a new Logger instance with the given options.
func New(opts ...Option) Logger {
	parent := logrus.New()
	parent.SetLevel(logrus.InfoLevel)
	parent.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	log := &logger{Entry: logrus.NewEntry(parent)}

	for _, opt := range opts {
		opt(log)
	}

	return log
}

// Option is a configuration function for a Logger instance.
type Option func(*logger)

// WithOutput sets the output destination for the instance.
func WithOutput(output io.Writer) Option {
	return func(log *logger) {
		log.Logger.SetOutput(output)
	}
}

// WithLevel sets the log level for the instance.
func WithLevel(level Level) Option {
	return func(log *logger) {
		log.Logger.SetLevel(logrus.Level(level))
	}
}

func (log *logger) SetLevel(str string) error {
	level, err := ParseLevel(str)
	if err != nil {
		return err
	}

	log.Logger.SetLevel(logrus.Level(level))

	return nil
}

func (log *logger) WithField(key string, value any) Logger {
	return &logger{Entry: log.Entry.WithField(key, value)}
}

func (log *logger) WithFields(fields Fields) Logger {
	return &logger{Entry: log.Entry.WithFields(logrus.Fields(fields))}
}

func (log *logger) WithError(err error) Logger {
	return &logger{Entry: log.Entry.WithError(err)}
}
