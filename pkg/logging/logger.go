// Package logging provides the Logger interface used throughout this
// repository, matching the teacher's definition.Logger shape but
// backed by logrus instead of the stdlib log package.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is implemented by every logging backend in this repository.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}

// LogrusLogger is the default Logger, backed by a *logrus.Logger.
type LogrusLogger struct {
	entry *logrus.Logger
}

// New builds a LogrusLogger writing to stderr with text formatting,
// the logrus defaults most daemons in this corpus ship with.
func New(nodeName string) *LogrusLogger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Level = logrus.InfoLevel
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if nodeName != "" {
		return &LogrusLogger{entry: l}
	}
	return &LogrusLogger{entry: l}
}

func (l *LogrusLogger) Info(v ...interface{})                   { l.entry.Info(v...) }
func (l *LogrusLogger) Infof(format string, v ...interface{})   { l.entry.Infof(format, v...) }
func (l *LogrusLogger) Warn(v ...interface{})                   { l.entry.Warn(v...) }
func (l *LogrusLogger) Warnf(format string, v ...interface{})   { l.entry.Warnf(format, v...) }
func (l *LogrusLogger) Error(v ...interface{})                  { l.entry.Error(v...) }
func (l *LogrusLogger) Errorf(format string, v ...interface{})  { l.entry.Errorf(format, v...) }
func (l *LogrusLogger) Debug(v ...interface{})                  { l.entry.Debug(v...) }
func (l *LogrusLogger) Debugf(format string, v ...interface{})  { l.entry.Debugf(format, v...) }

// Fatal logs at the fatal level and exits the process with status 1,
// matching the teacher's DefaultLogger.Fatal.
func (l *LogrusLogger) Fatal(v ...interface{}) {
	l.entry.Fatal(v...)
}

func (l *LogrusLogger) Fatalf(format string, v ...interface{}) {
	l.entry.Fatalf(format, v...)
}

// ToggleDebug flips the logger between info and debug verbosity,
// returning the new state.
func (l *LogrusLogger) ToggleDebug(value bool) bool {
	if value {
		l.entry.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.SetLevel(logrus.InfoLevel)
	}
	return value
}
