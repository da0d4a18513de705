package logging

import "fmt"

func fatalMessage(v ...interface{}) string {
	return fmt.Sprint(v...)
}

func fatalMessagef(format string, v ...interface{}) string {
	return fmt.Sprintf(format, v...)
}

// discardLogger implements Logger but drops everything except Fatal,
// which panics — invariant violations must never be silently swallowed
// just because a test didn't wire a real logger.
type discardLogger struct {
	debug bool
}

// NewDiscardLogger returns a Logger that drops all non-fatal output.
// Useful as a safe default for components constructed without an
// explicit logger.
func NewDiscardLogger() Logger {
	return &discardLogger{}
}

func (d *discardLogger) Info(v ...interface{})                  {}
func (d *discardLogger) Infof(format string, v ...interface{})  {}
func (d *discardLogger) Warn(v ...interface{})                  {}
func (d *discardLogger) Warnf(format string, v ...interface{})  {}
func (d *discardLogger) Error(v ...interface{})                 {}
func (d *discardLogger) Errorf(format string, v ...interface{}) {}
func (d *discardLogger) Debug(v ...interface{})                 {}
func (d *discardLogger) Debugf(format string, v ...interface{}) {}

func (d *discardLogger) Fatal(v ...interface{}) {
	panic(fatalMessage(v...))
}

func (d *discardLogger) Fatalf(format string, v ...interface{}) {
	panic(fatalMessagef(format, v...))
}

func (d *discardLogger) ToggleDebug(value bool) bool {
	d.debug = value
	return d.debug
}
