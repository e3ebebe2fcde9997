package nvelope

import (
	"fmt"
	"sort"
)

// BasicLogger is just the start of what a logger might
// support.  Loggers with more capabilities are detected with
// type assertions (see LogFlusher) so BasicLogger will remain
// acceptable to the APIs.
type BasicLogger interface {
	Debug(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
}

// StdLogger is implemented by the base library log.Logger
type StdLogger interface {
	Print(v ...interface{})
}

type wrappedStdLogger struct {
	log   StdLogger
	debug bool
}

// LoggerFromStd creates a BasicLogger that prints through a
// log.Logger.  Debug messages are dropped unless withDebug is true.
func LoggerFromStd(log StdLogger, withDebug bool) BasicLogger {
	return wrappedStdLogger{log: log, debug: withDebug}
}

func (std wrappedStdLogger) print(level string, msg string, fields []map[string]interface{}) {
	vals := make([]interface{}, 1, len(fields)*4+1)
	vals[0] = level + " " + msg
	for _, m := range fields {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			vals = append(vals, " "+k+"="+fmt.Sprint(m[k]))
		}
	}
	std.log.Print(vals...)
}

func (std wrappedStdLogger) Error(msg string, fields ...map[string]interface{}) {
	std.print("ERROR", msg, fields)
}

func (std wrappedStdLogger) Warn(msg string, fields ...map[string]interface{}) {
	std.print("WARN", msg, fields)
}

func (std wrappedStdLogger) Debug(msg string, fields ...map[string]interface{}) {
	if std.debug {
		std.print("DEBUG", msg, fields)
	}
}

// NoLogger returns a BasicLogger that discards all inputs
func NoLogger() BasicLogger {
	return nilLogger{}
}

type nilLogger struct{}

var _ BasicLogger = nilLogger{}

func (nilLogger) Error(string, ...map[string]interface{}) {}
func (nilLogger) Warn(string, ...map[string]interface{})  {}
func (nilLogger) Debug(string, ...map[string]interface{}) {}
