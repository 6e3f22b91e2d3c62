// Package embucketlog is a small leveled logger matching the teacher's
// hand-rolled common.LogDebug/LogInfo/LogError/LogTrace call discipline.
package embucketlog

import (
	"fmt"
	"log"
	"os"
	"strings"
)

const (
	LevelError = "ERROR"
	LevelWarn  = "WARN"
	LevelInfo  = "INFO"
	LevelDebug = "DEBUG"
	LevelTrace = "TRACE"
)

var Levels = []string{LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace}

func rank(level string) int {
	for i, l := range Levels {
		if l == level {
			return i
		}
	}
	return -1
}

// Logger is a level-gated wrapper around the stdlib logger.
type Logger struct {
	level  string
	std    *log.Logger
}

func New(level string) *Logger {
	if rank(level) < 0 {
		level = LevelInfo
	}
	return &Logger{
		level: level,
		std:   log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *Logger) enabled(level string) bool {
	return rank(level) <= rank(l.level)
}

func (l *Logger) log(level string, args ...interface{}) {
	if !l.enabled(level) {
		return
	}
	msg := fmt.Sprintln(args...)
	l.std.Printf("[%s] %s", level, strings.TrimSuffix(msg, "\n"))
}

func (l *Logger) Trace(args ...interface{}) { l.log(LevelTrace, args...) }
func (l *Logger) Debug(args ...interface{}) { l.log(LevelDebug, args...) }
func (l *Logger) Info(args ...interface{})  { l.log(LevelInfo, args...) }
func (l *Logger) Warn(args ...interface{})  { l.log(LevelWarn, args...) }
func (l *Logger) Error(args ...interface{}) { l.log(LevelError, args...) }

// Panic logs at ERROR level and panics with the same message.
func (l *Logger) Panic(args ...interface{}) {
	msg := fmt.Sprintln(args...)
	l.log(LevelError, args...)
	panic(strings.TrimSuffix(msg, "\n"))
}

// PanicIfError panics (after logging) iff err is non-nil.
func (l *Logger) PanicIfError(err error) {
	if err != nil {
		l.Panic(err.Error())
	}
}

// HandleUnexpectedPanic is meant to be deferred at the top of main() and
// any background sweeper goroutine: it logs the recovered panic with its
// stack instead of letting the process die silently.
func (l *Logger) HandleUnexpectedPanic() {
	if r := recover(); r != nil {
		l.Error(fmt.Sprintf("Unexpected panic: %v", r))
		panic(r)
	}
}
