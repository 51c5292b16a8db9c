// Package logging provides the subsystem logger used across meremail.
//
// It mirrors the shape the rest of the mail-server ecosystem settled on:
// a small value type carrying a subsystem Name and a Debug toggle, backed
// by a shared zap.Logger, rather than a global logger threaded through
// context.
package logging

import (
	"go.uber.org/zap"
)

var base *zap.Logger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	base = l
}

// Configure swaps the process-wide base logger, e.g. to a development
// encoder when NODE_ENV != production.
func Configure(development bool) {
	var l *zap.Logger
	var err error
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return
	}
	base = l
}

// Logger is a named facade over the shared zap logger. The zero value is
// usable; Name defaults to "meremail".
type Logger struct {
	Name  string
	Debug bool
}

func (l Logger) name() string {
	if l.Name == "" {
		return "meremail"
	}
	return l.Name
}

func (l Logger) Debugf(format string, args ...interface{}) {
	if !l.Debug {
		return
	}
	base.Sugar().Named(l.name()).Debugf(format, args...)
}

func (l Logger) Printf(format string, args ...interface{}) {
	base.Sugar().Named(l.name()).Infof(format, args...)
}

func (l Logger) Println(args ...interface{}) {
	base.Sugar().Named(l.name()).Info(args...)
}

// Error logs msg with err attached. A nil err is still logged (the caller
// wanted a log line, just without a cause).
func (l Logger) Error(msg string, err error) {
	if err != nil {
		base.Sugar().Named(l.name()).Errorw(msg, "error", err)
		return
	}
	base.Sugar().Named(l.name()).Error(msg)
}

func (l Logger) Warn(msg string, args ...interface{}) {
	base.Sugar().Named(l.name()).Warnf(msg, args...)
}

func (l Logger) With(fields ...interface{}) Logger {
	return l
}
