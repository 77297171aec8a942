package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger is the logging interface handed to every component. It is a subset of
// zap's SugaredLogger plus the ability to create named subloggers.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<name>.<subname>" sharing this logger's outputs.
	Sublogger(subname string) Logger
	Desugar() *zap.Logger
	Sync() error
}

type impl struct {
	*zap.SugaredLogger
	name string
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return &impl{SugaredLogger: imp.SugaredLogger.Named(subname), name: newName}
}

// FromZapCompatible wraps an existing zap logger.
func FromZapCompatible(logger *zap.SugaredLogger) Logger {
	return &impl{SugaredLogger: logger}
}
