package auth

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

// LoggerProviderFunc adapts a function to LoggerProvider
type LoggerProviderFunc func(name string) Logger

// GetLogger implements LoggerProvider.
func (f LoggerProviderFunc) GetLogger(name string) Logger {
	if f == nil {
		return defLogger{}
	}
	return f(name)
}

// NewLogger builds the glog backed provider used by the binaries. Rich
// errors logged as values are expanded through go-errors. verbose turns
// on the pretty printer at trace level.
func NewLogger(name string, verbose bool) LoggerProvider {
	if verbose {
		return namedLoggers(glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName(name),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
		).GetLogger)
	}

	return namedLoggers(glog.NewLogger(
		glog.WithName(name),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	).GetLogger)
}

func namedLoggers[L Logger](get func(name string) L) LoggerProvider {
	return LoggerProviderFunc(func(name string) Logger {
		return get(name)
	})
}

// ResolveLogger returns the provider and named logger to use. An explicit
// logger wins over the provider, and a nil provider falls back to defLogger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger != nil {
		return provider, logger
	}
	if provider != nil {
		if l := provider.GetLogger(name); l != nil {
			return provider, l
		}
	}
	return provider, defLogger{}
}
