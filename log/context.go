package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

// G is an alias for GetLogger.
//
// We may want to define this locally to a package to get package tagged log
// messages.
var G = GetLogger

// L is an alias for the standard logger.
var L = &logrus.Entry{Logger: logrus.StandardLogger()}

type loggerKey struct{}

type moduleKey struct{}

// WithLogger returns a new context with the provided logger. Use in
// combination with logger.WithField(s) for great effect.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the current logger from the context. If no logger is
// available, the default logger is returned.
func GetLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(loggerKey{})
	if logger == nil {
		return L
	}
	return logger.(*logrus.Entry)
}

// WithModule adds the module to the context, appending it with a slash if a
// module already exists. It also updates the logger to reflect the new
// module chain.
func WithModule(ctx context.Context, module string) context.Context {
	parent := GetModulePath(ctx)
	if parent == module {
		// Re-entering the same module is a no-op; this keeps allocator
		// stages that wrap sub-calls in their own module scope from
		// growing the path every time they're nested.
		return ctx
	}
	if parent != "" {
		module = parent + "/" + module
	}

	ctx = context.WithValue(ctx, moduleKey{}, module)
	return WithLogger(ctx, GetLogger(ctx).WithField("module", module))
}

// GetModulePath returns the module path for the provided context. If no
// module is set, an empty string is returned.
func GetModulePath(ctx context.Context) string {
	module := ctx.Value(moduleKey{})
	if module == nil {
		return ""
	}
	return module.(string)
}
