// Package log provides a context-scoped logrus logger, following the same
// convention as the rest of the allocator: a request picks up a base
// *logrus.Entry, threads it through context.Context, and every stage
// appends fields rather than reaching for a package-global logger.
package log
