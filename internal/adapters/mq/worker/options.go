package worker

import (
	"github.com/okian/rankset/pkg/logger"
)

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithName sets the writer name used in logs.
func WithName(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the writer.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithOnApplied registers a callback invoked after every command.
func WithOnApplied(fn AppliedFunc) Option {
	return func(w *Writer) {
		w.onApply = fn
	}
}
