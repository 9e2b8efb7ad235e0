package logger

import "io"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type options struct {
	format string
	writer io.Writer
	level  string
}

// Option configures Init.
type Option func(*options)

// WithFormat selects text or json output.
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithWriter sends output to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithLevel sets the initial level by name.
func WithLevel(level string) Option {
	return func(o *options) {
		o.level = level
	}
}
