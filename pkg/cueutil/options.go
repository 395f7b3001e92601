// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize bounds documents accepted for parsing (5 MB).
const DefaultMaxFileSize int64 = 5 << 20

type (
	parseOptions struct {
		maxFileSize int64
		concrete    bool
		filename    string
	}

	// Option configures parsing behavior.
	Option func(*parseOptions)
)

func defaultOptions() parseOptions {
	return parseOptions{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithMaxFileSize sets the maximum accepted document size in bytes.
func WithMaxFileSize(size int64) Option {
	return func(o *parseOptions) {
		o.maxFileSize = size
	}
}

// WithConcrete sets whether every value must be concrete after unification.
// Defaults to true; configuration files with optional sections pass false.
func WithConcrete(concrete bool) Option {
	return func(o *parseOptions) {
		o.concrete = concrete
	}
}

// WithFilename sets the name used in error messages.
func WithFilename(name string) Option {
	return func(o *parseOptions) {
		o.filename = name
	}
}
