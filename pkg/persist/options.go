package persist

import (
	"os"
	"time"

	"github.com/agentstation/usagesync/pkg/constants"
)

// Options is the configuration for a Writer.
type Options struct {
	indent      string
	permissions os.FileMode
	summary     bool
	now         func() time.Time
}

// Indent returns the JSON indentation used for artifacts.
func (o *Options) Indent() string {
	return o.indent
}

// Permissions returns the mode of written files.
func (o *Options) Permissions() os.FileMode {
	return o.permissions
}

// Summary reports whether the text summary artifact is written.
func (o *Options) Summary() bool {
	return o.summary
}

// Defaults returns the default writer options.
func Defaults() *Options {
	return &Options{
		indent:      "  ",
		permissions: constants.FilePermissions,
		summary:     true,
		now:         time.Now,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		opt(o)
	}
	return *o
}

// Option is a function that configures writer options.
type Option func(*Options)

// WithIndent sets the JSON indentation. An empty string writes compact JSON.
func WithIndent(indent string) Option {
	return func(o *Options) {
		o.indent = indent
	}
}

// WithPermissions sets the mode of written files.
func WithPermissions(mode os.FileMode) Option {
	return func(o *Options) {
		o.permissions = mode
	}
}

// WithoutSummary skips the text summary artifact.
func WithoutSummary() Option {
	return func(o *Options) {
		o.summary = false
	}
}

// WithClock sets the clock used for artifact names when a run carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.now = now
		}
	}
}
