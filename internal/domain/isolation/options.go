package isolation

import "github.com/okian/miniiso/pkg/logger"

// Option configures an aggregator.
type Option func(*options)

type options struct {
	logger logger.Logger
}

// WithLogger sets the logger used for invalid-candidate diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(name string, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	o.logger = o.logger.Named(name)
	return o
}
