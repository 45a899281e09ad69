package gmkit

import (
	"io"
	"log/slog"
	"time"
)

// DefaultReadyTTL is how long a ready status lives before it is automatically
// cleared.
const DefaultReadyTTL = 12 * time.Hour

// options configures the Engine behavior (internal only).
type options struct {
	readyTTL time.Duration
	logger   *slog.Logger
	resolver IdentityResolver
}

// defaultOptions returns sensible defaults.
func defaultOptions() options {
	return options{
		readyTTL: DefaultReadyTTL,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		resolver: selfResolver{},
	}
}

// Option is a functional option for configuring an Engine.
type Option func(*options)

// WithReadyTTL sets how long a ready status lives before expiring.
// DEFAULT: 12 hours
func WithReadyTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.readyTTL = ttl
		}
	}
}

// WithLogger sets the logger for the engine.
// If the logger is nil, the engine will use a no-op logger.
// DEFAULT: A no-op logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			return
		}

		o.logger = logger
	}
}

// WithIdentityResolver sets the identity resolver used to turn holders into
// display labels during ready checks.
// DEFAULT: A resolver that labels every holder with its own identifier
func WithIdentityResolver(resolver IdentityResolver) Option {
	return func(o *options) {
		if resolver == nil {
			o.resolver = selfResolver{}
			return
		}

		o.resolver = resolver
	}
}
