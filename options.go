package property

import (
	"log/slog"
	"time"

	"github.com/krisalay/cached-property/config"
	"github.com/krisalay/cached-property/store"
	"github.com/krisalay/cached-property/types"
)

// Option configures a Property.
type Option interface {
	apply(*settings)
}

// helper Option implementation to quickly define new options
type optionFunc func(*settings)

func (f optionFunc) apply(s *settings) {
	f(s)
}

type settings struct {
	ttl       time.Duration
	store     types.Store
	storePath string
	storeOpts []store.Option
	threaded  bool
	logger    *slog.Logger
	metrics   types.Metrics
	clock     types.Clock
}

// WithTTL bounds the age of a memoized value. An access more than ttl after
// the value was computed computes it again. Zero, the default, means values
// never expire; a negative ttl is rejected by New.
func WithTTL(ttl time.Duration) Option {
	return optionFunc(func(s *settings) {
		s.ttl = ttl
	})
}

// Threaded serialises every access through a reentrant lock shared by all
// owners of the property.
func Threaded() Option {
	return optionFunc(func(s *settings) {
		s.threaded = true
	})
}

// WithStore persists values to st. It takes precedence over WithStorePath.
func WithStore(st types.Store) Option {
	return optionFunc(func(s *settings) {
		s.store = st
	})
}

// WithStorePath persists values to the JSON document at path, opened with
// store.NewFileStore and opts. The property's logger is passed on unless
// opts override it.
func WithStorePath(path string, opts ...store.Option) Option {
	return optionFunc(func(s *settings) {
		s.storePath = path
		s.storeOpts = opts
	})
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(s *settings) {
		s.logger = logger
	})
}

// WithMetrics sets the metrics sink, for example a *metrics.Prometheus.
func WithMetrics(m types.Metrics) Option {
	return optionFunc(func(s *settings) {
		s.metrics = m
	})
}

// WithClock replaces the time source used for stamping and expiry.
func WithClock(clock types.Clock) Option {
	return optionFunc(func(s *settings) {
		s.clock = clock
	})
}

// WithConfig applies the TTL, store path and threading settings of cfg.
// Logging is left to WithLogger, typically WithLogger(cfg.Logger(w)).
func WithConfig(cfg config.Config) Option {
	return optionFunc(func(s *settings) {
		s.ttl = cfg.TTL
		s.threaded = cfg.Threaded
		if cfg.Store != "" {
			s.storePath = cfg.Store
		}
	})
}
