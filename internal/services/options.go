package services

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time to the services.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	FixedNow time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.FixedNow
}

func (c *FixedClock) SetNow(now time.Time) {
	c.FixedNow = now
}

type options struct {
	clock  Clock
	newID  func() string
	logger *slog.Logger
}

// Option customizes a service at construction time.
type Option func(*options)

func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{
		clock:  SystemClock{},
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
