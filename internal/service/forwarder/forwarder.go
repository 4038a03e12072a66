// Package forwarder delivers rendered signals to the destination group,
// absorbing transient transport failures with bounded backoff.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"time"

	drepo "SignalRelay/internal/domain/repository"
	"SignalRelay/pkg/logger"
)

// Forwarder wraps the outbound Publisher with a retry policy: transient
// errors retry with exponential backoff up to the attempt ceiling, permanent
// errors surface immediately.
type Forwarder struct {
	pub         drepo.Publisher
	destination string
	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration
	metrics     drepo.Metrics
	logger      *logger.Logger
}

// Option configures Forwarder.
type Option func(*Forwarder)

// WithRetry sets the attempt ceiling and backoff range.
func WithRetry(maxAttempts int, backoffMin, backoffMax time.Duration) Option {
	return func(f *Forwarder) {
		if maxAttempts > 0 {
			f.maxAttempts = maxAttempts
		}
		if backoffMin > 0 {
			f.backoffMin = backoffMin
		}
		if backoffMax > 0 {
			f.backoffMax = backoffMax
		}
	}
}

// New creates a forwarder publishing to the given destination.
func New(pub drepo.Publisher, destination string, metrics drepo.Metrics, log *logger.Logger, opts ...Option) *Forwarder {
	f := &Forwarder{
		pub:         pub,
		destination: destination,
		maxAttempts: 4,
		backoffMin:  200 * time.Millisecond,
		backoffMax:  3 * time.Second,
		metrics:     metrics,
		logger:      log,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Deliver publishes text to the destination group.
func (f *Forwarder) Deliver(ctx context.Context, text string) error {
	backoff := f.backoffMin
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		start := time.Now()
		err := f.pub.Publish(ctx, f.destination, text)
		f.metrics.RecordLatency("forward", time.Since(start).Seconds())
		if err == nil {
			return nil
		}

		if errors.Is(err, drepo.ErrPublishPermanent) {
			f.metrics.RecordError("forward_permanent")
			return err
		}

		lastErr = err
		f.metrics.RecordError("forward_retry")
		f.logger.Warn("forward attempt failed",
			logger.Int("attempt", attempt),
			logger.Error(err),
		)

		if attempt == f.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < f.backoffMax {
			backoff *= 2
			if backoff > f.backoffMax {
				backoff = f.backoffMax
			}
		}
	}

	return fmt.Errorf("forward: %d attempts exhausted: %w", f.maxAttempts, lastErr)
}
