package repository

import (
	"context"
	"errors"

	"SignalRelay/internal/domain/models"
)

// SignalBus is the inbound message bus: an unbounded stream of raw signals
// interleaved across the monitored source groups.
type SignalBus interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.RawSignal, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher is the outbound message bus.
type Publisher interface {
	Publish(ctx context.Context, destination, text string) error
	Close() error
}

// Oracle is the external text-formatting service. It is stateless with
// respect to pipeline state; tests substitute a deterministic stub.
type Oracle interface {
	Format(ctx context.Context, rawText string) (*models.OracleReply, error)
}

// Deduper admits a key at most once per TTL window.
type Deduper interface {
	Admit(ctx context.Context, key string) (bool, error)
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordReceived(source string)
	RecordOutcome(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordForwarded(source, asset string)
}

// Oracle error classes. Unavailable and rate-limited replies are retryable;
// a malformed reply is not and rejects the signal.
var (
	ErrOracleUnavailable = errors.New("oracle: unavailable")
	ErrOracleRateLimited = errors.New("oracle: rate limited")
	ErrOracleMalformed   = errors.New("oracle: malformed reply")
)

// Publish error classes. Transient failures are retried with backoff by the
// forwarder; permanent failures surface immediately.
var (
	ErrPublishTransient = errors.New("publish: transient failure")
	ErrPublishPermanent = errors.New("publish: permanent failure")
)
