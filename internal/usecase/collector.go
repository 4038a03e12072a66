package usecase

import (
	"context"
	"strings"
	"sync"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	"SignalRelay/internal/service/ratelimit"
	"SignalRelay/pkg/logger"
)

// SignalCollector multiplexes the monitored source groups: it consumes the
// bus stream, applies the structural source guard and per-source throttles,
// and dispatches each message to a per-source worker pool so one slow or
// bursting source cannot starve the others.
type SignalCollector struct {
	bus     drepo.SignalBus
	pipe    *Pipeline
	metrics drepo.Metrics
	logger  *logger.Logger

	sources map[string]struct{}
	queues  map[string]chan *models.RawSignal
	limiter *ratelimit.Limiter

	workers   int
	queueSize int
	burst     float64
	rps       float64

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// CollectorOption configures SignalCollector.
type CollectorOption func(*SignalCollector)

// WithSourceWorkers bounds concurrent in-flight messages per source.
func WithSourceWorkers(n int) CollectorOption {
	return func(c *SignalCollector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithSourceQueue sets the per-source dispatch buffer.
func WithSourceQueue(n int) CollectorOption {
	return func(c *SignalCollector) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithSourceThrottle sets the per-source token bucket.
func WithSourceThrottle(burst, rps float64) CollectorOption {
	return func(c *SignalCollector) {
		if burst > 0 {
			c.burst = burst
		}
		if rps > 0 {
			c.rps = rps
		}
	}
}

// NewSignalCollector creates a collector for the configured source set.
func NewSignalCollector(bus drepo.SignalBus, pipe *Pipeline, sources []string, metrics drepo.Metrics, log *logger.Logger, opts ...CollectorOption) *SignalCollector {
	c := &SignalCollector{
		bus:       bus,
		pipe:      pipe,
		metrics:   metrics,
		logger:    log,
		sources:   make(map[string]struct{}, len(sources)),
		queues:    make(map[string]chan *models.RawSignal, len(sources)),
		limiter:   ratelimit.New(),
		stopCh:    make(chan struct{}),
		workers:   4,
		queueSize: 64,
		burst:     5,
		rps:       2,
	}
	for _, s := range sources {
		c.sources[s] = struct{}{}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsConnected reports bus connectivity.
func (c *SignalCollector) IsConnected() bool {
	return c.bus.IsConnected()
}

// Start connects the bus and begins dispatching.
func (c *SignalCollector) Start(ctx context.Context) error {
	if err := c.bus.Connect(ctx); err != nil {
		return err
	}

	for source := range c.sources {
		q := make(chan *models.RawSignal, c.queueSize)
		c.queues[source] = q
		for i := 0; i < c.workers; i++ {
			c.wg.Add(1)
			go c.work(ctx, q)
		}
	}

	sigCh, errCh := c.bus.Read(ctx)
	go c.consume(ctx, sigCh, errCh)
	return nil
}

func (c *SignalCollector) work(ctx context.Context, q <-chan *models.RawSignal) {
	defer c.wg.Done()
	for sig := range q {
		c.pipe.Process(ctx, sig)
	}
}

// consume owns the per-source queues: it is the only sender and closes them
// when the loop exits, so a shutdown racing buffered bus deliveries can never
// send on a closed queue.
func (c *SignalCollector) consume(ctx context.Context, sigCh <-chan *models.RawSignal, errCh <-chan error) {
	defer func() {
		for _, q := range c.queues {
			close(q)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case err, ok := <-errCh:
			if !ok {
				return
			}
			if err != nil {
				c.metrics.RecordError("bus")
				c.logger.Warn("bus stream error, reconnecting", logger.Error(err))
				if rerr := c.bus.Reconnect(ctx); rerr != nil {
					c.logger.Error("bus reconnect failed", logger.Error(rerr))
				} else {
					sigCh, errCh = c.bus.Read(ctx)
				}
			}
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			if sig == nil {
				continue
			}
			c.dispatch(sig)
		}
	}
}

// dispatch applies the intake filters and hands the signal to its source
// queue. Dropping on a full queue keeps intake non-blocking so other sources
// keep flowing.
func (c *SignalCollector) dispatch(sig *models.RawSignal) {
	// structural guard: only configured sources pass
	if _, ok := c.sources[sig.SourceID]; !ok {
		c.metrics.RecordError("foreign_source")
		return
	}

	if strings.TrimSpace(sig.Text) == "" {
		c.logger.Debug("skipping empty message",
			logger.String("source", sig.SourceID),
			logger.Int64("message_id", sig.MessageID),
		)
		return
	}

	if !c.limiter.Allow(sig.SourceID, c.burst, c.rps) {
		c.metrics.RecordError("source_throttle")
		return
	}

	select {
	case c.queues[sig.SourceID] <- sig:
	default:
		c.metrics.RecordError("source_backpressure")
		c.logger.Warn("source queue full, dropping message",
			logger.String("source", sig.SourceID),
			logger.Int64("message_id", sig.MessageID),
		)
	}
}

// Shutdown stops intake, closes the bus and waits for in-flight messages to
// finish. The consume loop closes the queues on its way out; the workers then
// drain what is already queued.
func (c *SignalCollector) Shutdown(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stopCh)
		err = c.bus.Close()
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
		}
	})
	return err
}
