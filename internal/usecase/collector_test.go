package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	"SignalRelay/internal/service/dedup"
	"SignalRelay/internal/service/forwarder"
	"SignalRelay/internal/service/schema"
	"SignalRelay/pkg/cache"
)

type fakeBus struct {
	sigCh     chan *models.RawSignal
	errCh     chan error
	connected atomic.Bool
	closed    atomic.Bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		sigCh: make(chan *models.RawSignal, 32),
		errCh: make(chan error, 1),
	}
}

func (b *fakeBus) Connect(context.Context) error {
	b.connected.Store(true)
	return nil
}

func (b *fakeBus) Read(context.Context) (<-chan *models.RawSignal, <-chan error) {
	return b.sigCh, b.errCh
}

func (b *fakeBus) Reconnect(context.Context) error {
	b.connected.Store(true)
	return nil
}

func (b *fakeBus) Close() error {
	b.closed.Store(true)
	b.connected.Store(false)
	close(b.sigCh)
	return nil
}

func (b *fakeBus) IsConnected() bool { return b.connected.Load() }

func newCollector(t *testing.T, bus drepo.SignalBus, pub *capturePublisher, sources []string) *SignalCollector {
	t.Helper()
	log := testLogger(t)
	fwd := forwarder.New(pub, "dest", nopMetrics{}, log,
		forwarder.WithRetry(2, time.Millisecond, 2*time.Millisecond))
	pipe := NewPipeline(&stubOracle{reply: goldReply()}, schema.NewValidator(),
		dedup.New(cache.NewMemoryCache(), time.Minute), fwd, nopMetrics{}, log, NewJournal(16))
	return NewSignalCollector(bus, pipe, sources, nopMetrics{}, log,
		WithSourceWorkers(2),
		WithSourceQueue(8),
		WithSourceThrottle(100, 100),
	)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestCollectorForwardsMonitoredSource(t *testing.T) {
	bus := newFakeBus()
	pub := &capturePublisher{}
	c := newCollector(t, bus, pub, []string{"src-1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	bus.sigCh <- models.NewRawSignal("src-1", 1, "Buy Gold @2931-2927", time.Now())
	waitFor(t, func() bool { return len(pub.messages()) == 1 })

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !bus.closed.Load() {
		t.Fatalf("shutdown must close the bus")
	}
}

func TestCollectorIgnoresForeignSources(t *testing.T) {
	bus := newFakeBus()
	pub := &capturePublisher{}
	c := newCollector(t, bus, pub, []string{"src-1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	bus.sigCh <- models.NewRawSignal("src-other", 1, "Buy Gold @2931-2927", time.Now())
	bus.sigCh <- models.NewRawSignal("src-1", 2, "Buy Gold @2931-2927", time.Now())
	waitFor(t, func() bool { return len(pub.messages()) == 1 })

	// the foreign-source message must never reach the publisher
	time.Sleep(20 * time.Millisecond)
	if got := len(pub.messages()); got != 1 {
		t.Fatalf("got %d publishes, want 1", got)
	}
	_ = c.Shutdown(context.Background())
}

func TestCollectorSkipsEmptyMessages(t *testing.T) {
	bus := newFakeBus()
	pub := &capturePublisher{}
	c := newCollector(t, bus, pub, []string{"src-1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	bus.sigCh <- models.NewRawSignal("src-1", 1, "   ", time.Now())
	bus.sigCh <- models.NewRawSignal("src-1", 2, "Buy Gold @2931-2927", time.Now())
	waitFor(t, func() bool { return len(pub.messages()) == 1 })

	time.Sleep(20 * time.Millisecond)
	if got := len(pub.messages()); got != 1 {
		t.Fatalf("got %d publishes, want 1", got)
	}
	_ = c.Shutdown(context.Background())
}

// drainingBus models a stream whose read pump keeps flushing buffered frames
// for a short while after Close returns, the way a deep channel buffer does.
type drainingBus struct {
	sigCh     chan *models.RawSignal
	errCh     chan error
	connected atomic.Bool
}

func newDrainingBus() *drainingBus {
	return &drainingBus{
		sigCh: make(chan *models.RawSignal, 256),
		errCh: make(chan error, 1),
	}
}

func (b *drainingBus) Connect(context.Context) error {
	b.connected.Store(true)
	return nil
}

func (b *drainingBus) Read(context.Context) (<-chan *models.RawSignal, <-chan error) {
	return b.sigCh, b.errCh
}

func (b *drainingBus) Reconnect(context.Context) error { return nil }

func (b *drainingBus) Close() error {
	b.connected.Store(false)
	go func() {
		for i := 0; i < 200; i++ {
			select {
			case b.sigCh <- models.NewRawSignal("src-1", int64(1000+i), "Buy Gold @2931-2927", time.Now()):
			default:
			}
			time.Sleep(50 * time.Microsecond)
		}
	}()
	return nil
}

func (b *drainingBus) IsConnected() bool { return b.connected.Load() }

func TestCollectorShutdownWhileBusDelivering(t *testing.T) {
	bus := newDrainingBus()
	c := newCollector(t, bus, &capturePublisher{}, []string{"src-1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 64; i++ {
		bus.sigCh <- models.NewRawSignal("src-1", int64(i), "Buy Gold @2931-2927", time.Now())
	}

	// Shutdown races the still-delivering stream; a send on a closed queue
	// would panic the process and fail this test.
	sdCtx, sdCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer sdCancel()
	if err := c.Shutdown(sdCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	time.Sleep(20 * time.Millisecond) // let the pump finish flushing
}

func TestCollectorReportsBusConnectivity(t *testing.T) {
	bus := newFakeBus()
	c := newCollector(t, bus, &capturePublisher{}, []string{"src-1"})

	if c.IsConnected() {
		t.Fatalf("collector must report disconnected before start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("collector must report connected after start")
	}
	_ = c.Shutdown(context.Background())
	if c.IsConnected() {
		t.Fatalf("collector must report disconnected after shutdown")
	}
}
