package forwarder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	drepo "SignalRelay/internal/domain/repository"
	"SignalRelay/pkg/logger"
)

type fakePublisher struct {
	calls   int
	errs    []error // error per call; nil slice entry means success
	lastMsg string
}

func (f *fakePublisher) Publish(_ context.Context, _, text string) error {
	f.calls++
	f.lastMsg = text
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordReceived(string)         {}
func (nopMetrics) RecordOutcome(string)          {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordForwarded(string, string) {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newForwarder(t *testing.T, pub drepo.Publisher, attempts int) *Forwarder {
	t.Helper()
	return New(pub, "dest", nopMetrics{}, testLogger(t),
		WithRetry(attempts, time.Millisecond, 2*time.Millisecond),
	)
}

func TestDeliverSucceedsFirstTry(t *testing.T) {
	pub := &fakePublisher{}
	f := newForwarder(t, pub, 3)

	if err := f.Deliver(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("got %d calls, want 1", pub.calls)
	}
	if pub.lastMsg != "hello" {
		t.Fatalf("got %q, want %q", pub.lastMsg, "hello")
	}
}

func TestDeliverRetriesTransient(t *testing.T) {
	transient := fmt.Errorf("%w: hiccup", drepo.ErrPublishTransient)
	pub := &fakePublisher{errs: []error{transient, transient}}
	f := newForwarder(t, pub, 4)

	if err := f.Deliver(context.Background(), "msg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.calls != 3 {
		t.Fatalf("got %d calls, want 3", pub.calls)
	}
}

func TestDeliverStopsOnPermanent(t *testing.T) {
	permanent := fmt.Errorf("%w: bot removed", drepo.ErrPublishPermanent)
	pub := &fakePublisher{errs: []error{permanent}}
	f := newForwarder(t, pub, 4)

	err := f.Deliver(context.Background(), "msg")
	if !errors.Is(err, drepo.ErrPublishPermanent) {
		t.Fatalf("want permanent error, got %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("permanent error must not retry: got %d calls", pub.calls)
	}
}

func TestDeliverExhaustsCeiling(t *testing.T) {
	transient := fmt.Errorf("%w: down", drepo.ErrPublishTransient)
	pub := &fakePublisher{errs: []error{transient, transient, transient, transient, transient}}
	f := newForwarder(t, pub, 3)

	err := f.Deliver(context.Background(), "msg")
	if err == nil {
		t.Fatalf("expected error after ceiling")
	}
	if !errors.Is(err, drepo.ErrPublishTransient) {
		t.Fatalf("want wrapped transient error, got %v", err)
	}
	if pub.calls != 3 {
		t.Fatalf("got %d calls, want exactly 3", pub.calls)
	}
}
