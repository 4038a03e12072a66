package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func timeNow() time.Time { return time.Now() }

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestRenderRange(t *testing.T) {
	sl := dec(t, "2925")
	sig := &FormattedSignal{
		Asset:       "Gold",
		Side:        SideBuy,
		EntryLow:    dec(t, "2927"),
		EntryHigh:   dec(t, "2931"),
		StopLoss:    &sl,
		TakeProfits: []decimal.Decimal{dec(t, "2932.5"), dec(t, "2935")},
	}

	want := "Asset: Gold\nType: BUY\nEntry: 2927 - 2931\nStop Loss: 2925\nTake Profit: 2932.5 2935"
	if got := sig.Render(); got != want {
		t.Fatalf("render mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderSingleEntryNoDash(t *testing.T) {
	sig := &FormattedSignal{
		Asset:       "EURUSD",
		Side:        SideSell,
		EntryLow:    dec(t, "1.0840"),
		EntryHigh:   dec(t, "1.0840"),
		TakeProfits: []decimal.Decimal{dec(t, "1.0810")},
	}

	want := "Asset: EURUSD\nType: SELL\nEntry: 1.084\nTake Profit: 1.081"
	if got := sig.Render(); got != want {
		t.Fatalf("render mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderEmptyTakeProfitKeepsLine(t *testing.T) {
	sig := &FormattedSignal{
		Asset:     "BTCUSDT",
		Side:      SideBuy,
		EntryLow:  dec(t, "64000"),
		EntryHigh: dec(t, "64500"),
	}

	want := "Asset: BTCUSDT\nType: BUY\nEntry: 64000 - 64500\nTake Profit:"
	if got := sig.Render(); got != want {
		t.Fatalf("render mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderImmediate(t *testing.T) {
	sig := &FormattedSignal{
		Asset:     "Gold",
		Side:      SideBuy,
		EntryLow:  dec(t, "2930"),
		EntryHigh: dec(t, "2930"),
		Immediate: true,
	}

	want := "Asset: Gold\nType: BUY\nEntry: 2930\nTake Profit:\nAt: NOW"
	if got := sig.Render(); got != want {
		t.Fatalf("render mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestDedupKeyStableAndContentSensitive(t *testing.T) {
	a := DedupKey("src1", 42, "Buy Gold @2931")
	b := DedupKey("src1", 42, "Buy Gold @2931")
	if a != b {
		t.Fatalf("same input must yield same key: %s vs %s", a, b)
	}

	edited := DedupKey("src1", 42, "Buy Gold @2932")
	if a == edited {
		t.Fatalf("edited text must change the key")
	}

	other := DedupKey("src2", 42, "Buy Gold @2931")
	if a == other {
		t.Fatalf("different source must change the key")
	}
}

func TestNewRawSignalAssignsTraceID(t *testing.T) {
	s1 := NewRawSignal("src", 1, "text", timeNow())
	s2 := NewRawSignal("src", 1, "text", timeNow())
	if s1.TraceID == "" || s1.TraceID == s2.TraceID {
		t.Fatalf("expected distinct non-empty trace ids, got %q and %q", s1.TraceID, s2.TraceID)
	}
}
