package models

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the trade direction of a signal.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// RawSignal is one message as received from a monitored source group.
// It is owned exclusively by the pipeline invocation processing it.
type RawSignal struct {
	SourceID   string
	MessageID  int64
	Text       string
	ReceivedAt time.Time
	TraceID    string
}

// NewRawSignal builds a RawSignal with a fresh trace ID for log correlation.
func NewRawSignal(sourceID string, messageID int64, text string, receivedAt time.Time) *RawSignal {
	return &RawSignal{
		SourceID:   sourceID,
		MessageID:  messageID,
		Text:       text,
		ReceivedAt: receivedAt,
		TraceID:    uuid.NewString(),
	}
}

// OracleReply is the structured output of the formatting oracle, exactly as
// emitted. Numeric fields stay strings here: the oracle carries no ordering
// or completeness guarantee, and the validator must see the raw digits.
type OracleReply struct {
	Valid       bool     `json:"valid"`
	Reason      string   `json:"reason,omitempty"`
	Asset       string   `json:"asset,omitempty"`
	Side        string   `json:"side,omitempty"`
	Entry       []string `json:"entry,omitempty"`
	StopLoss    string   `json:"stop_loss,omitempty"`
	TakeProfits []string `json:"take_profits,omitempty"`
	At          string   `json:"at,omitempty"`
}

// FormattedSignal is a validated, repaired signal ready for rendering.
// Invariant: EntryLow <= EntryHigh.
type FormattedSignal struct {
	Asset       string
	Side        Side
	EntryLow    decimal.Decimal
	EntryHigh   decimal.Decimal
	StopLoss    *decimal.Decimal
	TakeProfits []decimal.Decimal
	Immediate   bool
	SourceID    string
	MessageID   int64
}

// Render produces the exact destination-group text.
//
// Policy decisions (see DESIGN.md): a single entry price renders without the
// range dash; the Stop Loss line is omitted when absent; the Take Profit line
// is always present, values in given order, and renders as a bare label when
// there are no targets; "At: NOW" trails the block for immediate signals.
func (s *FormattedSignal) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Asset: %s\n", s.Asset)
	fmt.Fprintf(&b, "Type: %s\n", s.Side)

	if s.EntryLow.Equal(s.EntryHigh) {
		fmt.Fprintf(&b, "Entry: %s\n", s.EntryLow.String())
	} else {
		fmt.Fprintf(&b, "Entry: %s - %s\n", s.EntryLow.String(), s.EntryHigh.String())
	}

	if s.StopLoss != nil {
		fmt.Fprintf(&b, "Stop Loss: %s\n", s.StopLoss.String())
	}

	b.WriteString("Take Profit:")
	for _, tp := range s.TakeProfits {
		b.WriteString(" ")
		b.WriteString(tp.String())
	}

	if s.Immediate {
		b.WriteString("\nAt: NOW")
	}

	return b.String()
}

// DedupKey derives the idempotency key for a raw signal. The content hash
// catches edited or resent duplicates that reuse the same message ID.
func DedupKey(sourceID string, messageID int64, text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return fmt.Sprintf("src:%s:%d:%x", sourceID, messageID, h.Sum64())
}
