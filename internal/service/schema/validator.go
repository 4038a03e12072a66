// Package schema turns raw oracle replies into well-formed signals. It is the
// deterministic half of normalization: the oracle extracts, this package
// checks field completeness, enforces numeric ordering and repairs or rejects.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"SignalRelay/internal/domain/models"

	"github.com/shopspring/decimal"
)

// ErrMissingCore marks a reply missing asset, side or entry.
var ErrMissingCore = errors.New("schema: missing core field")

// BadNumberError marks a present field that does not parse as a decimal. The
// whole signal is rejected rather than partially forwarded.
type BadNumberError struct {
	Field string
	Value string
	Err   error
}

func (e *BadNumberError) Error() string {
	return fmt.Sprintf("schema: bad number in %s: %q", e.Field, e.Value)
}

func (e *BadNumberError) Unwrap() error { return e.Err }

// Validator validates and repairs oracle replies. It is stateless.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// Validate checks the reply and produces a FormattedSignal. Every signal
// returned satisfies EntryLow <= EntryHigh with a non-empty asset and a valid
// side, regardless of the order the oracle emitted the entry bounds.
func (v *Validator) Validate(reply *models.OracleReply) (*models.FormattedSignal, error) {
	asset := strings.TrimSpace(reply.Asset)
	if asset == "" {
		return nil, fmt.Errorf("%w: asset", ErrMissingCore)
	}

	side, err := parseSide(reply.Side)
	if err != nil {
		return nil, err
	}

	low, high, err := parseEntry(reply.Entry)
	if err != nil {
		return nil, err
	}

	sig := &models.FormattedSignal{
		Asset:     asset,
		Side:      side,
		EntryLow:  low,
		EntryHigh: high,
		Immediate: strings.EqualFold(strings.TrimSpace(reply.At), "NOW"),
	}

	if sl := strings.TrimSpace(reply.StopLoss); sl != "" {
		d, err := parseDecimal("stop_loss", sl)
		if err != nil {
			return nil, err
		}
		sig.StopLoss = &d
	}

	// Take-profit targets stay in the order the oracle gave them.
	for _, tp := range reply.TakeProfits {
		tp = strings.TrimSpace(tp)
		if tp == "" {
			continue
		}
		d, err := parseDecimal("take_profits", tp)
		if err != nil {
			return nil, err
		}
		sig.TakeProfits = append(sig.TakeProfits, d)
	}

	return sig, nil
}

func parseSide(raw string) (models.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(models.SideBuy):
		return models.SideBuy, nil
	case string(models.SideSell):
		return models.SideSell, nil
	case "":
		return "", fmt.Errorf("%w: side", ErrMissingCore)
	default:
		return "", fmt.Errorf("%w: side %q", ErrMissingCore, raw)
	}
}

// parseEntry applies the price-range reordering repair: with two bounds the
// lower value always comes first, whatever order the oracle emitted them.
func parseEntry(raw []string) (low, high decimal.Decimal, err error) {
	values := make([]decimal.Decimal, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		d, perr := parseDecimal("entry", s)
		if perr != nil {
			return low, high, perr
		}
		values = append(values, d)
	}

	switch len(values) {
	case 1:
		return values[0], values[0], nil
	case 2:
		if values[0].GreaterThan(values[1]) {
			return values[1], values[0], nil
		}
		return values[0], values[1], nil
	default:
		return low, high, fmt.Errorf("%w: entry (got %d values)", ErrMissingCore, len(values))
	}
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &BadNumberError{Field: field, Value: s, Err: err}
	}
	return d, nil
}
