package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	"SignalRelay/internal/service/forwarder"
	"SignalRelay/internal/service/schema"
	"SignalRelay/pkg/logger"
)

// Pipeline composes the per-message flow:
// receive -> format (oracle) -> validate/repair -> dedup -> forward.
// It is stateless across messages except for the injected dedup sequencer.
type Pipeline struct {
	oracle    drepo.Oracle
	validator *schema.Validator
	dedup     drepo.Deduper
	fwd       *forwarder.Forwarder
	metrics   drepo.Metrics
	logger    *logger.Logger
	journal   *Journal

	msgTimeout        time.Duration
	oracleMaxAttempts int
	oracleBackoffMin  time.Duration
	oracleBackoffMax  time.Duration
}

// PipelineOption configures Pipeline.
type PipelineOption func(*Pipeline)

// WithMessageTimeout bounds one message's oracle plus forward budget.
func WithMessageTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.msgTimeout = d
		}
	}
}

// WithOracleRetry sets the oracle attempt ceiling and backoff range.
func WithOracleRetry(maxAttempts int, backoffMin, backoffMax time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if maxAttempts > 0 {
			p.oracleMaxAttempts = maxAttempts
		}
		if backoffMin > 0 {
			p.oracleBackoffMin = backoffMin
		}
		if backoffMax > 0 {
			p.oracleBackoffMax = backoffMax
		}
	}
}

// NewPipeline creates the orchestrator.
func NewPipeline(
	oracle drepo.Oracle,
	validator *schema.Validator,
	dedup drepo.Deduper,
	fwd *forwarder.Forwarder,
	metrics drepo.Metrics,
	log *logger.Logger,
	journal *Journal,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		oracle:            oracle,
		validator:         validator,
		dedup:             dedup,
		fwd:               fwd,
		metrics:           metrics,
		logger:            log,
		journal:           journal,
		msgTimeout:        45 * time.Second,
		oracleMaxAttempts: 3,
		oracleBackoffMin:  500 * time.Millisecond,
		oracleBackoffMax:  5 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Process runs one raw signal through the pipeline and returns its terminal
// result. Every error is converted here; none escapes to the caller.
func (p *Pipeline) Process(ctx context.Context, sig *models.RawSignal) models.PipelineResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.msgTimeout)
	defer cancel()

	p.metrics.RecordReceived(sig.SourceID)

	res := p.run(ctx, sig)
	res.SourceID = sig.SourceID
	res.MessageID = sig.MessageID
	res.TraceID = sig.TraceID
	res.At = time.Now()
	res.Elapsed = time.Since(start)

	p.metrics.RecordOutcome(string(res.Outcome))
	if p.journal != nil {
		p.journal.Record(res)
	}
	p.log(res)

	return res
}

func (p *Pipeline) run(ctx context.Context, sig *models.RawSignal) models.PipelineResult {
	// Formatted
	reply, err := p.format(ctx, sig.Text)
	if err != nil {
		if errors.Is(err, drepo.ErrOracleMalformed) {
			p.metrics.RecordError("oracle_malformed")
			return models.PipelineResult{Outcome: models.OutcomeRejected, Reason: "oracle malformed reply"}
		}
		p.metrics.RecordError("oracle_unavailable")
		return models.PipelineResult{Outcome: models.OutcomeFailed, Reason: fmt.Sprintf("oracle: %v", err)}
	}

	// The oracle judged the text to be chatter, not a signal.
	if !reply.Valid {
		return models.PipelineResult{Outcome: models.OutcomeSkipped, Reason: reply.Reason}
	}

	// Validated
	formatted, err := p.validator.Validate(reply)
	if err != nil {
		p.metrics.RecordError("validation")
		return models.PipelineResult{Outcome: models.OutcomeRejected, Reason: err.Error()}
	}
	formatted.SourceID = sig.SourceID
	formatted.MessageID = sig.MessageID

	// Deduped. On cache failure the relay fails open: a rare duplicate beats
	// silently dropping live signals.
	key := models.DedupKey(sig.SourceID, sig.MessageID, sig.Text)
	admitted, err := p.dedup.Admit(ctx, key)
	if err != nil {
		p.metrics.RecordError("dedup")
		p.logger.Warn("dedup admit failed, forwarding anyway", logger.Error(err), logger.String("trace_id", sig.TraceID))
		admitted = true
	}
	if !admitted {
		return models.PipelineResult{Outcome: models.OutcomeSkipped, Reason: "duplicate", Signal: formatted}
	}

	// Forwarded
	if err := p.fwd.Deliver(ctx, formatted.Render()); err != nil {
		return models.PipelineResult{Outcome: models.OutcomeFailed, Reason: fmt.Sprintf("forward: %v", err), Signal: formatted}
	}

	p.metrics.RecordForwarded(sig.SourceID, formatted.Asset)
	return models.PipelineResult{Outcome: models.OutcomeForwarded, Signal: formatted}
}

// format calls the oracle, retrying unavailable and rate-limited errors with
// backoff up to the attempt ceiling. Malformed replies never retry.
func (p *Pipeline) format(ctx context.Context, text string) (*models.OracleReply, error) {
	backoff := p.oracleBackoffMin
	var lastErr error

	for attempt := 1; attempt <= p.oracleMaxAttempts; attempt++ {
		start := time.Now()
		reply, err := p.oracle.Format(ctx, text)
		p.metrics.RecordLatency("oracle", time.Since(start).Seconds())
		if err == nil {
			return reply, nil
		}
		if errors.Is(err, drepo.ErrOracleMalformed) {
			return nil, err
		}

		lastErr = err
		if attempt == p.oracleMaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < p.oracleBackoffMax {
			backoff *= 2
			if backoff > p.oracleBackoffMax {
				backoff = p.oracleBackoffMax
			}
		}
	}

	return nil, fmt.Errorf("%d attempts exhausted: %w", p.oracleMaxAttempts, lastErr)
}

func (p *Pipeline) log(res models.PipelineResult) {
	fields := []logger.Field{
		logger.String("outcome", string(res.Outcome)),
		logger.String("source", res.SourceID),
		logger.Int64("message_id", res.MessageID),
		logger.String("trace_id", res.TraceID),
		logger.Duration("elapsed", res.Elapsed),
	}
	if res.Reason != "" {
		fields = append(fields, logger.String("reason", res.Reason))
	}

	switch res.Outcome {
	case models.OutcomeForwarded:
		p.logger.Info("signal forwarded", fields...)
	case models.OutcomeSkipped:
		p.logger.Debug("signal skipped", fields...)
	default:
		p.logger.Warn("signal dropped", fields...)
	}
}
