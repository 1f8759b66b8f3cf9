package biometric

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"verox/go-wallet/internal/metrics"
	"verox/go-wallet/internal/platform/logging"
)

const DefaultPromptTimeout = 60 * time.Second

// Gate runs one native prompt at a time and waits for its answer under a
// deadline. Each Prompt owns its result channel, so an answer that arrives
// after the caller gave up is dropped with that channel.
type Gate struct {
	native  Native
	slot    chan struct{}
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func NewGate(native Native, logger *slog.Logger, rec *metrics.Recorder) *Gate {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Gate{
		native:  native,
		slot:    make(chan struct{}, 1),
		logger:  logger,
		metrics: rec,
	}
}

// Prompt shows reason to the user and blocks until the platform answers,
// timeout elapses or ctx is done. Waiting for a prompt already in progress
// counts against the same timeout.
func (g *Gate) Prompt(ctx context.Context, reason string, timeout time.Duration) Outcome {
	if timeout <= 0 {
		timeout = DefaultPromptTimeout
	}
	if err := ctx.Err(); err != nil {
		return g.finish(Outcome{Kind: OutcomeCancelled, Reason: err.Error()})
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case g.slot <- struct{}{}:
	case <-timer.C:
		return g.finish(Outcome{Kind: OutcomeTimedOut, Reason: "another prompt is in progress"})
	case <-ctx.Done():
		return g.finish(Outcome{Kind: OutcomeCancelled, Reason: ctx.Err().Error()})
	}
	defer func() { <-g.slot }()

	result := make(chan Outcome, 1)
	var once sync.Once
	deliver := func(o Outcome) {
		once.Do(func() { result <- o })
	}

	if err := g.native.Evaluate(reason, deliver); err != nil {
		if errors.Is(err, ErrCapabilityUnavailable) {
			return g.finish(Outcome{Kind: OutcomeUnavailable, Reason: "no biometric method on this platform"})
		}
		return g.finish(Outcome{Kind: OutcomeUnavailable, Reason: err.Error()})
	}

	select {
	case o := <-result:
		return g.finish(o)
	case <-timer.C:
		return g.finish(Outcome{Kind: OutcomeTimedOut, Reason: "no response within " + timeout.String()})
	case <-ctx.Done():
		return g.finish(Outcome{Kind: OutcomeCancelled, Reason: ctx.Err().Error()})
	}
}

func (g *Gate) finish(o Outcome) Outcome {
	g.metrics.Prompt(o.Kind.String())
	g.logger.Debug("biometric prompt finished",
		"component", componentName,
		"operation", "prompt",
		"method", g.native.Name(),
		"outcome", o.Kind.String())
	return o
}
