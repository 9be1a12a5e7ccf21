package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ParserInvoker runs the external parser collaborator as a subprocess
// and feeds its stdout (the NDJSON batch stream of §6) to a Coordinator.
// Invocations are wrapped in a circuit breaker so a crash-looping parser
// stops being retried on every ForceReanalysis call instead of spinning
// the engine.
type ParserInvoker struct {
	command     []string
	coordinator *Coordinator
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

// NewParserInvoker builds an invoker for the given command line (e.g.
// ["parser", "--workspace", root]).
func NewParserInvoker(command []string, coordinator *Coordinator, logger *zap.Logger) *ParserInvoker {
	st := gobreaker.Settings{
		Name:        "parser-collaborator",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("parser circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			}
		},
	}
	return &ParserInvoker{
		command:     command,
		coordinator: coordinator,
		breaker:     gobreaker.NewCircuitBreaker(st),
		logger:      logger,
	}
}

// Run executes the parser once and applies the batch it produces. It
// returns the circuit breaker's own error (gobreaker.ErrOpenState,
// gobreaker.ErrTooManyRequests) when the breaker refuses the call
// without running the parser at all.
func (p *ParserInvoker) Run(ctx context.Context) (cdc.CompletedPayload, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.invoke(ctx)
	})
	if err != nil {
		var zero cdc.CompletedPayload
		return zero, err
	}
	return result.(cdc.CompletedPayload), nil
}

func (p *ParserInvoker) invoke(ctx context.Context) (cdc.CompletedPayload, error) {
	if len(p.command) == 0 {
		return cdc.CompletedPayload{}, fmt.Errorf("no parser command configured")
	}

	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return cdc.CompletedPayload{}, fmt.Errorf("parser stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return cdc.CompletedPayload{}, fmt.Errorf("parser start: %w", err)
	}

	payload, applyErr := p.coordinator.ApplyBatch(ctx, stdout)
	waitErr := cmd.Wait()

	if applyErr != nil {
		return payload, applyErr
	}
	if waitErr != nil {
		if p.logger != nil {
			p.logger.Error("parser process exited with error",
				zap.Error(waitErr),
				zap.String("stderr", stderr.String()),
			)
		}
		return payload, fmt.Errorf("parser process: %w", waitErr)
	}
	return payload, nil
}
