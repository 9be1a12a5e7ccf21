package ingestion

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
	"go.uber.org/zap"
)

// LifecycleEmitter is the narrow slice of cdc.Bus the coordinator needs:
// the ingestion lifecycle events. Kept as an interface so tests can
// substitute a recording fake without standing up a real journal.
type LifecycleEmitter interface {
	AnalysisStarted(batchID string) cdc.Event
	AnalysisProgress(batchID string, nodesProcessed, edgesProcessed int) cdc.Event
	AnalysisCompleted(batchID string, payload cdc.CompletedPayload) cdc.Event
	AnalysisFailed(batchID string, payload cdc.FailedPayload) cdc.Event
}

// Coordinator is the C7 Ingestion Coordinator: it drives one batch at a
// time through the graph store, emitting lifecycle events as it goes and
// rolling back to a pre-batch checkpoint on any failure.
type Coordinator struct {
	store  *graph.Store
	bus    LifecycleEmitter
	logger *zap.Logger

	progressInterval time.Duration
	batchDeadline    time.Duration
}

// NewCoordinator builds a Coordinator. progressRateLimitMs and
// batchDeadlineSeconds are the configuration options of the same name.
func NewCoordinator(store *graph.Store, bus LifecycleEmitter, progressRateLimitMs, batchDeadlineSeconds int, logger *zap.Logger) *Coordinator {
	if progressRateLimitMs <= 0 {
		progressRateLimitMs = 100
	}
	if batchDeadlineSeconds <= 0 {
		batchDeadlineSeconds = 300
	}
	return &Coordinator{
		store:            store,
		bus:              bus,
		logger:           logger,
		progressInterval: time.Duration(progressRateLimitMs) * time.Millisecond,
		batchDeadline:    time.Duration(batchDeadlineSeconds) * time.Second,
	}
}

// ApplyBatch reads one NDJSON batch stream to completion, applying its
// mutations to the store in the fixed order (§4.7) and emitting
// analysis_started/progress/completed/failed events. A parser error
// message, a malformed line, or an exceeded batch deadline rolls the
// batch back to its pre-batch checkpoint and returns a non-nil error; the
// graph is left exactly as it was before the batch began.
func (c *Coordinator) ApplyBatch(ctx context.Context, r io.Reader) (cdc.CompletedPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, c.batchDeadline)
	defer cancel()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var (
		batchID      string
		started      bool
		startedAt    time.Time
		buf          batch
		lastProgress time.Time
	)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return c.fail(batchID, "ingestion batch exceeded its deadline", apperrors.NewDeadlineExceeded("batch deadline exceeded"))
		default:
		}

		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return c.fail(batchID, "malformed parser message", apperrors.NewParserError("decode message", err))
		}

		if !started {
			batchID = msg.BatchID
			startedAt = time.Now()
			c.bus.AnalysisStarted(batchID)
			started = true
		}

		switch msg.Kind {
		case KindNode:
			var p NodePayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return c.fail(batchID, "malformed node payload", apperrors.NewParserError("decode node payload", err))
			}
			buf.nodeUpserts = append(buf.nodeUpserts, p.toNode())

		case KindEdge:
			var p EdgePayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return c.fail(batchID, "malformed edge payload", apperrors.NewParserError("decode edge payload", err))
			}
			buf.relUpserts = append(buf.relUpserts, p.toRelationship())

		case KindDelete:
			var p DeletePayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return c.fail(batchID, "malformed delete payload", apperrors.NewParserError("decode delete payload", err))
			}
			switch p.Type {
			case "node":
				buf.nodeDeletes = append(buf.nodeDeletes, p.ID)
			case "edge":
				if p.Triple == nil {
					return c.fail(batchID, "edge delete missing triple", apperrors.NewParserError("missing triple", nil))
				}
				buf.relDeletes = append(buf.relDeletes, relationshipDelete{
					sourceID: p.Triple.SourceID,
					targetID: p.Triple.TargetID,
					typ:      graph.RelationshipType(p.Triple.Type),
				})
			default:
				return c.fail(batchID, "unknown delete type "+p.Type, apperrors.NewParserError("unknown delete type", nil))
			}

		case KindProgress:
			var p cdc.ProgressPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return c.fail(batchID, "malformed progress payload", apperrors.NewParserError("decode progress payload", err))
			}
			if time.Since(lastProgress) >= c.progressInterval {
				c.bus.AnalysisProgress(batchID, p.NodesProcessed, p.EdgesProcessed)
				lastProgress = time.Now()
			}

		case KindError:
			var p ErrorPayload
			_ = json.Unmarshal(msg.Payload, &p)
			if p.Reason == "" {
				p.Reason = "parser reported an error"
			}
			return c.fail(batchID, p.Reason, apperrors.NewParserError(p.Reason, nil))

		case KindEnd:
			return c.commit(batchID, buf, startedAt)

		default:
			return c.fail(batchID, "unknown message kind "+string(msg.Kind), apperrors.NewParserError("unknown message kind", nil))
		}
	}

	if err := scanner.Err(); err != nil {
		return c.fail(batchID, "parser stream read error", apperrors.NewParserError("read stream", err))
	}
	return c.fail(batchID, "parser stream ended without an end message", apperrors.NewParserError("missing end message", nil))
}

// commit applies the buffered batch to the store in the fixed order,
// rolling back to a pre-commit checkpoint on the first failure.
func (c *Coordinator) commit(batchID string, buf batch, startedAt time.Time) (cdc.CompletedPayload, error) {
	checkpoint := c.store.Checkpoint()

	var nodesProcessed, edgesProcessed int

	for _, n := range buf.nodeUpserts {
		if _, err := c.store.UpsertNode(n); err != nil {
			c.store.Restore(checkpoint)
			return c.fail(batchID, "node upsert failed", err)
		}
		nodesProcessed++
	}
	for _, r := range buf.relUpserts {
		if _, err := c.store.UpsertRelationship(r); err != nil {
			c.store.Restore(checkpoint)
			return c.fail(batchID, "relationship upsert failed", err)
		}
		edgesProcessed++
	}
	for _, d := range buf.relDeletes {
		if _, err := c.store.RemoveRelationship(d.sourceID, d.targetID, d.typ); err != nil {
			c.store.Restore(checkpoint)
			return c.fail(batchID, "relationship delete failed", err)
		}
		edgesProcessed++
	}
	for _, id := range buf.nodeDeletes {
		if _, err := c.store.RemoveNode(id); err != nil {
			c.store.Restore(checkpoint)
			return c.fail(batchID, "node delete failed", err)
		}
		nodesProcessed++
	}

	payload := cdc.CompletedPayload{
		NodesProcessed: nodesProcessed,
		EdgesProcessed: edgesProcessed,
		Duration:       time.Since(startedAt),
	}
	c.bus.AnalysisCompleted(batchID, payload)
	return payload, nil
}

// fail emits analysis_failed and returns the triggering error; the
// caller has either not mutated the store yet or has already rolled it
// back via Restore.
func (c *Coordinator) fail(batchID, reason string, err error) (cdc.CompletedPayload, error) {
	c.bus.AnalysisFailed(batchID, cdc.FailedPayload{Reason: reason, RolledBack: true})
	if c.logger != nil {
		c.logger.Error("ingestion batch rolled back",
			zap.String("batchId", batchID),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
	return cdc.CompletedPayload{}, apperrors.Wrap(apperrors.KindBatchRolledBack, reason, err)
}
