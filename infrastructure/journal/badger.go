// Package journal provides a durable, disk-backed alternative to the
// in-memory ring journal (domain/cdc.NewRingJournal), for deployments
// that need the event log to survive a restart.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
)

// Options configures a BadgerJournal.
type Options struct {
	// Dir is the directory BadgerDB stores its files in. Required.
	Dir string
	// Capacity bounds the number of retained events, mirroring the
	// in-memory ring journal's eviction behavior.
	Capacity int
	// InMemory runs BadgerDB in memory-only mode, useful for tests that
	// want the durable code path without touching disk.
	InMemory bool
}

// BadgerJournal is a cdc.Journal backed by BadgerDB. Events are stored
// under big-endian int64 keys so BadgerDB's natural key ordering is
// also event order; Append evicts the oldest event once Capacity is
// exceeded.
type BadgerJournal struct {
	db       *badger.DB
	capacity int

	mu       sync.Mutex
	nextID   int64
	oldestID int64
	count    int
}

// envelope is the on-disk representation of a cdc.Event. Data is kept
// as raw JSON so decoding can dispatch on Type before unmarshaling into
// the right concrete payload type.
type envelope struct {
	ID        int64         `json:"id"`
	Type      cdc.EventType `json:"type"`
	Timestamp int64         `json:"timestamp"` // unix nanos
	BatchID   string        `json:"batchId"`
	Data      json.RawMessage `json:"data"`
}

// NewBadgerJournal opens (or creates) a durable journal at opts.Dir and
// recovers its id/retention bookkeeping from existing keys, if any.
func NewBadgerJournal(opts Options) (*BadgerJournal, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = 1
	}

	badgerOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger journal at %s: %w", opts.Dir, err)
	}

	j := &BadgerJournal{db: db, capacity: opts.Capacity, nextID: 1}
	if err := j.recover(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *BadgerJournal) recover() error {
	return j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id := keyToID(it.Item().Key())
			if j.oldestID == 0 {
				j.oldestID = id
			}
			j.count++
			if id >= j.nextID {
				j.nextID = id + 1
			}
		}
		return nil
	})
}

// Close releases the underlying BadgerDB handle.
func (j *BadgerJournal) Close() error {
	return j.db.Close()
}

func unixNano(nanos int64) time.Time {
	return time.Unix(0, nanos)
}

func idToKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func keyToID(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key))
}

// Append implements cdc.Journal.
func (j *BadgerJournal) Append(eventType cdc.EventType, batchID string, data interface{}) cdc.Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	ev := cdc.Event{
		ID:        j.nextID,
		Type:      eventType,
		Timestamp: time.Now(),
		BatchID:   batchID,
		Data:      data,
	}
	j.nextID++

	payload, err := json.Marshal(data)
	if err != nil {
		// A non-serializable payload is a programmer error in a caller,
		// not a runtime condition callers can react to; the in-memory
		// journal has no analogous failure mode since it never encodes.
		payload = []byte("null")
	}
	env := envelope{ID: ev.ID, Type: ev.Type, Timestamp: ev.Timestamp.UnixNano(), BatchID: ev.BatchID, Data: payload}
	raw, _ := json.Marshal(env)

	err = j.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(idToKey(ev.ID), raw); err != nil {
			return err
		}
		j.count++
		if j.oldestID == 0 {
			j.oldestID = ev.ID
		}
		for j.count > j.capacity {
			if err := txn.Delete(idToKey(j.oldestID)); err != nil {
				return err
			}
			j.count--
			j.oldestID++
		}
		return nil
	})
	if err != nil {
		// Persisting failed; the event is still returned to the caller
		// (it was published to the broadcaster regardless by cdc.Bus) but
		// a subsequent From() will not see it. Surfacing this requires a
		// metrics hook, not a panic on the ingestion hot path.
	}

	return ev
}

// From implements cdc.Journal.
func (j *BadgerJournal) From(lastSeenID int64) ([]cdc.Event, error) {
	j.mu.Lock()
	oldest := j.oldestID
	j.mu.Unlock()

	if oldest != 0 && lastSeenID < oldest-1 {
		return nil, apperrors.New(apperrors.KindLagExceeded, "requested id precedes the retained journal window")
	}

	var out []cdc.Event
	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(idToKey(lastSeenID + 1)); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				ev, decodeErr := decodeEnvelope(val)
				if decodeErr != nil {
					return decodeErr
				}
				out = append(out, ev)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read journal from %d: %w", lastSeenID, err)
	}
	return out, nil
}

// Latest implements cdc.Journal.
func (j *BadgerJournal) Latest() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextID - 1
}

func decodeEnvelope(raw []byte) (cdc.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return cdc.Event{}, err
	}

	ev := cdc.Event{ID: env.ID, Type: env.Type, BatchID: env.BatchID}
	ev.Timestamp = unixNano(env.Timestamp)

	data, err := decodePayload(env.Type, env.Data)
	if err != nil {
		return cdc.Event{}, err
	}
	ev.Data = data
	return ev, nil
}

func decodePayload(eventType cdc.EventType, raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch eventType {
	case cdc.EventNodeAdded, cdc.EventNodeUpdated:
		var n graph.Node
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return n, nil
	case cdc.EventNodeRemoved:
		var p cdc.NodeRemovedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case cdc.EventRelationshipAdded:
		var r graph.Relationship
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return r, nil
	case cdc.EventRelationshipRemoved:
		var p cdc.RelationshipRemovedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case cdc.EventAnalysisProgress:
		var p cdc.ProgressPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case cdc.EventAnalysisCompleted:
		var p cdc.CompletedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case cdc.EventAnalysisFailed:
		var p cdc.FailedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}
