package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"
)

type PebbleJournal struct {
	db *pebble.DB
}

// OpenPebbleJournal opens a journal in dir. An empty dir keeps the journal
// on an in-memory filesystem, so nothing outlives the process.
// Pebble's own log output goes to log; nil discards it.
func OpenPebbleJournal(dir string, log *zap.SugaredLogger) (*PebbleJournal, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	opts := &pebble.Options{
		MemTableSize: 8 << 20,
		MaxOpenFiles: 256,
		BytesPerSync: 512 << 10,
		Logger:       pebbleLogger{log: log.With("component", "pebble")},
	}
	if dir == "" {
		opts.FS = vfs.NewMem()
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble journal at %q: %w", dir, err)
	}
	return &PebbleJournal{db: db}, nil
}

func (j *PebbleJournal) Close() error { return j.db.Close() }

// RecordPlayer starts a fresh log for the player: orders journaled under
// the same ID by an earlier process are dropped in the same batch.
func (j *PebbleJournal) RecordPlayer(rec PlayerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	prefix := orderPrefix(rec.PlayerID)
	batch := j.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange(prefix, keyUpperBound(prefix), nil); err != nil {
		return fmt.Errorf("failed to clear stale orders: %w", err)
	}
	if err := batch.Set(playerKey(rec.PlayerID), data, nil); err != nil {
		return fmt.Errorf("failed to stage player: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	return nil
}

// RecordOrder uses NoSync: orders are high volume and the journal is an
// audit trail, not the source of truth.
func (j *PebbleJournal) RecordOrder(rec OrderRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := j.db.Set(orderKey(rec.PlayerID, rec.Seq), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (j *PebbleJournal) Player(playerID string) (*PlayerRecord, error) {
	data, closer, err := j.db.Get(playerKey(playerID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	defer closer.Close()

	var rec PlayerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}
	return &rec, nil
}

func (j *PebbleJournal) Orders(playerID string) ([]OrderRecord, error) {
	prefix := orderPrefix(playerID)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open order iterator: %w", err)
	}
	defer iter.Close()

	var orders []OrderRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec OrderRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order %q: %w", iter.Key(), err)
		}
		orders = append(orders, rec)
	}
	return orders, iter.Error()
}
