package memory

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps records in an embedded KV store under
// mem/<len>:<user>/<seq>. The length prefix stops one user id from being a
// key prefix of another; the big-endian sequence keeps iteration in
// insertion order.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerStore opens dir, or an in-memory instance when dir is empty.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte("seq/memory"), 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("badger sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

func badgerUserPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("mem/%d:%s/", len(userID), userID))
}

func (s *BadgerStore) Append(_ context.Context, userID, text string) error {
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("%w: next sequence: %w", ErrStorage, err)
	}
	key := binary.BigEndian.AppendUint64(badgerUserPrefix(userID), n)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte(text))
	})
	if err != nil {
		return fmt.Errorf("%w: set record: %w", ErrStorage, err)
	}
	return nil
}

func (s *BadgerStore) ReadAll(ctx context.Context, userID string) (string, error) {
	prefix := badgerUserPrefix(userID)
	var texts []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			texts = append(texts, string(val))
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: iterate records: %w", ErrStorage, err)
	}
	return joinTexts(texts), nil
}

func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("release badger sequence: %w", err)
	}
	return s.db.Close()
}
