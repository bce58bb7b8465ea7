package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"party_server/internal/domain"
)

const outcomePrefix = "outcomes"

// BoltOutcomeStore keeps outcomes in a local bbolt file, one bucket per user.
// Used when no database is configured.
type BoltOutcomeStore struct {
	db *bolt.DB
}

func OpenBoltOutcomeStore(path string) (*BoltOutcomeStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open outcome store: %w", err)
	}
	return &BoltOutcomeStore{db: db}, nil
}

func (s *BoltOutcomeStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close outcome store: %w", err)
	}
	return nil
}

func bucketName(userID int64) []byte {
	b := make([]byte, len(outcomePrefix)+8)
	copy(b, outcomePrefix)
	binary.BigEndian.PutUint64(b[len(outcomePrefix):], uint64(userID))
	return b
}

func (s *BoltOutcomeStore) Create(_ context.Context, o *domain.Outcome) error {
	id := uuid.New()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.ID = id.String()

	key, err := id.MarshalBinary()
	if err != nil {
		return fmt.Errorf("uuid binary: %w", err)
	}
	value, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(o.UserID))
		if err != nil {
			return fmt.Errorf("can not create bucket %d: %w", o.UserID, err)
		}
		if err := b.Put(key, value); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		return nil
	})
}

// ListByUser returns the newest outcomes first.
func (s *BoltOutcomeStore) ListByUser(_ context.Context, userID int64, limit int) ([]*domain.Outcome, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []*domain.Outcome
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(userID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var o domain.Outcome
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("json unmarshal error, %w", err)
			}
			list = append(list, &o)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
