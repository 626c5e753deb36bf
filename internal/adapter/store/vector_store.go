package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// BoltIndex is a file-backed vector index. Each collection is a bucket of
// entries keyed by insertion sequence; search is brute-force cosine.
type BoltIndex struct {
	db        *bbolt.DB
	path      string
	dimension int
}

type storedEntry struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"v"`
	Text     string            `json:"t"`
	Metadata map[string]string `json:"m,omitempty"`
}

// OpenBoltIndex opens (or creates) the bolt file at path.
func OpenBoltIndex(path string, dimension int) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return &BoltIndex{db: db, path: path, dimension: dimension}, nil
}

func bucketName(collection string) []byte {
	return []byte("collection:" + collection)
}

func (s *BoltIndex) Verify(_ context.Context, collection string) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(collection))
		if b == nil {
			return nil
		}
		meta, err := readMeta(b)
		if err != nil {
			return err
		}
		return checkMeta(meta, s.dimension)
	})
}

// Clear drops and recreates the collection bucket.
func (s *BoltIndex) Clear(_ context.Context, collection string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		name := bucketName(collection)
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(name)
		if err != nil {
			return err
		}
		return writeMeta(b, CollectionMeta{Version: CurrentSchemaVersion, Dimension: s.dimension})
	})
}

// Upsert writes all entries in a single transaction.
func (s *BoltIndex) Upsert(_ context.Context, collection string, entries []domain.IndexEntry) error {
	if err := CheckEntries(entries, s.dimension); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(collection))
		if err != nil {
			return err
		}
		meta, err := readMeta(b)
		if err != nil {
			return err
		}
		if err := checkMeta(meta, s.dimension); err != nil {
			return err
		}
		if meta == nil {
			if err := writeMeta(b, CollectionMeta{Version: CurrentSchemaVersion, Dimension: s.dimension}); err != nil {
				return err
			}
		}

		for _, e := range entries {
			data, err := json.Marshal(storedEntry{
				ID:       e.ID,
				Vector:   e.Vector,
				Text:     e.Text,
				Metadata: e.Metadata,
			})
			if err != nil {
				return err
			}

			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(sequenceKey(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Query finds the k nearest entries to vector using cosine similarity.
func (s *BoltIndex) Query(_ context.Context, collection string, vector []float32, k int) ([]port.VectorResult, error) {
	if err := CheckQuery(vector, s.dimension); err != nil {
		return nil, err
	}

	var entries []domain.IndexEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(collection))
		if b == nil {
			return nil
		}
		meta, err := readMeta(b)
		if err != nil {
			return err
		}
		if err := checkMeta(meta, s.dimension); err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			if string(k) == string(keyMeta) {
				return nil
			}
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt entry %x: %w", k, err)
			}
			entries = append(entries, domain.IndexEntry{
				ID:       stored.ID,
				Vector:   stored.Vector,
				Text:     stored.Text,
				Metadata: stored.Metadata,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return RankByCosine(vector, entries, k), nil
}

// Count returns the number of entries in collection.
func (s *BoltIndex) Count(collection string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(collection))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		if b.Get(keyMeta) != nil {
			n--
		}
		return nil
	})
	return n, err
}

func (s *BoltIndex) Dimension() int {
	return s.dimension
}

func (s *BoltIndex) Name() string {
	return "bolt:" + s.path
}

func (s *BoltIndex) Close() error {
	return s.db.Close()
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
