package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the on-disk layout version of a collection bucket.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keyMeta = []byte("__meta")

// CollectionMeta is stored inside every collection bucket.
type CollectionMeta struct {
	Version   int `json:"version"`
	Dimension int `json:"dimension"`
}

func readMeta(b *bbolt.Bucket) (*CollectionMeta, error) {
	data := b.Get(keyMeta)
	if data == nil {
		return nil, nil
	}
	var meta CollectionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupt collection metadata: %w", err)
	}
	return &meta, nil
}

func writeMeta(b *bbolt.Bucket, meta CollectionMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return b.Put(keyMeta, data)
}

// checkMeta rejects buckets written with another dimension or by a newer
// layout. A bucket without metadata is treated as empty.
func checkMeta(meta *CollectionMeta, dimension int) error {
	if meta == nil {
		return nil
	}
	if meta.Version > CurrentSchemaVersion {
		return fmt.Errorf("collection was created by a newer version (v%d > v%d)", meta.Version, CurrentSchemaVersion)
	}
	if meta.Dimension != dimension {
		return fmt.Errorf("collection holds %d-dimensional vectors, expected %d", meta.Dimension, dimension)
	}
	return nil
}
