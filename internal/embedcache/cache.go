// Package embedcache implements the Embedding Cache (C4): a persistent,
// content-addressed store mapping (model, text) pairs to their previously
// computed embedding vectors, so re-indexing unchanged symbols never pays
// for a model call twice.
package embedcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var vectorsBucket = []byte("vectors")
var statsBucket = []byte("stats")

// Cache is a bbolt-backed, content-addressed embedding cache. Keys are
// sha256("{model_id}|{sha256(text)}") so the same text embedded by two
// different models never collides, and the cache never needs to store the
// (potentially large) source text itself.
type Cache struct {
	mu       sync.Mutex
	db       *bolt.DB
	maxBytes int64
}

// New opens (or creates) the cache at path. maxBytes bounds the on-disk
// size; once exceeded, Put performs lazy eviction of the least-recently-used
// entries before inserting (tracked via a last-accessed timestamp sidecar
// rather than a separate LRU structure, since bbolt already keeps keys
// sorted and scanning the stats bucket is cheap at cache scale).
func New(path string, maxBytes int64) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create embedding cache dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(vectorsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(statsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init embedding cache buckets: %w", err)
	}

	return &Cache{db: db, maxBytes: maxBytes}, nil
}

// Key derives the content-addressed cache key for (modelID, text).
func Key(modelID, text string) string {
	textHash := sha256.Sum256([]byte(text))
	combined := modelID + "|" + hex.EncodeToString(textHash[:])
	keyHash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(keyHash[:])
}

// Get returns the cached vector for (modelID, text), or ok=false on a miss.
func (c *Cache) Get(modelID, text string) ([]float32, bool, error) {
	key := Key(modelID, text)

	var vec []float32
	found := false

	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(vectorsBucket)
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		vec = decodeVector(raw)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("read embedding cache: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	c.touch(key)
	return vec, true, nil
}

// Put stores vec under (modelID, text), evicting older entries first if the
// cache has grown past maxBytes.
func (c *Cache) Put(modelID, text string, vec []float32) error {
	key := Key(modelID, text)
	raw := encodeVector(vec)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxBytes > 0 {
		if err := c.evictIfNeeded(int64(len(raw))); err != nil {
			return err
		}
	}

	now := time.Now().UTC().UnixNano()
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(vectorsBucket).Put([]byte(key), raw); err != nil {
			return err
		}
		return tx.Bucket(statsBucket).Put([]byte(key), encodeInt64(now))
	})
}

func (c *Cache) touch(key string) {
	now := time.Now().UTC().UnixNano()
	_ = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(statsBucket).Put([]byte(key), encodeInt64(now))
	})
}

// evictIfNeeded removes the least-recently-touched entries until there is
// room for an additional incomingBytes, based on the DB file's current size.
func (c *Cache) evictIfNeeded(incomingBytes int64) error {
	info, err := os.Stat(c.db.Path())
	if err != nil {
		return nil // fresh/in-memory; nothing to evict yet
	}
	if info.Size()+incomingBytes <= c.maxBytes {
		return nil
	}

	var candidates []cacheEntryAge

	err = c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(statsBucket).ForEach(func(k, v []byte) error {
			candidates = append(candidates, cacheEntryAge{key: string(k), ts: decodeInt64(v)})
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("scan embedding cache stats: %w", err)
	}

	sortByTimeAscending(candidates)

	// Evict the oldest tenth of entries; bbolt reclaims freelist pages
	// lazily, so a single Put-triggered eviction pass trims usage gradually
	// rather than needing a full compaction.
	evictCount := len(candidates) / 10
	if evictCount == 0 && len(candidates) > 0 {
		evictCount = 1
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		for i := 0; i < evictCount; i++ {
			k := []byte(candidates[i].key)
			if err := tx.Bucket(vectorsBucket).Delete(k); err != nil {
				return err
			}
			if err := tx.Bucket(statsBucket).Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// cacheEntryAge pairs a cache key with its last-access timestamp, used only
// to rank eviction candidates.
type cacheEntryAge struct {
	key string
	ts  int64
}

func sortByTimeAscending(items []cacheEntryAge) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].ts < items[j-1].ts; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// Stats reports the current entry count and on-disk size.
type Stats struct {
	EntryCount int
	SizeBytes  int64
}

func (c *Cache) Stats() (Stats, error) {
	var count int
	err := c.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(vectorsBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	info, err := os.Stat(c.db.Path())
	size := int64(0)
	if err == nil {
		size = info.Size()
	}
	return Stats{EntryCount: count, SizeBytes: size}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) []float32 {
	n := len(raw) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt64(raw []byte) int64 {
	return int64(binary.BigEndian.Uint64(raw))
}
