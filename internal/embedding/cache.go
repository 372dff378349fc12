package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smartdocs/internal/model"
)

// HashText returns the SHA-256 hex of the trimmed text. Identical text
// always hashes to the same key, so identical inputs never recompute.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// Cache is the content-addressed embedding cache: an in-memory map in
// front of a SQLite table, one O(1) row insert per new entry. Reads are
// concurrent; writes are serialized. Entries are never evicted.
type Cache struct {
	db *gorm.DB

	mu      sync.RWMutex
	entries map[string][]float32
}

// NewCache migrates the cache table and loads all persisted entries.
// A nil db yields a memory-only cache (used in tests).
func NewCache(db *gorm.DB) (*Cache, error) {
	c := &Cache{db: db, entries: make(map[string][]float32)}
	if db == nil {
		return c, nil
	}

	if err := db.AutoMigrate(&model.EmbeddingCacheEntry{}); err != nil {
		return nil, fmt.Errorf("migrate embedding cache failed: %w", err)
	}

	var rows []model.EmbeddingCacheEntry
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load embedding cache failed: %w", err)
	}
	for i := range rows {
		if vec := rows[i].VectorSlice(); len(vec) > 0 {
			c.entries[rows[i].ContentHash] = vec
		}
	}
	return c, nil
}

func (c *Cache) Get(hash string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[hash]
	return vec, ok
}

// Put persists the entry before publishing it to the in-memory map, so a
// crash loses at most the in-flight entry, never a confirmed one. Two
// workers racing on the same hash both wrote the same vector; last write
// wins with no correctness impact.
func (c *Cache) Put(hash string, vec []float32) error {
	if c.db != nil {
		row := model.EmbeddingCacheEntry{ContentHash: hash}
		row.SetVector(vec)
		err := c.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("persist embedding cache entry failed: %w", err)
		}
	}

	c.mu.Lock()
	c.entries[hash] = vec
	c.mu.Unlock()
	return nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
