package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"smartdocs/internal/search"
	"smartdocs/internal/vectorstore"
)

// SearchCache keeps recent retrieval results in redis so repeated
// questions skip the embedding call entirely. It is strictly best
// effort: a down redis degrades to cache misses, never to errors.
type SearchCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSearchCache(client *redisv9.Client, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SearchCache{client: client, ttl: ttl}
}

func (c *SearchCache) Get(ctx context.Context, ns vectorstore.Namespace, query string) ([]search.Result, bool) {
	raw, err := c.client.Get(ctx, c.key(ns, query)).Result()
	if err == redisv9.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("cache: redis get search results failed: %v", err)
		return nil, false
	}

	var results []search.Result
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		log.Printf("cache: unmarshal cached search results failed: %v", err)
		return nil, false
	}
	return results, true
}

func (c *SearchCache) Set(ctx context.Context, ns vectorstore.Namespace, query string, results []search.Result) {
	payload, err := json.Marshal(results)
	if err != nil {
		log.Printf("cache: marshal search results failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, c.key(ns, query), payload, c.ttl).Err(); err != nil {
		log.Printf("cache: redis set search results failed: %v", err)
	}
}

// key hashes the query so arbitrary question text never lands in a
// redis key.
func (c *SearchCache) key(ns vectorstore.Namespace, query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("search:results:%s:%s", ns, hex.EncodeToString(sum[:]))
}
