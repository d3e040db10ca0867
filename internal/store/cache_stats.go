package store

import (
	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

// CacheStatsStore persists the singleton CacheStats row. internal/cache
// keeps the authoritative counters in memory (atomic.Int64 pair) and
// flushes here periodically with a batched delta update; this store is
// just the durable sink.
type CacheStatsStore struct{ db *sqlx.DB }

func NewCacheStatsStore(db *sqlx.DB) *CacheStatsStore { return &CacheStatsStore{db: db} }

func (s *CacheStatsStore) Get() (*models.CacheStats, error) {
	var c models.CacheStats
	err := s.db.Get(&c, `SELECT id, hit_count, miss_count FROM cache_stats LIMIT 1`)
	return &c, err
}

// Flush adds hitDelta/missDelta to the singleton row.
func (s *CacheStatsStore) Flush(hitDelta, missDelta int64) error {
	if hitDelta == 0 && missDelta == 0 {
		return nil
	}
	_, err := s.db.Exec(
		`UPDATE cache_stats SET hit_count = hit_count + ?, miss_count = miss_count + ? WHERE id = (SELECT id FROM cache_stats LIMIT 1)`,
		hitDelta, missDelta,
	)
	return err
}
