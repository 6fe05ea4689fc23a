package session

import (
	"github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"
	"go.livesql.dev/core/metrics"
)

// statementCache maps SQL text to its prepared statement. It's bounded, and
// statements evicted from the cache are finalized. The cache never resets
// statements: that's the responsibility of statement.run.
type statementCache struct {
	lru     *lru.Cache
	prepare func(sql string) (*statement, error)
	purging bool
}

func newStatementCache(size int, prepare func(string) (*statement, error)) *statementCache {
	var c = &statementCache{prepare: prepare}
	var cache, err = lru.NewWithEvict(size, c.onEvict)
	if err != nil {
		panic(err.Error()) // Only errors on size <= 0.
	}
	c.lru = cache
	return c
}

// getOrPrepare returns the cached statement of |sql|, or prepares and caches it.
func (c *statementCache) getOrPrepare(sql string) (*statement, error) {
	if v, ok := c.lru.Get(sql); ok {
		metrics.StatementCacheTotal.WithLabelValues(metrics.Hit).Inc()
		return v.(*statement), nil
	}
	metrics.StatementCacheTotal.WithLabelValues(metrics.Miss).Inc()

	var st, err = c.prepare(sql)
	if err != nil {
		return nil, err
	}
	c.lru.Add(sql, st)
	return st, nil
}

// len is the number of cached statements.
func (c *statementCache) len() int { return c.lru.Len() }

// purge finalizes and removes every cached statement.
func (c *statementCache) purge() {
	c.purging = true
	c.lru.Purge()
	c.purging = false
}

func (c *statementCache) onEvict(key, value interface{}) {
	if !c.purging {
		metrics.StatementCacheEvictionsTotal.Inc()
		log.WithField("sql", key).Debug("evicting cached statement")
	}
	if err := value.(*statement).finalize(); err != nil {
		log.WithFields(log.Fields{
			"sql": key,
			"err": err,
		}).Error("failed to finalize cached statement")
	}
}
