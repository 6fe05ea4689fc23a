package session

import (
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.livesql.dev/core/metrics"
	gc "gopkg.in/check.v1"
)

type CacheSuite struct {
	conn     *sqlite3.SQLiteConn
	prepares int
}

func (s *CacheSuite) SetUpTest(c *gc.C) {
	var dc, err = (&sqlite3.SQLiteDriver{}).Open(":memory:")
	c.Assert(err, gc.IsNil)
	s.conn, s.prepares = dc.(*sqlite3.SQLiteConn), 0
}

func (s *CacheSuite) TearDownTest(c *gc.C) {
	c.Check(s.conn.Close(), gc.IsNil)
}

func (s *CacheSuite) prepare(sql string) (*statement, error) {
	s.prepares++
	return prepare(s.conn, sql)
}

func (s *CacheSuite) TestHitsAndMisses(c *gc.C) {
	var cache = newStatementCache(8, s.prepare)
	defer cache.purge()

	var hits = testutil.ToFloat64(metrics.StatementCacheTotal.WithLabelValues(metrics.Hit))
	var misses = testutil.ToFloat64(metrics.StatementCacheTotal.WithLabelValues(metrics.Miss))

	var a, err = cache.getOrPrepare("SELECT 1")
	c.Assert(err, gc.IsNil)
	b, err := cache.getOrPrepare("SELECT 1")
	c.Assert(err, gc.IsNil)

	c.Check(a, gc.Equals, b)
	c.Check(cache.len(), gc.Equals, 1)
	c.Check(s.prepares, gc.Equals, 1)

	// Statements are re-usable across calls.
	for i := 0; i != 3; i++ {
		var rows, err = a.run(nil)
		c.Check(err, gc.IsNil)
		c.Check(rows[0].String(), gc.Equals, "{1: 1}")
	}

	c.Check(testutil.ToFloat64(metrics.StatementCacheTotal.WithLabelValues(metrics.Hit)), gc.Equals, hits+1)
	c.Check(testutil.ToFloat64(metrics.StatementCacheTotal.WithLabelValues(metrics.Miss)), gc.Equals, misses+1)
}

func (s *CacheSuite) TestPrepareErrorsAreNotCached(c *gc.C) {
	var cache = newStatementCache(8, s.prepare)
	defer cache.purge()

	for i := 0; i != 2; i++ {
		var _, err = cache.getOrPrepare("SELECT FROM WHERE")
		c.Check(err, gc.ErrorMatches, `livesql: prepare failed \(SQL logic error\).*`)
	}
	c.Check(cache.len(), gc.Equals, 0)
	c.Check(s.prepares, gc.Equals, 2)
}

func (s *CacheSuite) TestEvictionAndPurge(c *gc.C) {
	var cache = newStatementCache(2, s.prepare)
	var evictions = testutil.ToFloat64(metrics.StatementCacheEvictionsTotal)

	for _, sql := range []string{"SELECT 1", "SELECT 2", "SELECT 1", "SELECT 3"} {
		var _, err = cache.getOrPrepare(sql)
		c.Assert(err, gc.IsNil)
	}
	// "SELECT 2" was least-recently used, and was evicted.
	c.Check(cache.len(), gc.Equals, 2)
	c.Check(s.prepares, gc.Equals, 3)
	c.Check(testutil.ToFloat64(metrics.StatementCacheEvictionsTotal), gc.Equals, evictions+1)

	var _, err = cache.getOrPrepare("SELECT 2")
	c.Assert(err, gc.IsNil)
	c.Check(s.prepares, gc.Equals, 4)
	c.Check(testutil.ToFloat64(metrics.StatementCacheEvictionsTotal), gc.Equals, evictions+2)

	// Purging finalizes all statements, but isn't counted as eviction.
	cache.purge()
	c.Check(cache.len(), gc.Equals, 0)
	c.Check(testutil.ToFloat64(metrics.StatementCacheEvictionsTotal), gc.Equals, evictions+2)
}

var _ = gc.Suite(&CacheSuite{})

func Test(t *testing.T) { gc.TestingT(t) }
