package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.livesql.dev/core/metrics"
	"go.livesql.dev/core/session"
	"go.livesql.dev/core/session/sessiontest"
)

func TestFailedTransactionIsAtomic(t *testing.T) {
	var s = sessiontest.NewSession(t)
	var ctx = context.Background()
	sessiontest.MustExec(t, s,
		"CREATE TABLE t (k TEXT PRIMARY KEY, v INTEGER)",
		"INSERT INTO t (k, v) VALUES ('a', 1), ('b', 2)",
	)
	var rollbacks = testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Rollback))

	var errBoom = errors.New("boom")
	var err = s.InTransaction(ctx, func(ctx context.Context) error {
		require.True(t, s.HasOpenTransactions())

		if err := s.Write(ctx, "UPDATE t SET v = v * 10", nil); err != nil {
			return err
		} else if err = s.Write(ctx, "DELETE FROM t WHERE k = 'a'", nil); err != nil {
			return err
		} else if err = s.Write(ctx, "INSERT INTO t (k, v) VALUES ('c', 3)", nil); err != nil {
			return err
		}
		// Changes are visible within the transaction.
		var rows, err = s.Read(ctx, "SELECT k, v FROM t ORDER BY k", nil)
		require.NoError(t, err)
		require.Equal(t, []string{"{k: b, v: 20}", "{k: c, v: 3}"}, sessiontest.Format(rows))

		return errBoom
	})
	require.Equal(t, errBoom, err)
	require.False(t, s.HasOpenTransactions())

	var rows, _ = s.Read(ctx, "SELECT k, v FROM t ORDER BY k", nil)
	require.Equal(t, []string{"{k: a, v: 1}", "{k: b, v: 2}"}, sessiontest.Format(rows))
	require.Equal(t, rollbacks+1, testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Rollback)))
}

func TestStatementFailureRollsBackTransaction(t *testing.T) {
	var s = sessiontest.NewSession(t)
	var ctx = context.Background()
	sessiontest.MustExec(t, s, "CREATE TABLE t (v INTEGER UNIQUE)")

	var err = s.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.Write(ctx, "INSERT INTO t (v) VALUES (1)", nil); err != nil {
			return err
		}
		return s.Write(ctx, "INSERT INTO t (v) VALUES (1)", nil)
	})
	require.ErrorIs(t, err, session.ErrStepFailure)

	var rows, _ = s.Read(ctx, "SELECT count(*) AS n FROM t", nil)
	require.Equal(t, []string{"{n: 0}"}, sessiontest.Format(rows))
}

func TestNestedTransactions(t *testing.T) {
	var s = sessiontest.NewSession(t)
	var ctx = context.Background()
	sessiontest.MustExec(t, s, "CREATE TABLE t (v TEXT)")

	var insert = func(ctx context.Context, v string) error {
		return s.Write(ctx, "INSERT INTO t (v) VALUES (:v)", session.Args{"v": session.TextValue(v)})
	}
	var errInner = errors.New("inner")

	require.NoError(t, s.InTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, insert(ctx, "outer"))

		// A released sibling block.
		require.NoError(t, s.InTransaction(ctx, func(ctx context.Context) error {
			return insert(ctx, "first")
		}))
		// A failed sibling block, which doesn't undo the released one.
		require.Equal(t, errInner, s.InTransaction(ctx, func(ctx context.Context) error {
			require.NoError(t, insert(ctx, "second"))

			// Doubly-nested and released, but rolled back with its parent.
			require.NoError(t, s.InTransaction(ctx, func(ctx context.Context) error {
				return insert(ctx, "third")
			}))
			return errInner
		}))
		require.True(t, s.HasOpenTransactions())
		return insert(ctx, "last")
	}))
	require.False(t, s.HasOpenTransactions())

	var rows, err = s.Read(ctx, "SELECT v FROM t ORDER BY rowid", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"{v: outer}", "{v: first}", "{v: last}"}, sessiontest.Format(rows))
}

func TestTransactionsAreReusable(t *testing.T) {
	var s = sessiontest.NewSession(t)
	var ctx = context.Background()
	sessiontest.MustExec(t, s, "CREATE TABLE t (v INTEGER)")
	var commits = testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Commit))

	for i := 0; i != 3; i++ {
		require.Error(t, s.InTransaction(ctx, func(ctx context.Context) error {
			require.NoError(t, s.Write(ctx, "INSERT INTO t (v) VALUES (-1)", nil))
			return errors.New("fail")
		}))
		require.NoError(t, s.InTransaction(ctx, func(ctx context.Context) error {
			return s.Write(ctx, "INSERT INTO t (v) VALUES (:v)", session.Args{"v": session.IntegerValue(int64(i))})
		}))
	}
	var rows, _ = s.Read(ctx, "SELECT group_concat(v) AS vs FROM t", nil)
	require.Equal(t, []string{"{vs: 0,1,2}"}, sessiontest.Format(rows))
	require.Equal(t, commits+3, testutil.ToFloat64(metrics.TransactionsTotal.WithLabelValues(metrics.Commit)))
}

func TestPanicRollsBackTransaction(t *testing.T) {
	var s = sessiontest.NewSession(t)
	var ctx = context.Background()
	sessiontest.MustExec(t, s, "CREATE TABLE t (v INTEGER)")

	require.Panics(t, func() {
		_ = s.InTransaction(ctx, func(ctx context.Context) error {
			require.NoError(t, s.Write(ctx, "INSERT INTO t (v) VALUES (1)", nil))
			panic("whoops")
		})
	})
	require.False(t, s.HasOpenTransactions())

	var rows, _ = s.Read(ctx, "SELECT count(*) AS n FROM t", nil)
	require.Equal(t, []string{"{n: 0}"}, sessiontest.Format(rows))
}

func TestWriteAllIsTransactional(t *testing.T) {
	var s = sessiontest.NewSession(t)
	var ctx = context.Background()
	sessiontest.MustExec(t, s, "CREATE TABLE t (v INTEGER CHECK (v < 10))")

	var enc = session.EncoderFunc[int64](func(v int64) (session.Args, error) {
		return session.Args{"v": session.IntegerValue(v)}, nil
	})
	var sql = "INSERT INTO t (v) VALUES (:v)"

	require.NoError(t, session.WriteAll[int64](ctx, s, enc, sql, []int64{1, 2, 3}))
	require.ErrorIs(t, session.WriteAll[int64](ctx, s, enc, sql, []int64{4, 50, 6}), session.ErrStepFailure)

	var rows, _ = s.Read(ctx, "SELECT group_concat(v) AS vs FROM t", nil)
	require.Equal(t, []string{"{vs: 1,2,3}"}, sessiontest.Format(rows))
}
