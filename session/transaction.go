package session

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.livesql.dev/core/metrics"
)

// InTransaction runs |block| within a savepoint. If |block| returns an error
// or panics, its changes are rolled back and the error (or panic) propagates
// to the caller of InTransaction. Otherwise the savepoint is released.
//
// |block| must use the Context it's passed for nested operations of the
// Session, which then run inline. Nested InTransaction calls open nested
// savepoints: a nested failure rolls back only the nested block's changes.
// Changes are committed when the outermost block completes.
func (s *Session) InTransaction(ctx context.Context, block func(ctx context.Context) error) error {
	return s.do(ctx, "transaction", func(ctx context.Context) (err error) {
		var depth = s.depth.Add(1)
		var name = fmt.Sprintf("livesql_%d", depth)
		var mark = s.monitor.mark()

		defer s.depth.Add(-1)

		if err = s.execStatement("SAVEPOINT " + name); err != nil {
			return err
		}

		var panicked = true
		defer func() {
			if panicked {
				s.rollback(depth, name, mark)
				metrics.TransactionsTotal.WithLabelValues(metrics.Rollback).Inc()
			}
		}()

		if err = block(ctx); err == nil {
			err = s.execStatement("RELEASE SAVEPOINT " + name)
		}
		panicked = false

		if err != nil {
			s.rollback(depth, name, mark)
			metrics.TransactionsTotal.WithLabelValues(metrics.Rollback).Inc()
		} else {
			metrics.TransactionsTotal.WithLabelValues(metrics.Commit).Inc()
		}
		return err
	})
}

// rollback unwinds the savepoint |name| at transaction |depth|. The outermost
// savepoint is unwound by a complete ROLLBACK. A nested savepoint is rolled
// back to and then released, leaving its enclosing transaction open.
// Rollback is best-effort: failures are logged.
func (s *Session) rollback(depth int32, name string, mark pendingMark) {
	var stmts = []string{"ROLLBACK"}
	if depth > 1 {
		stmts = []string{"ROLLBACK TO SAVEPOINT " + name, "RELEASE SAVEPOINT " + name}
	}
	for _, sql := range stmts {
		if err := s.execStatement(sql); err != nil {
			log.WithFields(log.Fields{
				"savepoint": name,
				"depth":     depth,
				"sql":       sql,
				"err":       err,
			}).Error("failed to roll back transaction")
			return
		}
	}
	s.monitor.restore(mark)
}
