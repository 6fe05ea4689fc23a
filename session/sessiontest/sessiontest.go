// Package sessiontest provides utilities for testing components which use a
// session.Session.
package sessiontest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.livesql.dev/core/async"
	"go.livesql.dev/core/session"
)

// NewSession opens a Session of a database within a temporary directory of
// the test. The Session is closed when the test completes.
func NewSession(t testing.TB) *session.Session {
	return NewSessionWithConfig(t, session.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
}

// NewSessionWithConfig opens a Session of |cfg|, which is closed when the
// test completes.
func NewSessionWithConfig(t testing.TB, cfg session.Config) *session.Session {
	var s, err = session.Open(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

// MustExec executes each of |stmts| against |s|, failing the test on error.
func MustExec(t require.TestingT, s *session.Session, stmts ...string) {
	for _, sql := range stmts {
		var _, err = s.ExecuteRaw(context.Background(), sql)
		require.NoError(t, err, sql)
	}
}

// Barrier blocks until all operations submitted to |s| prior to Barrier,
// and the observer re-evaluations they caused, have completed.
func Barrier(t require.TestingT, s *session.Session) {
	var _, err = s.Read(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
}

// Recorder records results delivered to an observer callback. Deliveries
// run on the Recorder's Queue.
type Recorder struct {
	Queue *async.SerialQueue

	mu      sync.Mutex
	results [][]session.Row
}

// NewRecorder returns a Recorder whose Queue is closed when the test completes.
func NewRecorder(t testing.TB) *Recorder {
	var r = &Recorder{Queue: async.NewSerialQueue()}
	t.Cleanup(r.Queue.Close)
	return r
}

// Callback records a delivered result. It's passed to Session.Observe.
func (r *Recorder) Callback(rows []session.Row) {
	r.mu.Lock()
	r.results = append(r.results, rows)
	r.mu.Unlock()
}

// Sync waits for all deliveries caused by operations of |s| prior to Sync,
// and then returns and clears the results recorded since the last Sync.
// Each result is formatted as its rows' String.
func (r *Recorder) Sync(t require.TestingT, s *session.Session) [][]string {
	Barrier(t, s)
	r.Queue.Sync()

	r.mu.Lock()
	defer r.mu.Unlock()

	var out = make([][]string, 0, len(r.results))
	for _, rows := range r.results {
		out = append(out, Format(rows))
	}
	r.results = nil
	return out
}

// Format each of |rows| as its String.
func Format(rows []session.Row) []string {
	var out = make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.String())
	}
	return out
}
