package session

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.livesql.dev/core/async"
	"go.livesql.dev/core/metrics"
)

// ObserverID identifies an observer registered with Session.Observe.
type ObserverID uint64

// observer is a registered live query.
type observer struct {
	id       ObserverID
	stmt     *statement
	args     Args
	queue    async.Queue
	callback func([]Row)
	removed  atomic.Bool
	ready    async.Promise // Resolved once Observe has returned.
}

// pendingMark is a snapshot of the tables changed by the current transaction,
// and of the last ObserverID registered at the time.
type pendingMark struct {
	tables map[string]struct{}
	lastID ObserverID
}

// monitor tracks the tables changed by committed transactions, and
// re-evaluates observers which read from them. It's the sole registrant of the
// connection's update, commit, rollback and authorizer hooks. All hooks fire
// synchronously on the worker, and monitor is accessed only from the worker.
type monitor struct {
	conn      *sqlite3.SQLiteConn
	observers map[ObserverID]*observer
	lastID    ObserverID
	hooked    bool

	// Tables changed by the current, uncommitted transaction.
	pending map[string]struct{}
	// Tables changed by committed transactions, not yet dispatched.
	committed map[string]struct{}
	// Observers registered within the current, uncommitted transaction.
	provisional map[ObserverID]struct{}
	// Observers whose last result saw changes which were since rolled back.
	stale map[ObserverID]struct{}

	// Collectors of tables authorized while preparing a statement.
	reads, writes map[string]struct{}
}

func newMonitor(conn *sqlite3.SQLiteConn, authorize bool) *monitor {
	var m = &monitor{
		conn:      conn,
		observers: make(map[ObserverID]*observer),
		pending:     make(map[string]struct{}),
		committed:   make(map[string]struct{}),
		provisional: make(map[ObserverID]struct{}),
		stale:       make(map[ObserverID]struct{}),
	}
	if authorize {
		conn.RegisterAuthorizer(m.authorize)
	}
	return m
}

// prepare |sql|, recording the tables which the statement reads and writes.
// The engine consults the authorizer as it compiles a statement, including
// statements of views and triggers which the statement invokes.
func (m *monitor) prepare(sql string) (st *statement, err error) {
	var reads, writes map[string]struct{}
	reads, writes, err = m.collect(func() (err error) {
		st, err = prepare(m.conn, sql)
		return err
	})
	if err != nil {
		return nil, err
	}
	st.reads, st.writes = reads, writes
	return st, nil
}

func (m *monitor) authorize(action int, arg1, _, _ string) int {
	if m.reads == nil || arg1 == "" || isInternalTable(arg1) {
		return sqlite3.SQLITE_OK
	}
	switch action {
	case sqlite3.SQLITE_READ:
		m.reads[strings.ToLower(arg1)] = struct{}{}
	case sqlite3.SQLITE_INSERT, sqlite3.SQLITE_UPDATE, sqlite3.SQLITE_DELETE:
		m.writes[strings.ToLower(arg1)] = struct{}{}
	}
	return sqlite3.SQLITE_OK
}

// touch marks |tables| as changed by the current transaction. It's called
// before a statement which may write |tables| is run. The update hook is not
// invoked for deletions by the truncate optimization, nor for WITHOUT ROWID
// tables, and touch covers those cases.
func (m *monitor) touch(tables map[string]struct{}) {
	if !m.hooked {
		return
	}
	for t := range tables {
		m.pending[t] = struct{}{}
	}
}

// touchCommitted marks |tables| as changed after the fact, by a script whose
// statements may already have committed.
func (m *monitor) touchCommitted(tables map[string]struct{}) {
	if !m.hooked {
		return
	} else if !m.conn.AutoCommit() {
		m.touch(tables)
		return
	}
	for t := range tables {
		m.committed[t] = struct{}{}
	}
}

// collect calls |fn| and returns the tables read and written by statements
// which |fn| prepares.
func (m *monitor) collect(fn func() error) (reads, writes map[string]struct{}, err error) {
	m.reads = make(map[string]struct{})
	m.writes = make(map[string]struct{})
	defer func() { m.reads, m.writes = nil, nil }()

	err = fn()
	return m.reads, m.writes, err
}

// mark snapshots the tables changed by the current transaction.
func (m *monitor) mark() pendingMark {
	return pendingMark{tables: maps.Clone(m.pending), lastID: m.lastID}
}

// restore the tables changed by the current transaction to |mark|, upon a
// rollback to the savepoint at which |mark| was taken. Observers registered
// since |mark| evaluated the rolled-back changes, and become stale.
func (m *monitor) restore(mark pendingMark) {
	if !m.hooked {
		return
	}
	clear(m.pending)
	for t := range mark.tables {
		m.pending[t] = struct{}{}
	}
	for id := range m.provisional {
		if id > mark.lastID {
			m.stale[id] = struct{}{}
			delete(m.provisional, id)
		}
	}
}

func (m *monitor) install() {
	m.conn.RegisterUpdateHook(func(_ int, _ string, table string, _ int64) {
		m.pending[strings.ToLower(table)] = struct{}{}
	})
	m.conn.RegisterCommitHook(func() int {
		for t := range m.pending {
			m.committed[t] = struct{}{}
		}
		clear(m.pending)
		clear(m.provisional)
		return 0 // Allow the commit.
	})
	m.conn.RegisterRollbackHook(func() {
		clear(m.pending)
		for id := range m.provisional {
			m.stale[id] = struct{}{}
		}
		clear(m.provisional)
	})
	m.hooked = true
	log.Debug("installed change hooks")
}

func (m *monitor) uninstall() {
	m.conn.RegisterUpdateHook(nil)
	m.conn.RegisterCommitHook(nil)
	m.conn.RegisterRollbackHook(nil)
	clear(m.pending)
	clear(m.committed)
	clear(m.provisional)
	clear(m.stale)
	m.hooked = false
	log.Debug("uninstalled change hooks")
}

// observe registers an observer of |sql| and |args|. The statement is
// evaluated immediately, and its result is queued for delivery once the
// observer's ready Promise resolves. If the evaluation fails, no observer is
// registered.
func (m *monitor) observe(sql string, args Args, queue async.Queue, callback func([]Row)) (*observer, error) {
	var st, err = m.prepare(sql)
	if err != nil {
		return nil, err
	}
	rows, err := st.run(args)
	if err != nil {
		_ = st.finalize()
		return nil, err
	}

	m.lastID++
	var o = &observer{
		id:       m.lastID,
		stmt:     st,
		args:     maps.Clone(args),
		queue:    queue,
		callback: callback,
		ready:    make(async.Promise),
	}
	m.observers[o.id] = o

	if !m.hooked {
		m.install()
	}
	// A result evaluated within a transaction may include changes which are
	// later rolled back.
	if !m.conn.AutoCommit() {
		m.provisional[o.id] = struct{}{}
	}
	metrics.Observers.Inc()

	log.WithFields(log.Fields{
		"id":     o.id,
		"sql":    sql,
		"tables": sortedKeys(st.reads),
	}).Debug("registered observer")

	m.deliver(o, rows)
	return o, nil
}

// remove the observer |id|. Unknown IDs are ignored.
func (m *monitor) remove(id ObserverID) {
	var o, ok = m.observers[id]
	if !ok {
		return
	}
	o.removed.Store(true)
	delete(m.observers, id)
	delete(m.provisional, id)
	delete(m.stale, id)

	if err := o.stmt.finalize(); err != nil {
		log.WithFields(log.Fields{"id": id, "err": err}).Error("failed to finalize observer statement")
	}
	if len(m.observers) == 0 && m.hooked {
		m.uninstall()
	}
	metrics.Observers.Dec()
}

// removeAll observers.
func (m *monitor) removeAll() {
	for id := range m.observers {
		m.remove(id)
	}
}

// flush is called after each top-level operation. Changes of a transaction
// which didn't commit are discarded. Observers of committed changes, and
// stale observers, are re-evaluated in registration order.
func (m *monitor) flush() {
	if !m.conn.AutoCommit() {
		return // Re-evaluate once the transaction has ended.
	}
	clear(m.pending)
	clear(m.provisional)

	if len(m.committed) == 0 && len(m.stale) == 0 {
		return
	}

	var affected []*observer
	for _, o := range m.observers {
		if _, ok := m.stale[o.id]; ok {
			affected = append(affected, o)
			continue
		}
		for t := range o.stmt.reads {
			if _, ok := m.committed[t]; ok {
				affected = append(affected, o)
				break
			}
		}
	}
	clear(m.committed)
	clear(m.stale)

	sort.Slice(affected, func(i, j int) bool { return affected[i].id < affected[j].id })

	for _, o := range affected {
		var rows, err = o.stmt.run(o.args)
		if err != nil {
			metrics.ObserverEvaluationsTotal.WithLabelValues(metrics.Fail).Inc()
			log.WithFields(log.Fields{
				"id":  o.id,
				"sql": o.stmt.sql,
				"err": err,
			}).Warn("failed to re-evaluate observer")
			continue
		}
		metrics.ObserverEvaluationsTotal.WithLabelValues(metrics.Ok).Inc()
		m.deliver(o, rows)
	}
}

// deliver |rows| to the observer's queue. Deliveries wait until Observe has
// returned to its caller. Deliveries of a removed observer are dropped,
// including those already queued at the time of removal.
func (m *monitor) deliver(o *observer, rows []Row) {
	o.queue.Submit(func() {
		o.ready.Wait()

		if o.removed.Load() {
			return
		}
		metrics.ObserverDeliveriesTotal.Inc()
		o.callback(rows)
	})
}

// Observe registers a live query of |sql| and |args|. Its result is
// delivered to |callback| on |queue| upon registration, and again after
// each committed change to a table which |sql| reads. Deliveries are
// asynchronous: the initial delivery happens after Observe returns, and
// those triggered by a write happen after the write returns. Deliveries to
// a single observer are submitted to |queue| in the order of the writes
// which triggered them.
//
// If |sql| fails to prepare or evaluate, the error is returned and nothing is
// registered.
func (s *Session) Observe(ctx context.Context, sql string, args Args, queue async.Queue, callback func([]Row)) (ObserverID, error) {
	if queue == nil {
		return 0, errors.New("expected queue")
	} else if callback == nil {
		return 0, errors.New("expected callback")
	} else if !s.CanObserve() {
		return 0, ErrObservationUnsupported
	}

	var o *observer
	var err = s.do(ctx, "observe", func(context.Context) (err error) {
		o, err = s.monitor.observe(sql, args, queue, callback)
		return err
	})
	if err != nil {
		return 0, err
	}
	defer o.ready.Resolve()
	return o.id, nil
}

// Remove the observer |id|. Once Remove returns, no further results are
// delivered to its callback. Removing an unknown observer does nothing.
func (s *Session) Remove(ctx context.Context, id ObserverID) error {
	return s.do(ctx, "remove", func(context.Context) error {
		s.monitor.remove(id)
		return nil
	})
}

// Watch observes |sql| and |args|, sending each result to the returned
// channel. Watch ends when |ctx| is done: the observer is removed and the
// channel is closed. A result which can't be sent before |ctx| is done is
// dropped.
func (s *Session) Watch(ctx context.Context, sql string, args Args) (<-chan []Row, error) {
	var out = make(chan []Row)
	var queue = async.NewSerialQueue()

	var id, err = s.Observe(ctx, sql, args, queue, func(rows []Row) {
		select {
		case out <- rows:
		case <-ctx.Done():
		}
	})
	if err != nil {
		queue.Close()
		return nil, err
	}

	go func() {
		<-ctx.Done()

		if err := s.Remove(context.Background(), id); err != nil && err != ErrSessionClosed {
			log.WithFields(log.Fields{"id": id, "err": err}).Warn("failed to remove watch observer")
		}
		queue.Close()
		close(out)
	}()
	return out, nil
}

func isInternalTable(name string) bool {
	return len(name) >= 7 && strings.EqualFold(name[:7], "sqlite_")
}

func sortedKeys(m map[string]struct{}) []string {
	var out = make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
