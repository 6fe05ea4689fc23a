package session

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.livesql.dev/core/async"
	"go.livesql.dev/core/metrics"
)

// Session owns a single SQLite connection, and serializes every use of it
// onto a dedicated worker goroutine. A Session is safe for concurrent use.
//
// Operations invoked with a Context handed to an InTransaction block run
// inline on the worker, while that block runs. All other invocations
// (including those with a block's Context after the block has returned) are
// submitted to the worker, and block until the worker has completed them.
// A block's Context must not be used by other goroutines while the block runs.
type Session struct {
	cfg  Config
	conn *sqlite3.SQLiteConn

	// Fields below are accessed only from the worker goroutine.
	cache   *statementCache
	monitor *monitor

	// Fixed at Open.
	compileOptions []string
	supportsJSON   bool

	depth   atomic.Int32 // Transaction depth. Written only by the worker.
	closed  atomic.Bool
	current atomic.Pointer[op] // Operation being run by the worker, if any.
	closing bool               // Close was requested by the current operation.

	ops  chan *op
	done async.Promise // Resolved when the worker exits.
}

// op is a unit of work submitted to the worker.
type op struct {
	ctx      context.Context
	name     string
	fn       func(context.Context) error
	err      error
	panicked interface{}
	done     async.Promise
}

// workerKey is the Context key under which the op being run is stored.
// A Context carrying the worker's current op executes on the worker. Once
// the op completes, the Context no longer does.
type workerKey struct{}

// Open a Session over the database of the Config. A connection which the
// engine rejects is returned as an OpenFailure.
func Open(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "validating Config")
	}
	var dc, err = (&sqlite3.SQLiteDriver{}).Open(cfg.DSN())
	if err != nil {
		return nil, &Error{Kind: OpenFailure, Code: codeOf(err), Path: cfg.Path, Err: err}
	}
	var s = &Session{
		cfg:  cfg,
		conn: dc.(*sqlite3.SQLiteConn),
		ops:  make(chan *op),
		done: make(async.Promise),
	}
	if s.compileOptions, err = readCompileOptions(s.conn); err != nil {
		_ = s.conn.Close()
		return nil, &Error{Kind: OpenFailure, Code: codeOf(err), Path: cfg.Path, Err: err}
	}
	s.monitor = newMonitor(s.conn, s.CanObserve())
	s.cache = newStatementCache(cfg.StatementCacheSize, s.monitor.prepare)

	// JSON functions are built in from SQLite 3.38 unless omitted, and were
	// previously available only with ENABLE_JSON1. Probe rather than infer.
	if st, err := prepare(s.conn, "SELECT json('null')"); err == nil {
		s.supportsJSON = true
		_ = st.finalize()
	}

	log.WithFields(log.Fields{
		"path":    cfg.Path,
		"options": len(s.compileOptions),
	}).Debug("opened session")

	go s.serve()
	return s, nil
}

// Write executes |sql|, which must produce no rows, using the statement cache.
// If rows are produced an UnexpectedRows *Error carrying them is returned.
func (s *Session) Write(ctx context.Context, sql string, args Args) error {
	return s.do(ctx, "write", func(context.Context) error {
		var st, err = s.cache.getOrPrepare(sql)
		if err != nil {
			return err
		}
		rows, err := s.run(st, args)
		if err != nil {
			return err
		} else if len(rows) != 0 {
			return &Error{Kind: UnexpectedRows, SQL: sql, Rows: rows}
		}
		return nil
	})
}

// Read executes |sql| using the statement cache, and returns all its rows.
func (s *Session) Read(ctx context.Context, sql string, args Args) ([]Row, error) {
	var rows []Row
	var err = s.do(ctx, "read", func(context.Context) error {
		var st, err = s.cache.getOrPrepare(sql)
		if err != nil {
			return err
		}
		rows, err = s.run(st, args)
		return err
	})
	return rows, err
}

// Execute prepares |sql| outside of the statement cache, executes it, and
// returns its rows. The statement is finalized before Execute returns.
func (s *Session) Execute(ctx context.Context, sql string, args Args) ([]Row, error) {
	var rows []Row
	var err = s.do(ctx, "execute", func(context.Context) error {
		var st, err = s.monitor.prepare(sql)
		if err != nil {
			return err
		}
		defer st.finalize()

		rows, err = s.run(st, args)
		return err
	})
	return rows, err
}

// ExecuteRaw is Execute without arguments, as is typical of DDL and PRAGMAs.
func (s *Session) ExecuteRaw(ctx context.Context, sql string) ([]Row, error) {
	return s.Execute(ctx, sql, nil)
}

// ExecScript executes each statement of a multi-statement |script| in order,
// stopping at the first failure. Results are discarded.
func (s *Session) ExecScript(ctx context.Context, script string) error {
	return s.do(ctx, "exec_script", func(context.Context) error {
		var _, writes, err = s.monitor.collect(func() error {
			var _, err = s.conn.ExecContext(context.Background(), script, nil)
			return err
		})
		// Statements preceding a failure may have applied.
		s.monitor.touchCommitted(writes)

		if err != nil {
			return &Error{Kind: StepFailure, Code: codeOf(err), SQL: script, Err: err}
		}
		return nil
	})
}

// HasOpenTransactions returns true iff an InTransaction block is executing.
func (s *Session) HasOpenTransactions() bool { return s.depth.Load() != 0 }

// CompileOptions returns the options with which SQLite was compiled, as
// reported by `PRAGMA compile_options` (eg, "ENABLE_FTS5", "THREADSAFE=1").
func (s *Session) CompileOptions() []string {
	return append([]string(nil), s.compileOptions...)
}

// IsCompileOptionEnabled returns whether SQLite was compiled with option
// |name|. The "SQLITE_" prefix is optional, and any "=value" is ignored.
func (s *Session) IsCompileOptionEnabled(name string) bool {
	name = strings.TrimPrefix(strings.ToUpper(name), "SQLITE_")
	for _, opt := range s.compileOptions {
		if i := strings.IndexByte(opt, '='); i != -1 {
			opt = opt[:i]
		}
		if strings.EqualFold(opt, name) {
			return true
		}
	}
	return false
}

// SupportsJSON returns whether the SQLite JSON functions are available.
func (s *Session) SupportsJSON() bool { return s.supportsJSON }

// CanObserve returns whether queries of this Session may be observed.
// Observation requires the authorizer, through which the tables read by a
// statement are determined.
func (s *Session) CanObserve() bool { return !s.IsCompileOptionEnabled("OMIT_AUTHORIZATION") }

// Close the Session. Observers are removed, cached statements are finalized,
// and the connection is closed. A failure to close the connection is logged
// and returned as a CloseFailure. Close is idempotent: calls after the first
// return nil. Within an InTransaction block, use CloseContext instead.
func (s *Session) Close() error { return s.CloseContext(context.Background()) }

// CloseContext is Close, where |ctx| may be the Context of an InTransaction
// block. Then the Session is closed once the outermost block completes:
// further operations of the block fail with ErrSessionClosed, the enclosing
// transaction commits or rolls back as usual, and the connection is then
// closed. A failure to close it is logged.
func (s *Session) CloseContext(ctx context.Context) error {
	if s.onWorker(ctx) {
		s.closing = true
		return nil
	}
	var err = s.do(ctx, "close", func(context.Context) error { return s.close() })
	if err == ErrSessionClosed {
		return nil
	}
	return err
}

func (s *Session) close() error {
	s.monitor.removeAll()
	s.cache.purge()
	s.closed.Store(true)

	if err := s.conn.Close(); err != nil {
		log.WithFields(log.Fields{
			"path": s.cfg.Path,
			"err":  err,
		}).Error("failed to close connection")
		return &Error{Kind: CloseFailure, Code: codeOf(err), Path: s.cfg.Path, Err: err}
	}
	log.WithField("path", s.cfg.Path).Debug("closed session")
	return nil
}

// do runs |fn| on the worker. If |ctx| is already executing on the worker,
// |fn| is run inline. Otherwise it's submitted, and do blocks until the worker
// has run it. |ctx| may abort a submission which the worker has yet to accept,
// but not a running |fn|. A panic of |fn| is re-raised by do.
func (s *Session) do(ctx context.Context, name string, fn func(context.Context) error) error {
	if s.onWorker(ctx) {
		if s.closed.Load() || s.closing {
			return ErrSessionClosed
		}
		return s.timed(ctx, name, fn)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	var o = &op{
		name: name,
		fn:   fn,
		done: make(async.Promise),
	}
	o.ctx = context.WithValue(context.WithoutCancel(ctx), workerKey{}, o)

	select {
	case s.ops <- o:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	o.done.Wait()

	if o.panicked != nil {
		panic(o.panicked)
	}
	return o.err
}

// onWorker returns whether |ctx| belongs to the operation which this
// Session's worker is currently running.
func (s *Session) onWorker(ctx context.Context) bool {
	var o, _ = ctx.Value(workerKey{}).(*op)
	return o != nil && o == s.current.Load()
}

// timed runs |fn| and records its outcome and duration.
func (s *Session) timed(ctx context.Context, name string, fn func(context.Context) error) error {
	var start = time.Now()
	var err = fn(ctx)

	metrics.OperationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(name, metrics.Fail).Inc()
	} else {
		metrics.OperationsTotal.WithLabelValues(name, metrics.Ok).Inc()
	}
	return err
}

// serve is the worker loop. Once an operation's caller is released, changes
// it committed are dispatched to affected observers. The loop exits after
// the Session is closed.
func (s *Session) serve() {
	defer s.done.Resolve()

	for o := range s.ops {
		s.runOp(o)

		if s.closing && !s.closed.Load() {
			_ = s.close() // Logged on failure.
		}
		if s.closed.Load() {
			return
		}
		s.monitor.flush()
	}
}

func (s *Session) runOp(o *op) {
	s.current.Store(o)

	defer func() {
		s.current.Store(nil)
		if r := recover(); r != nil {
			o.panicked = r
		}
		o.done.Resolve()
	}()
	o.err = s.timed(o.ctx, o.name, o.fn)
}

// run executes |st| on behalf of a caller, first marking the tables it may
// write as changed.
func (s *Session) run(st *statement, args Args) ([]Row, error) {
	s.monitor.touch(st.writes)
	return st.run(args)
}

// readCompileOptions returns the rows of `PRAGMA compile_options`.
func readCompileOptions(conn *sqlite3.SQLiteConn) ([]string, error) {
	var st, err = prepare(conn, "PRAGMA compile_options")
	if err != nil {
		return nil, err
	}
	defer st.finalize()

	rows, err := st.run(nil)
	if err != nil {
		return nil, err
	}
	var out = make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.At(0).Text())
	}
	return out, nil
}

// execStatement runs |sql| through the statement cache, discarding rows.
// It's used for transaction control statements issued on the worker.
func (s *Session) execStatement(sql string) error {
	var st, err = s.cache.getOrPrepare(sql)
	if err != nil {
		return err
	}
	_, err = st.run(nil)
	return err
}
