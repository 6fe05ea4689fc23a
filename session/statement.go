package session

import (
	"context"
	"database/sql/driver"
	"io"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// statement is a prepared SQL statement and the named placeholders it declares.
type statement struct {
	sql    string
	stmt   driver.Stmt
	params map[string]struct{}

	// Lower-cased names of the tables which the statement reads and writes,
	// where known. See monitor.prepare.
	reads, writes map[string]struct{}
}

// prepare compiles |sql| against |conn|.
func prepare(conn *sqlite3.SQLiteConn, sql string) (*statement, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, &Error{Kind: PrepareFailure, Code: sqlite3.ErrMisuse, SQL: sql,
			Err: errors.New("empty statement")}
	}
	var stmt, err = conn.Prepare(sql)
	if err != nil {
		return nil, &Error{Kind: PrepareFailure, Code: codeOf(err), SQL: sql, Err: err}
	}
	return &statement{
		sql:    sql,
		stmt:   stmt,
		params: placeholders(sql),
	}, nil
}

// finalize destroys the compiled statement.
func (st *statement) finalize() error { return st.stmt.Close() }

// bind maps |args| onto the statement's named placeholders. Every declared
// placeholder is bound, so values of a prior execution never carry over:
// placeholders absent from |args| are bound NULL.
func (st *statement) bind(args Args) ([]driver.NamedValue, error) {
	for name := range args {
		if _, ok := st.params[name]; !ok {
			return nil, &Error{Kind: MissingParameter, SQL: st.sql, Param: name}
		}
	}
	var named = make([]driver.NamedValue, 0, len(st.params))
	for name := range st.params {
		named = append(named, driver.NamedValue{
			Name:    name,
			Ordinal: len(named) + 1,
			Value:   args[name].driverValue(),
		})
	}
	return named, nil
}

// run binds |args|, steps the statement to completion, and returns its rows.
// The statement is reset on every return path, leaving it ready for re-use.
func (st *statement) run(args Args) (rows []Row, err error) {
	var named []driver.NamedValue
	if named, err = st.bind(args); err != nil {
		return nil, err
	}

	var qs, ok = st.stmt.(driver.StmtQueryContext)
	if !ok {
		return nil, &Error{Kind: StepFailure, SQL: st.sql,
			Err: errors.Errorf("driver statement %T cannot be queried", st.stmt)}
	}
	dr, err := qs.QueryContext(context.Background(), named)
	if err != nil {
		return nil, &Error{Kind: BindFailure, Code: codeOf(err), SQL: st.sql, Err: err}
	}
	defer func() {
		// Closing the driver rows resets the statement. It returns the code
		// of a failed step, which has already been reported.
		if cerr := dr.Close(); cerr != nil && err == nil {
			rows, err = nil, &Error{Kind: StepFailure, Code: codeOf(cerr), SQL: st.sql, Err: cerr}
		}
	}()

	var columns = dr.Columns()
	var dest = make([]driver.Value, len(columns))

	for {
		if err = dr.Next(dest); err == io.EOF {
			return rows, nil
		} else if err != nil && codeOf(err) == sqlite3.ErrInterrupt {
			return rows, nil
		} else if err != nil {
			return nil, &Error{Kind: StepFailure, Code: codeOf(err), SQL: st.sql, Err: err}
		}

		var values = make([]Value, len(dest))
		for i := range dest {
			values[i] = valueOf(dest[i])
		}
		rows = append(rows, Row{columns: columns, values: values})
	}
}
