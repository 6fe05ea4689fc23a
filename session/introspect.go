package session

import (
	"context"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Tables returns the names of the database's tables, in catalog order.
func (s *Session) Tables(ctx context.Context) ([]string, error) {
	var rows, err = s.Read(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'", nil)
	if err != nil {
		return nil, err
	}
	var out = make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.At(0).Text())
	}
	return out, nil
}

// Columns returns the names of the columns of |table|, in declaration order.
// The columns of an unknown table are empty.
func (s *Session) Columns(ctx context.Context, table string) ([]string, error) {
	var rows, err = s.Read(ctx,
		"SELECT name FROM pragma_table_info(:table) ORDER BY cid",
		Args{"table": TextValue(table)})
	if err != nil {
		return nil, err
	}
	var out = make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.At(0).Text())
	}
	return out, nil
}

// UserVersion returns the database's user_version, which applications
// commonly use to track their schema version.
func (s *Session) UserVersion(ctx context.Context) (int64, error) {
	var rows, err = s.ExecuteRaw(ctx, "PRAGMA user_version")
	if err != nil {
		return 0, err
	} else if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].At(0).Int64(), nil
}

// SetUserVersion sets the database's user_version, a signed 32-bit integer.
func (s *Session) SetUserVersion(ctx context.Context, version int64) error {
	if version < math.MinInt32 || version > math.MaxInt32 {
		return errors.Errorf("invalid user_version %d (expected a 32-bit integer)", version)
	}
	// PRAGMA arguments cannot be bound.
	var _, err = s.ExecuteRaw(ctx, "PRAGMA user_version = "+strconv.FormatInt(version, 10))
	return err
}
