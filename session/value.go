package session

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Kind is the storage class of a Value.
type Kind int

const (
	Null Kind = iota
	Integer
	Real
	Text
	Blob
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "NULL"
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	case Blob:
		return "BLOB"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a typed scalar which is bound to a statement placeholder, or read
// from a result column. The zero Value is NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// NullValue returns the NULL Value.
func NullValue() Value { return Value{} }

// IntegerValue returns an INTEGER Value.
func IntegerValue(i int64) Value { return Value{kind: Integer, i: i} }

// RealValue returns a REAL Value.
func RealValue(f float64) Value { return Value{kind: Real, f: f} }

// TextValue returns a TEXT Value.
func TextValue(s string) Value { return Value{kind: Text, s: s} }

// BlobValue returns a BLOB Value. A nil |b| is a zero-length BLOB, not NULL.
func BlobValue(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: Blob, b: b}
}

// BoolValue returns an INTEGER Value of 1 or 0.
func BoolValue(b bool) Value {
	if b {
		return IntegerValue(1)
	}
	return IntegerValue(0)
}

// Kind of the Value.
func (v Value) Kind() Kind { return v.kind }

// IsNull is true if the Value is NULL.
func (v Value) IsNull() bool { return v.kind == Null }

// Int64 returns the integer of an INTEGER Value, the truncation of a REAL
// Value, and zero otherwise.
func (v Value) Int64() int64 {
	switch v.kind {
	case Integer:
		return v.i
	case Real:
		return int64(v.f)
	}
	return 0
}

// Float64 returns the float of a REAL or INTEGER Value, and zero otherwise.
func (v Value) Float64() float64 {
	switch v.kind {
	case Real:
		return v.f
	case Integer:
		return float64(v.i)
	}
	return 0
}

// Text returns the string of a TEXT or BLOB Value, and "" otherwise.
func (v Value) Text() string {
	switch v.kind {
	case Text:
		return v.s
	case Blob:
		return string(v.b)
	}
	return ""
}

// Blob returns the bytes of a BLOB or TEXT Value, and nil otherwise.
func (v Value) Blob() []byte {
	switch v.kind {
	case Blob:
		return v.b
	case Text:
		return []byte(v.s)
	}
	return nil
}

// String formats the Value for display.
func (v Value) String() string {
	switch v.kind {
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Real:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Text:
		return v.s
	case Blob:
		return fmt.Sprintf("x'%x'", v.b)
	default:
		return "NULL"
	}
}

func (v Value) driverValue() driver.Value {
	switch v.kind {
	case Integer:
		return v.i
	case Real:
		return v.f
	case Text:
		return v.s
	case Blob:
		return v.b
	default:
		return nil
	}
}

// valueOf maps a column value produced by the driver into a Value. The driver
// surfaces BOOLEAN and DATE/DATETIME/TIMESTAMP declared columns as bool and
// time.Time, which are mapped back onto INTEGER and TEXT respectively.
func valueOf(dv driver.Value) Value {
	switch x := dv.(type) {
	case nil:
		return NullValue()
	case int64:
		return IntegerValue(x)
	case float64:
		return RealValue(x)
	case string:
		return TextValue(x)
	case []byte:
		// The driver re-uses no buffers, but copy to be certain Rows are immutable.
		return BlobValue(append([]byte{}, x...))
	case bool:
		return BoolValue(x)
	case time.Time:
		return TextValue(x.Format(sqlite3.SQLiteTimestampFormats[0]))
	default:
		return TextValue(fmt.Sprint(x))
	}
}

// Args maps placeholder names (without their ":", "@" or "$" sigil) to
// the Values bound to them.
type Args map[string]Value

// Row is one row of a result: its ordered columns and their Values.
// Rows are immutable once returned.
type Row struct {
	columns []string
	values  []Value
}

// NewRow returns a Row of the given columns and values, which must have
// equal length.
func NewRow(columns []string, values ...Value) Row {
	if len(columns) != len(values) {
		panic(fmt.Sprintf("%d columns but %d values", len(columns), len(values)))
	}
	return Row{
		columns: append([]string(nil), columns...),
		values:  append([]Value(nil), values...),
	}
}

// Len is the number of columns of the Row.
func (r Row) Len() int { return len(r.columns) }

// Columns returns the ordered column names of the Row.
func (r Row) Columns() []string { return append([]string(nil), r.columns...) }

// Values returns the ordered Values of the Row.
func (r Row) Values() []Value { return append([]Value(nil), r.values...) }

// Column returns the name of the |i|th column.
func (r Row) Column(i int) string { return r.columns[i] }

// At returns the Value of the |i|th column.
func (r Row) At(i int) Value { return r.values[i] }

// Get returns the Value of the first column named |name|.
func (r Row) Get(name string) (Value, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return Value{}, false
}

// String formats the Row as "{col: value, ...}".
func (r Row) String() string {
	var b = []byte{'{'}
	for i := range r.columns {
		if i != 0 {
			b = append(b, ", "...)
		}
		b = append(b, r.columns[i]...)
		b = append(b, ": "...)
		b = append(b, r.values[i].String()...)
	}
	return string(append(b, '}'))
}
