package session

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.livesql.dev/core/async"
)

// Encoder maps a value into the Args of a statement.
type Encoder[T any] interface {
	Encode(T) (Args, error)
}

// Decoder maps a result Row into a value.
type Decoder[T any] interface {
	Decode(Row) (T, error)
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc[T any] func(T) (Args, error)

// Encode invokes the EncoderFunc.
func (f EncoderFunc[T]) Encode(v T) (Args, error) { return f(v) }

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc[T any] func(Row) (T, error)

// Decode invokes the DecoderFunc.
func (f DecoderFunc[T]) Decode(r Row) (T, error) { return f(r) }

// ReadAs reads |sql| and decodes each of its rows.
func ReadAs[T any](ctx context.Context, s *Session, dec Decoder[T], sql string, args Args) ([]T, error) {
	var rows, err = s.Read(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	return decodeAll(dec, rows)
}

// WriteAll encodes each of |values| and writes it with |sql|. All writes
// happen within one transaction: if any fails, none are applied.
func WriteAll[T any](ctx context.Context, s *Session, enc Encoder[T], sql string, values []T) error {
	return s.InTransaction(ctx, func(ctx context.Context) error {
		for i, v := range values {
			var args, err = enc.Encode(v)
			if err != nil {
				return errors.WithMessagef(err, "encoding value %d", i)
			}
			if err = s.Write(ctx, sql, args); err != nil {
				return err
			}
		}
		return nil
	})
}

// ObserveAs observes |sql| and delivers decoded results to |callback|. A
// result which fails to decode is logged and not delivered.
func ObserveAs[T any](ctx context.Context, s *Session, dec Decoder[T], sql string, args Args,
	queue async.Queue, callback func([]T)) (ObserverID, error) {

	return s.Observe(ctx, sql, args, queue, func(rows []Row) {
		var out, err = decodeAll(dec, rows)
		if err != nil {
			log.WithFields(log.Fields{"sql": sql, "err": err}).Warn("failed to decode observed rows")
			return
		}
		callback(out)
	})
}

func decodeAll[T any](dec Decoder[T], rows []Row) ([]T, error) {
	var out = make([]T, 0, len(rows))
	for _, row := range rows {
		var v, err = dec.Decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Int64 returns the INTEGER of column |name|.
func (r Row) Int64(name string) (int64, error) {
	var v, err = r.lookup(name, Integer)
	return v.i, err
}

// Float64 returns the REAL (or INTEGER, converted) of column |name|.
func (r Row) Float64(name string) (float64, error) {
	var v, err = r.lookup(name, Real, Integer)
	return v.Float64(), err
}

// Text returns the TEXT of column |name|.
func (r Row) Text(name string) (string, error) {
	var v, err = r.lookup(name, Text)
	return v.s, err
}

// Blob returns the BLOB of column |name|.
func (r Row) Blob(name string) ([]byte, error) {
	var v, err = r.lookup(name, Blob)
	return v.b, err
}

// Bool returns the boolean of column |name|, which must be the INTEGER 0 or 1.
func (r Row) Bool(name string) (bool, error) {
	var v, err = r.lookup(name, Integer)
	if err != nil {
		return false, err
	} else if v.i != 0 && v.i != 1 {
		return false, &Error{Kind: DecodeFailure, Param: name,
			Err: errors.Errorf("expected 0 or 1, not %d", v.i)}
	}
	return v.i == 1, nil
}

// IsNull returns whether column |name| is NULL.
func (r Row) IsNull(name string) (bool, error) {
	var v, ok = r.Get(name)
	if !ok {
		return false, &Error{Kind: DecodeFailure, Param: name, Err: errors.New("no such column")}
	}
	return v.IsNull(), nil
}

// lookup returns the Value of column |name|, which must be of one of |kinds|.
func (r Row) lookup(name string, kinds ...Kind) (Value, error) {
	var v, ok = r.Get(name)
	if !ok {
		return Value{}, &Error{Kind: DecodeFailure, Param: name, Err: errors.New("no such column")}
	}
	for _, k := range kinds {
		if v.kind == k {
			return v, nil
		}
	}
	return Value{}, &Error{Kind: DecodeFailure, Param: name,
		Err: errors.Errorf("expected %s, not %s", kinds[0], v.kind)}
}
