// Package bind implements the five call-site shapes spec.md §4.I
// assigns to a generated routine binding, selected by the generator
// from (routineKind, returnsRow, returnsSet): bindProcedure for a
// procedure call with no result, bindQueryRowList/bindQueryRowOrNull
// for a function whose result is itself a row, and
// bindQueryValueList/bindQueryValue for a function whose result is a
// single scalar column. Each generated routine wrapper builds its
// sqltmpl.Template and calls exactly one of these, rather than
// duplicating the pgwire.Conn.Query/Wait/decode sequence per routine.
package bind

import (
	"context"

	"github.com/nanopg/nanopg/sql/pgwire"
	"github.com/nanopg/nanopg/sql/sqltmpl"
)

// RowScanner decodes one pgwire.Row into a T value, generated per
// row-shaped type by codegen's genRowMapper.
type RowScanner[T any] func(pgwire.Row) (T, error)

// Procedure calls a routine purely for its side effects, per
// spec.md's bindProcedure shape.
func Procedure(ctx context.Context, conn *pgwire.Conn, tmpl *sqltmpl.Template) error {
	h := conn.Query(ctx, pgwire.Void, tmpl, pgwire.QueryOptions{})
	_, err := h.Wait()
	return err
}

// QueryRowList calls a set-returning, row-shaped routine and decodes
// every row, per spec.md's bindQueryRowList shape.
func QueryRowList[T any](ctx context.Context, conn *pgwire.Conn, tmpl *sqltmpl.Template, scan RowScanner[T]) ([]T, error) {
	h := conn.Query(ctx, pgwire.Full, tmpl, pgwire.QueryOptions{})
	res, err := h.Wait()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(res.Rows))
	for _, row := range res.Rows {
		v, err := scan(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// QueryRowOrNull calls a single-row-returning, row-shaped routine, per
// spec.md's bindQueryRowOrNull shape, returning nil when the routine
// produced no row.
func QueryRowOrNull[T any](ctx context.Context, conn *pgwire.Conn, tmpl *sqltmpl.Template, scan RowScanner[T]) (*T, error) {
	rows, err := QueryRowList(ctx, conn, tmpl, scan)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// QueryValueList calls a set-returning, scalar-shaped routine, per
// spec.md's bindQueryValueList shape.
func QueryValueList[T any](ctx context.Context, conn *pgwire.Conn, tmpl *sqltmpl.Template) ([]T, error) {
	h := conn.Query(ctx, pgwire.Value, tmpl, pgwire.QueryOptions{})
	res, err := h.Wait()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(res.Rows))
	for _, row := range res.Rows {
		v, _ := row.Values[0].(T)
		out = append(out, v)
	}
	return out, nil
}

// QueryValue calls a non-set-returning, scalar-shaped routine, per
// spec.md's bindQueryValue shape.
func QueryValue[T any](ctx context.Context, conn *pgwire.Conn, tmpl *sqltmpl.Template) (T, error) {
	h := conn.Query(ctx, pgwire.Value, tmpl, pgwire.QueryOptions{})
	res, err := h.Wait()
	if err != nil {
		var zero T
		return zero, err
	}
	var zero T
	if len(res.Rows) == 0 {
		return zero, nil
	}
	v, _ := res.Rows[0].Values[0].(T)
	return v, nil
}
