package introspect

import (
	"context"
	"fmt"

	"github.com/nanopg/nanopg/sql/pgwire"
	"github.com/nanopg/nanopg/sql/sqltmpl"
)

// ViewFields infers a view's output field shapes, per spec.md §4.F:
// views are introspected with deferred field inference, since the raw
// pg_class row carries no column list. Runs a DESCRIBE-style probe
// against the view itself (a zero-row SELECT) and reads back the
// server's result field descriptors, which carry each column's type
// OID without requiring the row data.
//
// Every field comes back Nullable: true. A first-pass static analysis
// over the view's parsed subquery (propagate nullability from source
// columns, flip outer-joined columns nullable) is left unimplemented;
// see DESIGN.md.
func ViewFields(ctx context.Context, conn *pgwire.Conn, view *PgView) ([]PgField, error) {
	fields, err := describeFields(ctx, conn, view)
	if err != nil {
		return nil, fmt.Errorf("introspect: infer fields for view %s.%s: %w", view.Schema, view.Name, err)
	}
	return fields, nil
}

// describeFields runs a zero-row "SELECT * ... WHERE false" against the
// view so the server reports field descriptors without returning rows.
func describeFields(ctx context.Context, conn *pgwire.Conn, view *PgView) ([]PgField, error) {
	tmpl := sqltmpl.New("SELECT * FROM ", sqltmpl.ID(view.Schema, view.Name), " WHERE false")
	h := conn.Query(ctx, pgwire.Full, tmpl, pgwire.QueryOptions{})
	res, err := h.Wait()
	if err != nil {
		return nil, err
	}
	fields := make([]PgField, len(res.Fields))
	for i, f := range res.Fields {
		fields[i] = PgField{Name: f.Name, TypeOID: f.TypeOID, Nullable: true}
	}
	return fields, nil
}
