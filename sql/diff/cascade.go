package diff

import (
	"context"

	"github.com/nanopg/nanopg/sql/ident"
	"github.com/nanopg/nanopg/sql/pgwire"
	"github.com/nanopg/nanopg/sql/sqltmpl"
)

// Cascade lists objects that depend on the given OID: pg_depend rows
// with deptype 'n' that point directly at it are joined to pg_proc,
// pg_type, and pg_class (restricted to relkind 'r' and 'v') rows, and
// the result is deduplicated by qualified name. Only direct dependents
// are returned (not dependents of dependents), and pg_attrdef
// (column-default) dependents are not queried.
func Cascade(ctx context.Context, conn *pgwire.Conn, oid uint32) ([]ident.Id, error) {
	tmpl := sqltmpl.New(
		"SELECT DISTINCT n.nspname, ",
		"COALESCE(c.relname, p.proname, t.typname) AS name ",
		"FROM pg_depend d ",
		"LEFT JOIN pg_class c ON c.oid = d.objid AND d.classid = 'pg_class'::regclass AND c.relkind IN ('r','v') ",
		"LEFT JOIN pg_proc p ON p.oid = d.objid AND d.classid = 'pg_proc'::regclass ",
		"LEFT JOIN pg_type t ON t.oid = d.objid AND d.classid = 'pg_type'::regclass ",
		"LEFT JOIN pg_namespace n ON n.oid = COALESCE(c.relnamespace, p.pronamespace, t.typnamespace) ",
		"WHERE d.refobjid = ", sqltmpl.Param(oid), " AND d.deptype = 'n' ",
		"AND (c.oid IS NOT NULL OR p.oid IS NOT NULL OR t.oid IS NOT NULL)",
	)
	h := conn.Query(ctx, pgwire.Full, tmpl, pgwire.QueryOptions{})
	res, err := h.Wait()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []ident.Id
	for _, row := range res.Rows {
		schema, _ := row.Get("nspname").(string)
		name, _ := row.Get("name").(string)
		if name == "" {
			continue
		}
		id := ident.New(schema, name)
		key := id.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, id)
	}
	return out, nil
}
