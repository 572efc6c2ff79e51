package codegen

import (
	"github.com/dave/jennifer/jen"

	"github.com/nanopg/nanopg/sql/introspect"
	"github.com/nanopg/nanopg/sql/sqlparse"
)

// genTable renders a table's three Go shapes, per spec.md §4.I: the
// at-rest record type (every column), the insert shape (identity-
// always columns removed; not-null-without-default columns required,
// the rest pointer/optional), and the upsert shape (the insert shape
// plus any primary-key column the insert shape had dropped, since an
// upsert's ON CONFLICT target must be addressable even when it is
// always-generated).
func (g *Generator) genTable(f *jen.File, t introspect.PgTable) {
	typeName := g.Namer.Type(t.Name)
	f.Commentf("%s is the generated binding for the %s.%s table.", typeName, t.Schema, t.Name)
	f.Type().Id(typeName).StructFunc(func(grp *jen.Group) {
		for _, field := range t.Fields {
			g.structField(grp, t.Schema, field)
		}
	})
	g.genRowMapper(f, t.Schema, typeName, t.Fields)

	insertName := typeName + "Insert"
	insertFields, insertOmit := g.insertShape(t)
	f.Commentf("%s is the insert shape for %s.%s: identity-always columns are", insertName, t.Schema, t.Name)
	f.Comment("omitted, and not-null columns without a default are required.")
	f.Type().Id(insertName).StructFunc(func(grp *jen.Group) {
		for _, field := range insertFields {
			g.insertStructField(grp, t.Schema, field, t)
		}
	})

	upsertName := typeName + "Upsert"
	upsertFields := g.upsertShape(t, insertFields, insertOmit)
	f.Commentf("%s is %s plus any primary-key column the insert shape omits,", upsertName, insertName)
	f.Comment("so an upsert's conflict target is always addressable.")
	f.Type().Id(upsertName).StructFunc(func(grp *jen.Group) {
		for _, field := range upsertFields {
			g.insertStructField(grp, t.Schema, field, t)
		}
	})
}

// insertShape returns the columns that belong in the insert struct
// (everything except identity-always columns) plus the set of column
// names omitted, keyed by name.
func (g *Generator) insertShape(t introspect.PgTable) ([]introspect.PgField, map[string]bool) {
	omit := map[string]bool{}
	var fields []introspect.PgField
	for i, field := range t.Fields {
		if t.Identity[i] == sqlparse.IdentityAlways {
			omit[field.Name] = true
			continue
		}
		fields = append(fields, field)
	}
	return fields, omit
}

// upsertShape adds back any primary-key-bearing column the insert
// shape dropped, so ON CONFLICT has a target to key on.
func (g *Generator) upsertShape(t introspect.PgTable, insertFields []introspect.PgField, omit map[string]bool) []introspect.PgField {
	fields := append([]introspect.PgField(nil), insertFields...)
	pkSet := map[string]bool{}
	for _, pk := range t.PrimaryKey {
		pkSet[pk] = true
	}
	for _, field := range t.Fields {
		if omit[field.Name] && pkSet[field.Name] {
			fields = append(fields, field)
		}
	}
	return fields
}

// insertStructField renders a field for an insert/upsert shape: a
// not-null column with no default is required (value type); every
// other included column is optional (pointer type), letting the
// caller omit it to fall back to the column's default or NULL.
func (g *Generator) insertStructField(grp *jen.Group, schema string, field introspect.PgField, t introspect.PgTable) {
	shape := g.fieldGoType(schema, field)
	name := g.Namer.Field(field.Name)
	if requiredOnInsert(field, t) {
		grp.Id(name).Add(shape.Type).Tag(map[string]string{"db": field.Name})
		return
	}
	optType := shape.Type
	if field.NDims == 0 {
		optType = jen.Op("*").Add(shape.Type)
	}
	grp.Id(name).Add(optType).Tag(map[string]string{"db": field.Name})
}

func requiredOnInsert(field introspect.PgField, t introspect.PgTable) bool {
	for i, f := range t.Fields {
		if f.Name == field.Name {
			return !field.Nullable && !t.HasDefault[i]
		}
	}
	return !field.Nullable
}
