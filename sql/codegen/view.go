package codegen

import (
	"github.com/dave/jennifer/jen"

	"github.com/nanopg/nanopg/sql/introspect"
)

// genView renders a view's inferred output shape (from
// introspect.ViewFields, populated ahead of generation since it
// requires a live DESCRIBE round-trip) as a record type plus row
// mapper, identically to a read-only composite.
func (g *Generator) genView(f *jen.File, v introspect.PgView) {
	typeName := g.Namer.Type(v.Name)
	f.Commentf("%s is the generated binding for the %s.%s view.", typeName, v.Schema, v.Name)
	f.Type().Id(typeName).StructFunc(func(grp *jen.Group) {
		for _, field := range v.Fields {
			g.structField(grp, v.Schema, field)
		}
	})
	g.genRowMapper(f, v.Schema, typeName, v.Fields)
}
