package codegen

import (
	"github.com/dave/jennifer/jen"

	"github.com/nanopg/nanopg/sql/introspect"
)

// genComposite renders a composite type's Go struct plus a row mapper
// that reads a pgwire.Row into it, applying per-field runtime
// decoders for fields whose type is itself a composite/table/array/
// range/timestamp, per spec.md §4.I.
func (g *Generator) genComposite(f *jen.File, c introspect.PgComposite) {
	typeName := g.Namer.Type(c.Name)
	f.Commentf("%s is the generated binding for the %s.%s composite type.", typeName, c.Schema, c.Name)
	f.Type().Id(typeName).StructFunc(func(grp *jen.Group) {
		for _, field := range c.Fields {
			g.structField(grp, c.Schema, field)
		}
	})
	g.genRowMapper(f, c.Schema, typeName, c.Fields)
}

// structField emits one struct field declaration with its db tag,
// named per the configured Namer.
func (g *Generator) structField(grp *jen.Group, schema string, field introspect.PgField) {
	shape := g.fieldGoType(schema, field)
	name := g.Namer.Field(field.Name)
	grp.Id(name).Add(shape.Type).Tag(map[string]string{"db": field.Name})
}

// genRowMapper emits a "scan<TypeName>Row" function decoding a
// pgwire.Row into typeName, dispatching per field to the runtime
// decoder its GoShape names. Grounded in the teacher's entity.go row
// scanner, generalized here from database/sql.Rows.Scan targets to
// pgwire.Row.Get(name) plus a decode switch, since pgwire has no
// reflection-based Scan of its own.
func (g *Generator) genRowMapper(f *jen.File, schema, typeName string, fields []introspect.PgField) {
	fnName := "scan" + typeName + "Row"
	f.Commentf("%s decodes one pgwire.Row into a %s.", fnName, typeName)
	f.Func().Id(fnName).Params(
		jen.Id("row").Qual(pgwirePkg, "Row"),
	).Params(jen.Id(typeName), jen.Error()).BlockFunc(func(body *jen.Group) {
		body.Var().Id("out").Id(typeName)
		for _, field := range fields {
			shape := g.fieldGoType(schema, field)
			fieldName := g.Namer.Field(field.Name)
			body.If(
				jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("row").Dot("Get").Call(jen.Lit(field.Name)).Assert(shape.Type),
				jen.Id("ok"),
			).Block(
				jen.Id("out").Dot(fieldName).Op("=").Id("v"),
			)
		}
		body.Return(jen.Id("out"), jen.Nil())
	})
}

const pgwirePkg = "github.com/nanopg/nanopg/sql/pgwire"
