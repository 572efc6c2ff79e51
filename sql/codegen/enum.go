package codegen

import (
	"github.com/dave/jennifer/jen"

	"github.com/nanopg/nanopg/sql/introspect"
)

// Enum renders one Postgres enum type as a defined string type plus
// its ordered label constants, grounded in the teacher's gen/sql
// entity.go pattern of emitting a jen.Type().Id(...).String() pair
// followed by a const block of typed values, adapted here to enum
// labels instead of column-derived field names.
func (g *Generator) genEnum(f *jen.File, e introspect.PgEnum) {
	typeName := g.Namer.Type(e.Name)

	f.Commentf("%s is the generated binding for the %s.%s enum.", typeName, e.Schema, e.Name)
	f.Type().Id(typeName).String()

	constNames := make([]string, len(e.Labels))
	group := f.Const()
	group.Defs(constDefs(typeName, e.Labels, constNames)...)

	f.Func().Params(jen.Id("v").Id(typeName)).Id("Valid").Params().Bool().Block(
		jen.Switch(jen.Id("v")).Block(
			caseValidLabels(typeName, constNames)...,
		),
	)
}

func constDefs(typeName string, labels []string, outNames []string) []jen.Code {
	defs := make([]jen.Code, 0, len(labels))
	for i, label := range labels {
		name := typeName + labelConstSuffix(label)
		outNames[i] = name
		defs = append(defs, jen.Id(name).Id(typeName).Op("=").Lit(label))
	}
	return defs
}

func caseValidLabels(typeName string, constNames []string) []jen.Code {
	cases := make([]jen.Code, 0, len(constNames)+1)
	ids := make([]jen.Code, len(constNames))
	for i, n := range constNames {
		ids[i] = jen.Id(n)
	}
	cases = append(cases, jen.Case(ids...).Block(jen.Return(jen.True())))
	cases = append(cases, jen.Default().Block(jen.Return(jen.False())))
	return cases
}

// labelConstSuffix renders an enum label as a PascalCase Go identifier
// suffix, always fully cased regardless of the configured Namer.Casing
// since enum label constants are not column-derived field names.
func labelConstSuffix(label string) string {
	return pascalCase(label)
}
