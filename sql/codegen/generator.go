// Package codegen renders an introspected namespace into Go source,
// per spec.md §4.I: one file per schema declaring a Go type for every
// enum, composite, table, view and a binding function for every
// routine. Grounded in syssam-velox's compiler/gen/sql/entity.go,
// which builds dave/jennifer/jen.File values field-by-field from a
// catalog-derived entity description; the per-kind generator
// functions here (genEnum, genComposite, genTable, genView,
// genRoutine) follow that same "walk the introspected shape, emit a
// jen.Type/jen.Func per object" structure, adapted to the tagged-union
// object model sql/sqlparse and sql/introspect define instead of
// velox's ent-derived schema.
package codegen

import (
	"fmt"
	"sort"

	"github.com/dave/jennifer/jen"

	"github.com/nanopg/nanopg/sql/introspect"
)

// Config selects the rendering options spec.md §6 exposes for the
// generate step.
type Config struct {
	PackageName string
	Namer       Namer
	// ModuleRoot is the Go import path prefix under which each schema's
	// generated package lives, e.g. "myapp" for a per-schema layout of
	// "myapp/gen/<schema>".
	ModuleRoot string
}

// Generator renders one or more introspected namespaces into Go
// source files, resolving cross-namespace type references against the
// full catalog so a table in one schema can reference an enum defined
// in another.
type Generator struct {
	Config
	Namer Namer

	catalog map[string]*introspect.Namespace // schema -> namespace, across every generated schema
	typeOID map[uint32]resolvedType          // OID -> the schema/name/kind that declared it
}

type resolvedType struct {
	schema string
	name   string
	kind   string // "enum", "composite", "table"
}

// NewGenerator builds a Generator over the full set of introspected
// namespaces, indexing every enum/composite/table OID up front so
// field types can be resolved regardless of declaration order.
func NewGenerator(cfg Config, namespaces map[string]*introspect.Namespace) *Generator {
	g := &Generator{
		Config:  cfg,
		Namer:   cfg.Namer,
		catalog: namespaces,
		typeOID: map[uint32]resolvedType{},
	}
	for _, ns := range namespaces {
		for _, e := range ns.EnumTypes {
			g.typeOID[e.OID] = resolvedType{ns.Schema, e.Name, "enum"}
		}
		for _, c := range ns.CompositeTypes {
			g.typeOID[c.OID] = resolvedType{ns.Schema, c.Name, "composite"}
		}
		for _, t := range ns.Tables {
			g.typeOID[t.OID] = resolvedType{ns.Schema, t.Name, "table"}
		}
	}
	return g
}

// GenerateNamespace renders every object declared in ns into a single
// jen.File named after the Config's package name.
func (g *Generator) GenerateNamespace(ns *introspect.Namespace) *jen.File {
	f := jen.NewFile(g.PackageName)
	f.HeaderComment("Code generated by nanopg. DO NOT EDIT.")

	for _, e := range sortedEnums(ns.EnumTypes) {
		g.genEnum(f, e)
	}
	for _, c := range sortedComposites(ns.CompositeTypes) {
		g.genComposite(f, c)
	}
	for _, t := range sortedTables(ns.Tables) {
		g.genTable(f, t)
	}
	for _, v := range sortedViews(ns.Views) {
		g.genView(f, v)
	}
	for _, r := range sortedRoutines(ns.Routines) {
		g.genRoutine(f, r)
	}
	return f
}

func sortedEnums(in []introspect.PgEnum) []introspect.PgEnum {
	out := append([]introspect.PgEnum(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedComposites(in []introspect.PgComposite) []introspect.PgComposite {
	out := append([]introspect.PgComposite(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedTables(in []introspect.PgTable) []introspect.PgTable {
	out := append([]introspect.PgTable(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedViews(in []introspect.PgView) []introspect.PgView {
	out := append([]introspect.PgView(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedRoutines(in []introspect.PgRoutine) []introspect.PgRoutine {
	out := append([]introspect.PgRoutine(nil), in...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return len(out[i].ParamTypes) < len(out[j].ParamTypes)
	})
	return out
}

// fieldGoType resolves a PgField's OID to its generated Go type,
// falling back to builtinGoType for scalars and to a cross-referenced
// named type (qualified with its declaring package when the
// referenced type lives in a different schema than pkg) for
// enum/composite/table OIDs.
func (g *Generator) fieldGoType(pkg string, field introspect.PgField) GoShape {
	if rt, ok := g.typeOID[field.TypeOID]; ok {
		typeName := g.Namer.Type(rt.name)
		var base jen.Code
		if rt.schema == pkg {
			base = jen.Id(typeName)
		} else {
			base = jen.Qual(g.importPathFor(rt.schema), typeName)
		}
		decoder := "composite"
		if rt.kind == "enum" {
			decoder = ""
		}
		shape := GoShape{Type: base, Decoder: decoder}
		for i := 0; i < field.NDims; i++ {
			shape.Type = jen.Index().Add(shape.Type)
			shape.Decoder = "array"
		}
		if field.Nullable && field.NDims == 0 {
			shape.Type = jen.Op("*").Add(shape.Type)
		}
		return shape
	}
	return builtinGoType(field.TypeOID, field.Nullable, field.NDims)
}

// importPathFor renders the Go import path for a cross-namespace
// reference, per spec.md §4.I's cross-namespace import rule: every
// non-public schema's generated package is importable by name; the
// public schema's package has no distinguishing prefix and is
// imported under its own package name like any other.
func (g *Generator) importPathFor(schema string) string {
	return fmt.Sprintf("%s/gen/%s", g.ModuleRoot, schema)
}
