package codegen

import (
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/nanopg/nanopg/sql/introspect"
)

const (
	bindPkg    = "github.com/nanopg/nanopg/sql/bind"
	sqltmplPkg = "github.com/nanopg/nanopg/sql/sqltmpl"
)

// routineShape is the per-routine classification the generator uses
// to pick a binding function, mirroring the (routineKind, returnsRow,
// returnsSet) triple spec.md §4.I names.
type routineShape struct {
	isProcedure bool
	returnsRow  bool
	returnsSet  bool
	named       bool // parameter names are all present and distinct -> named record, else positional tuple
}

func classifyRoutine(g *Generator, schema string, r introspect.PgRoutine) routineShape {
	var returnsRow bool
	if rt, ok := g.typeOID[r.ReturnTypeOID]; ok {
		returnsRow = rt.kind == "composite" || rt.kind == "table"
	}
	named := len(r.ParamNames) > 0
	seen := map[string]bool{}
	for _, n := range r.ParamNames {
		if n == "" || seen[n] {
			named = false
			break
		}
		seen[n] = true
	}
	return routineShape{
		isProcedure: r.Kind == "p",
		returnsRow:  returnsRow,
		returnsSet:  r.ReturnSet,
		named:       named,
	}
}

// genRoutine renders a routine's parameter shape (positional tuple
// when unnamed or single-parameter, otherwise a named record with
// default-bearing parameters ordered last), its result shape when row-shaped, and a
// wrapper function that builds the call's sqltmpl.Template and
// dispatches to the sql/bind function the routine's
// (kind, returnsRow, returnsSet) triple selects, per spec.md §4.I.
func (g *Generator) genRoutine(f *jen.File, r introspect.PgRoutine) {
	shape := classifyRoutine(g, r.Schema, r)
	fnName := g.Namer.Type(r.Name)
	requiredCount := len(r.ParamTypes) - r.NumDefaultArgs

	var paramTypeName string
	if shape.named && len(r.ParamNames) > 1 {
		paramTypeName = fnName + "Params"
		f.Commentf("%s is the named parameter record for %s.%s, defaults ordered last.", paramTypeName, r.Schema, r.Name)
		f.Type().Id(paramTypeName).StructFunc(func(grp *jen.Group) {
			for i, typeOID := range r.ParamTypes {
				name := g.Namer.Field(r.ParamNames[i])
				field := introspect.PgField{Name: r.ParamNames[i], TypeOID: typeOID, Nullable: i >= requiredCount}
				shape := g.fieldGoType(r.Schema, field)
				grp.Id(name).Add(shape.Type).Tag(map[string]string{"db": r.ParamNames[i]})
			}
		})
	}

	// resultTypeName only names a same-namespace row type; a routine
	// returning a row type declared in a different schema falls back to
	// the scalar bind path below, since the scan function it would need
	// is private to the declaring schema's generated package.
	var resultTypeName string
	if shape.returnsRow {
		if rt, ok := g.typeOID[r.ReturnTypeOID]; ok && rt.schema == r.Schema {
			resultTypeName = g.Namer.Type(rt.name)
		} else {
			shape.returnsRow = false
		}
	}

	bindFn, resultType := bindSelector(shape, resultTypeName)

	f.Commentf("%s calls the %s.%s routine.", fnName, r.Schema, r.Name)
	f.Func().Id(fnName).ParamsFunc(func(grp *jen.Group) {
		grp.Id("ctx").Qual("context", "Context")
		grp.Id("conn").Op("*").Qual(pgwirePkg, "Conn")
		switch {
		case paramTypeName != "":
			grp.Id("params").Id(paramTypeName)
		case len(r.ParamTypes) > 0:
			for i, typeOID := range r.ParamTypes {
				name := fmt.Sprintf("p%d", i)
				field := introspect.PgField{TypeOID: typeOID, Nullable: i >= requiredCount}
				grp.Id(name).Add(g.fieldGoType(r.Schema, field).Type)
			}
		}
	}).ParamsFunc(func(grp *jen.Group) {
		if resultType != nil {
			grp.Add(resultType)
		}
		grp.Error()
	}).BlockFunc(func(body *jen.Group) {
		g.genRoutineBody(body, r, shape, paramTypeName, bindFn, resultTypeName)
	})
}

// bindSelector picks the sql/bind function and wrapper result type
// from the routine's shape, per spec.md §4.I's
// (routineKind, returnsRow, returnsSet) -> bind function table.
func bindSelector(shape routineShape, resultTypeName string) (string, jen.Code) {
	switch {
	case shape.isProcedure:
		return "Procedure", nil
	case shape.returnsRow && shape.returnsSet:
		return "QueryRowList", jen.Index().Id(resultTypeName)
	case shape.returnsRow && !shape.returnsSet:
		return "QueryRowOrNull", jen.Op("*").Id(resultTypeName)
	case !shape.returnsRow && shape.returnsSet:
		return "QueryValueList", jen.Index().Any()
	default:
		return "QueryValue", jen.Any()
	}
}

func (g *Generator) genRoutineBody(body *jen.Group, r introspect.PgRoutine, shape routineShape, paramTypeName, bindFn, resultTypeName string) {
	body.Id("tmpl").Op(":=").Qual(sqltmplPkg, "New").CallFunc(func(args *jen.Group) {
		args.Lit(fmt.Sprintf("SELECT * FROM %s.%s(", r.Schema, r.Name))
		for i := range r.ParamTypes {
			if i > 0 {
				args.Lit(", ")
			}
			if paramTypeName != "" {
				name := g.Namer.Field(r.ParamNames[i])
				args.Qual(sqltmplPkg, "Param").Call(jen.Id("params").Dot(name))
			} else {
				args.Qual(sqltmplPkg, "Param").Call(jen.Id(fmt.Sprintf("p%d", i)))
			}
		}
		args.Lit(")")
	})

	switch bindFn {
	case "Procedure":
		body.Return(jen.Qual(bindPkg, "Procedure").Call(jen.Id("ctx"), jen.Id("conn"), jen.Id("tmpl")))
	case "QueryRowList", "QueryRowOrNull":
		body.Return(jen.Qual(bindPkg, bindFn).Index(jen.Id(resultTypeName)).Call(
			jen.Id("ctx"), jen.Id("conn"), jen.Id("tmpl"), jen.Id("scan"+resultTypeName+"Row"),
		))
	case "QueryValueList":
		body.Return(jen.Qual(bindPkg, "QueryValueList").Index(jen.Any()).Call(jen.Id("ctx"), jen.Id("conn"), jen.Id("tmpl")))
	default:
		body.Return(jen.Qual(bindPkg, "QueryValue").Index(jen.Any()).Call(jen.Id("ctx"), jen.Id("conn"), jen.Id("tmpl")))
	}
}
