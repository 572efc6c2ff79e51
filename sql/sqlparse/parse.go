package sqlparse

import (
	"fmt"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v5"

	"github.com/nanopg/nanopg/sql/ident"
)

// ParseFile splits file's contents into statement spans and classifies
// each recognized top-level DDL node into a Statement. Indexes,
// triggers, sequences and any other node kind the driver delegates to
// the external planner are silently skipped, per spec.md §4.D.
func ParseFile(file, src string) ([]*Statement, error) {
	spans, err := Scan(src)
	if err != nil {
		return nil, codeFrame(file, src, 1, err.Error())
	}
	var out []*Statement
	for _, span := range spans {
		if strings.TrimSpace(span.Text) == "" {
			continue
		}
		tree, err := pgquery.Parse(span.Text)
		if err != nil {
			return nil, codeFrame(file, src, span.Line, "parse: "+err.Error())
		}
		for _, raw := range tree.Stmts {
			stmt, err := classify(raw.Stmt, file, span.Line, span.Text)
			if err != nil {
				return nil, codeFrame(file, src, span.Line, err.Error())
			}
			if stmt == nil {
				continue
			}
			stmt.RawText = span.Text
			out = append(out, stmt)
		}
	}
	return out, nil
}

func classify(node *pgquery.Node, file string, line int, rawText string) (*Statement, error) {
	switch {
	case node.GetCreateStmt() != nil:
		return classifyTable(node.GetCreateStmt(), file, line)
	case node.GetCreateFunctionStmt() != nil:
		return classifyRoutine(node.GetCreateFunctionStmt(), file, line)
	case node.GetCompositeTypeStmt() != nil:
		return classifyComposite(node.GetCompositeTypeStmt(), file, line)
	case node.GetCreateEnumStmt() != nil:
		return classifyEnum(node.GetCreateEnumStmt(), file, line)
	case node.GetViewStmt() != nil:
		return classifyView(node.GetViewStmt(), file, line, rawText)
	case node.GetCreateExtensionStmt() != nil:
		return classifyExtension(node.GetCreateExtensionStmt(), file, line)
	default:
		// Indexes, triggers, sequences, etc: delegated to the external
		// planner, not modeled as a Statement.
		return nil, nil
	}
}

func qualifiedName(parts []*pgquery.Node) ident.Id {
	var strs []string
	for _, p := range parts {
		if s := p.GetString_(); s != nil {
			strs = append(strs, s.Sval)
		}
	}
	switch len(strs) {
	case 0:
		return ident.New("", "")
	case 1:
		return ident.New("", strs[0])
	default:
		return ident.New(strs[len(strs)-2], strs[len(strs)-1])
	}
}

func rangeVarID(rv *pgquery.RangeVar) ident.Id {
	if rv == nil {
		return ident.Id{}
	}
	return ident.New(rv.Schemaname, rv.Relname)
}

func typeNameToType(tn *pgquery.TypeName) ident.Type {
	if tn == nil {
		return ident.Type{}
	}
	id := qualifiedName(tn.Names)
	t := ident.NewType(id)
	for _, m := range tn.Typmods {
		if c := m.GetAConst(); c != nil {
			if iv := c.GetIval(); iv != nil {
				t.Modifiers = append(t.Modifiers, int(iv.Ival))
			}
		}
	}
	for _, b := range tn.ArrayBounds {
		if iv := b.GetInteger(); iv != nil {
			t.Bounds = append(t.Bounds, int(iv.Ival))
		} else {
			t.Bounds = append(t.Bounds, -1)
		}
	}
	return t
}

func classifyTable(cs *pgquery.CreateStmt, file string, line int) (*Statement, error) {
	id := rangeVarID(cs.Relation)
	payload := &TablePayload{}
	for _, elt := range cs.TableElts {
		switch {
		case elt.GetColumnDef() != nil:
			col, pk, err := classifyColumn(elt.GetColumnDef())
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", id, err)
			}
			if col == nil {
				continue // malformed column: skipped without a warning
			}
			payload.Columns = append(payload.Columns, *col)
			if pk {
				payload.PrimaryKey = append(payload.PrimaryKey, col.Name)
			}
		case elt.GetConstraint() != nil:
			con := elt.GetConstraint()
			if con.Contype == pgquery.ConstrType_CONSTR_PRIMARY {
				for _, k := range con.Keys {
					if s := k.GetString_(); s != nil {
						payload.PrimaryKey = append(payload.PrimaryKey, s.Sval)
					}
				}
			}
		}
	}
	return &Statement{
		Kind:       KindTable,
		ID:         id,
		SourceFile: file,
		SourceLine: line,
		Table:      payload,
	}, nil
}

// classifyColumn returns (nil, false, nil) for a malformed column
// (missing name or type), which callers skip; no warning is emitted.
func classifyColumn(cd *pgquery.ColumnDef) (*Column, bool, error) {
	if cd.Colname == "" || cd.TypeName == nil {
		return nil, false, nil
	}
	col := &Column{
		Name:     cd.Colname,
		Type:     typeNameToType(cd.TypeName),
		Nullable: true,
	}
	switch cd.Identity {
	case "a":
		col.Identity = IdentityAlways
	case "d":
		col.Identity = IdentityDefault
	default:
		col.Identity = IdentityNone
	}
	if cd.Collclause != nil {
		cid := qualifiedName(cd.Collclause.Collname)
		col.Collation = &cid
	}
	isPK := false
	for _, cn := range cd.Constraints {
		con := cn.GetConstraint()
		if con == nil {
			continue
		}
		switch con.Contype {
		case pgquery.ConstrType_CONSTR_NOTNULL:
			col.Nullable = false
		case pgquery.ConstrType_CONSTR_PRIMARY:
			isPK = true
			col.Nullable = false
		case pgquery.ConstrType_CONSTR_DEFAULT:
			col.HasDefault = true
		case pgquery.ConstrType_CONSTR_IDENTITY:
			col.HasDefault = true
		case pgquery.ConstrType_CONSTR_FOREIGN:
			col.Refs = append(col.Refs, rangeVarID(con.Pktable))
		}
	}
	return col, isPK, nil
}

func classifyRoutine(cf *pgquery.CreateFunctionStmt, file string, line int) (*Statement, error) {
	id := qualifiedName(cf.Funcname)
	payload := &RoutinePayload{IsProcedure: cf.IsProcedure}
	var outCols []OutColumn
	for _, p := range cf.Parameters {
		fp := p.GetFunctionParameter()
		if fp == nil {
			continue
		}
		switch fp.Mode {
		case pgquery.FunctionParameterMode_FUNC_PARAM_OUT:
			outCols = append(outCols, OutColumn{Name: fp.Name, Type: typeNameToType(fp.ArgType)})
		case pgquery.FunctionParameterMode_FUNC_PARAM_TABLE:
			outCols = append(outCols, OutColumn{Name: fp.Name, Type: typeNameToType(fp.ArgType)})
		case pgquery.FunctionParameterMode_FUNC_PARAM_INOUT:
			payload.InParams = append(payload.InParams, Param{Name: fp.Name, Type: typeNameToType(fp.ArgType), Mode: ParamInOut})
			outCols = append(outCols, OutColumn{Name: fp.Name, Type: typeNameToType(fp.ArgType)})
		case pgquery.FunctionParameterMode_FUNC_PARAM_VARIADIC:
			payload.InParams = append(payload.InParams, Param{Name: fp.Name, Type: typeNameToType(fp.ArgType), Mode: ParamVariadic, Variadic: true})
		default:
			payload.InParams = append(payload.InParams, Param{Name: fp.Name, Type: typeNameToType(fp.ArgType), Mode: ParamIn})
		}
	}
	if len(outCols) > 0 {
		payload.OutParams = outCols
	} else if cf.ReturnType != nil {
		payload.ReturnSet = cf.ReturnType.Setof
		rt := typeNameToType(cf.ReturnType)
		if rt.Id.Name != "void" && rt.Id.Name != "trigger" {
			payload.ReturnType = &rt
		}
	}
	return &Statement{
		Kind:       KindRoutine,
		ID:         id,
		SourceFile: file,
		SourceLine: line,
		Routine:    payload,
	}, nil
}

func classifyComposite(ct *pgquery.CompositeTypeStmt, file string, line int) (*Statement, error) {
	id := rangeVarID(ct.Typevar)
	payload := &CompositePayload{}
	for _, cd := range ct.Coldeflist {
		col, _, err := classifyColumn(cd.GetColumnDef())
		if err != nil {
			return nil, fmt.Errorf("composite type %s: %w", id, err)
		}
		if col == nil {
			continue
		}
		payload.Columns = append(payload.Columns, *col)
	}
	return &Statement{
		Kind:       KindCompositeType,
		ID:         id,
		SourceFile: file,
		SourceLine: line,
		Composite:  payload,
	}, nil
}

func classifyEnum(ce *pgquery.CreateEnumStmt, file string, line int) (*Statement, error) {
	id := qualifiedName(ce.TypeName)
	payload := &EnumPayload{}
	for _, v := range ce.Vals {
		if s := v.GetString_(); s != nil {
			payload.Labels = append(payload.Labels, s.Sval)
		}
	}
	return &Statement{
		Kind:       KindEnumType,
		ID:         id,
		SourceFile: file,
		SourceLine: line,
		Enum:       payload,
	}, nil
}

func classifyView(vs *pgquery.ViewStmt, file string, line int, rawText string) (*Statement, error) {
	id := rangeVarID(vs.View)
	payload := &ViewPayload{Refs: collectRefs(vs.Query), Subquery: SubqueryText(rawText)}
	return &Statement{
		Kind:       KindView,
		ID:         id,
		SourceFile: file,
		SourceLine: line,
		View:       payload,
	}, nil
}

func classifyExtension(ce *pgquery.CreateExtensionStmt, file string, line int) (*Statement, error) {
	return &Statement{
		Kind:       KindExtension,
		ID:         ident.New(ident.Public, ce.Extname),
		SourceFile: file,
		SourceLine: line,
	}, nil
}

// collectRefs walks a view's defining query AST for range-var (table)
// references and function calls, excluding anything in a catalog
// namespace, per spec.md §4.D.
func collectRefs(n *pgquery.Node) []ident.Id {
	var refs []ident.Id
	var walk func(n *pgquery.Node)
	seen := map[string]bool{}
	add := func(id ident.Id) {
		if id.Schema == "pg_catalog" || id.Schema == "information_schema" || id.Name == "" {
			return
		}
		key := id.String()
		if seen[key] {
			return
		}
		seen[key] = true
		refs = append(refs, id)
	}
	walk = func(n *pgquery.Node) {
		if n == nil {
			return
		}
		switch {
		case n.GetRangeVar() != nil:
			add(rangeVarID(n.GetRangeVar()))
		case n.GetSelectStmt() != nil:
			s := n.GetSelectStmt()
			for _, f := range s.FromClause {
				walk(f)
			}
			for _, t := range s.TargetList {
				walk(t)
			}
			walk(s.WhereClause)
			if s.Larg != nil {
				walk(&pgquery.Node{Node: &pgquery.Node_SelectStmt{SelectStmt: s.Larg}})
			}
			if s.Rarg != nil {
				walk(&pgquery.Node{Node: &pgquery.Node_SelectStmt{SelectStmt: s.Rarg}})
			}
		case n.GetJoinExpr() != nil:
			j := n.GetJoinExpr()
			walk(j.Larg)
			walk(j.Rarg)
		case n.GetFuncCall() != nil:
			add(qualifiedName(n.GetFuncCall().Funcname))
			for _, a := range n.GetFuncCall().Args {
				walk(a)
			}
		case n.GetResTarget() != nil:
			walk(n.GetResTarget().Val)
		case n.GetTypeCast() != nil:
			walk(n.GetTypeCast().Arg)
		case n.GetAExpr() != nil:
			walk(n.GetAExpr().Lexpr)
			walk(n.GetAExpr().Rexpr)
		}
	}
	walk(n)
	return refs
}

// SubqueryText strips the "CREATE [OR REPLACE] VIEW name AS" prefix and
// any "WITH [CASCADED|LOCAL] CHECK OPTION" suffix from a view's raw
// source text, per spec.md §4.D.
func SubqueryText(raw string) string {
	lower := strings.ToLower(raw)
	if i := strings.Index(lower, " as "); i != -1 {
		raw = raw[i+4:]
	}
	if i := strings.Index(strings.ToLower(raw), "with"); i != -1 {
		tail := strings.ToLower(raw[i:])
		if strings.Contains(tail, "check option") {
			raw = raw[:i]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, ";")
	return strings.TrimSpace(raw)
}
