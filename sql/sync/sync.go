// Package sync wires the pipeline spec.md §1 describes end to end:
// parse every schema source file, topologically order the resulting
// statements, introspect the dev database's current namespaces, plan
// the diff against the desired statements, and apply it through the
// migration driver. Grounded in the teacher's own schema.Inspect ->
// sqlx.DiffTables -> migrate.Plan -> migrate.Apply pipeline shape
// (see sql/internal/sqlx's ApplyChanges-driven flow the original
// repo's cmdapi wires per-dialect): the sequence of stages is kept,
// the per-stage implementations are this engine's own.
package sync

import (
	"context"
	"fmt"

	"github.com/nanopg/nanopg/sql/depgraph"
	"github.com/nanopg/nanopg/sql/diff"
	"github.com/nanopg/nanopg/sql/introspect"
	"github.com/nanopg/nanopg/sql/migrate"
	"github.com/nanopg/nanopg/sql/nanoconfig"
	"github.com/nanopg/nanopg/sql/pgwire"
	"github.com/nanopg/nanopg/sql/planner"
	"github.com/nanopg/nanopg/sql/sqlparse"
)

// Plan is the result of running every stage up to (but not including)
// the migration driver's apply step, letting a caller inspect or log
// the computed change set before committing it.
type Plan struct {
	Statements []*sqlparse.Statement
	Warnings   []depgraph.CycleWarning
	Namespaces map[string]*introspect.Namespace
	Changes    []diff.Change
}

// Source is one schema file's path and contents, read by the caller
// (per cfg.ResolveSchemaFiles) so this package stays filesystem-free.
type Source struct {
	Path string
	Text string
}

// Compute runs parse -> link -> introspect -> diff against pool,
// scoped to the schemas referenced by sources.
func Compute(ctx context.Context, pool *pgwire.Pool, sources []Source) (*Plan, error) {
	var all []*sqlparse.Statement
	for _, src := range sources {
		stmts, err := sqlparse.ParseFile(src.Path, src.Text)
		if err != nil {
			return nil, fmt.Errorf("sync: parse %s: %w", src.Path, err)
		}
		all = append(all, stmts...)
	}

	set, warnings, err := depgraph.Link(all)
	if err != nil {
		return nil, fmt.Errorf("sync: link dependencies: %w", err)
	}
	ordered := set.Statements()

	schemas := uniqueSchemas(ordered)
	namespaces, err := introspect.Inspect(ctx, pool, schemas)
	if err != nil {
		return nil, fmt.Errorf("sync: introspect: %w", err)
	}

	conn, err := pool.Checkout(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sync: checkout conn: %w", err)
	}
	defer pool.Return(conn)
	if err := introspect.InspectViewFields(ctx, conn, namespaces); err != nil {
		return nil, fmt.Errorf("sync: infer view fields: %w", err)
	}

	changes, err := diff.Plan(ordered, namespaces)
	if err != nil {
		return nil, fmt.Errorf("sync: plan diff: %w", err)
	}

	return &Plan{
		Statements: ordered,
		Warnings:   warnings,
		Namespaces: namespaces,
		Changes:    changes,
	}, nil
}

// Apply applies p's changes through drv, skipping no-op changes, and
// writes every non-skipped statement into the schema-output directory
// the external planner reads, per spec.md §4.H.
func Apply(ctx context.Context, drv *migrate.Driver, cfg *nanoconfig.Config, p *Plan) ([]migrate.Result, error) {
	dir, err := migrate.NewSchemaDir(cfg.SchemaOutputDir())
	if err != nil {
		return nil, err
	}
	if err := dir.WritePrelude([]string{"SET check_function_bodies = off;"}); err != nil {
		return nil, err
	}

	byID := map[string]diff.Change{}
	for _, c := range p.Changes {
		byID[c.ID.String()] = c
	}

	var tasks []migrate.Task
	for _, s := range p.Statements {
		change, ok := byID[s.ID.String()]
		if !ok || change.Action == diff.ActionNoop {
			continue
		}
		tasks = append(tasks, migrate.Task{Statement: s, Change: change})
	}

	results, err := drv.Apply(ctx, tasks)
	if err != nil {
		return results, err
	}
	for _, t := range tasks {
		if err := dir.WriteStatement(t.Statement); err != nil {
			return results, err
		}
	}

	if _, err := planner.Run(ctx, cfg.Migration.Planner, plannerArgs(cfg), cfg.SchemaOutputDir()); err != nil {
		return results, err
	}
	return results, nil
}

// plannerArgs forwards migration.allowHazards as repeated --allow-hazard
// flags, per spec.md §6 ("tags passed to the external planner").
func plannerArgs(cfg *nanoconfig.Config) []string {
	var args []string
	for _, tag := range cfg.Migration.AllowHazards {
		args = append(args, "--allow-hazard", tag)
	}
	return args
}

func uniqueSchemas(stmts []*sqlparse.Statement) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range stmts {
		if !seen[s.ID.Schema] {
			seen[s.ID.Schema] = true
			out = append(out, s.ID.Schema)
		}
	}
	return out
}
