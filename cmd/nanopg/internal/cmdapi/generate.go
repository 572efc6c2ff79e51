package cmdapi

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/nanopg/nanopg/sql/codegen"
	"github.com/nanopg/nanopg/sql/sync"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var fieldCase string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate typed Go bindings for the dev database's current schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdGenerateRun(cmd, fieldCase)
		},
	}
	cmd.Flags().StringVar(&fieldCase, "field-case", "", "override generate.fieldCase (preserve|camel)")
	return cmd
}

func cmdGenerateRun(cmd *cobra.Command, fieldCaseFlag string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := connectDevPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close(ctx)

	sources, err := readSources(cfg)
	if err != nil {
		return err
	}
	plan, err := sync.Compute(ctx, pool, sources)
	if err != nil {
		return err
	}

	fieldCase := cfg.Generate.FieldCase
	if fieldCaseFlag != "" {
		fieldCase = fieldCaseFlag
	}
	casing := codegen.CasingPreserve
	if fieldCase == "camel" {
		casing = codegen.CasingCamel
	}

	moduleRoot, err := readModuleRoot(cfg.Root())
	if err != nil {
		return err
	}
	outDir := filepath.Dir(cfg.ResolvedOutFile())

	for schema, ns := range plan.Namespaces {
		g := codegen.NewGenerator(codegen.Config{
			PackageName: schema,
			Namer:       codegen.Namer{Casing: casing},
			ModuleRoot:  moduleRoot,
		}, plan.Namespaces)
		f := g.GenerateNamespace(ns)

		var buf bytes.Buffer
		if err := f.Render(&buf); err != nil {
			return fmt.Errorf("cmdapi: render %s bindings: %w", schema, err)
		}
		dir := filepath.Join(outDir, "gen", schema)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, schema+".go"), buf.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "generated %s\n", filepath.Join(dir, schema+".go"))
	}
	return nil
}

var moduleDirectiveRE = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// readModuleRoot extracts the module path from root's go.mod, needed to
// qualify cross-schema imports in generated code (see codegen.Generator's
// importPathFor).
func readModuleRoot(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("cmdapi: read go.mod: %w", err)
	}
	m := moduleDirectiveRE.FindSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("cmdapi: no module directive found in %s/go.mod", root)
	}
	return string(m[1]), nil
}
