package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nanopg/nanopg/sql/sqlparse"
)

// SchemaDir writes applied statements to a numbered schema-output
// directory consumed by the external migration planner, per spec.md
// §4.H. Grounded in the teacher's LocalDir (sql/migrate.LocalDir):
// a thin wrapper over a local path that numbers and names files, kept
// here to the subset this driver needs (WriteStatement, WritePrelude) since the
// teacher's checksum/checkpoint machinery serves a revision-history
// feature this engine does not have.
type SchemaDir struct {
	Path string
	n    int
}

// NewSchemaDir creates (if absent) and returns a SchemaDir rooted at
// path.
func NewSchemaDir(path string) (*SchemaDir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("migrate: create schema dir: %w", err)
	}
	return &SchemaDir{Path: path}, nil
}

var safeNamePart = regexp.MustCompile(`[^a-z0-9]+`)

// WritePrelude writes the pre-plan.sql file containing prelude DDL
// (e.g. "SET check_function_bodies = off;"), per spec.md §6.
func (d *SchemaDir) WritePrelude(lines []string) error {
	content := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(filepath.Join(d.Path, "pre-plan.sql"), []byte(content), 0o644)
}

// WriteStatement writes one applied statement to the next numbered
// file, format "NNN-[extension-]schema-name.sql", with a file://
// source pointer comment referencing the statement's original
// location.
func (d *SchemaDir) WriteStatement(s *sqlparse.Statement) error {
	d.n++
	name := statementFileName(d.n, s)
	header := fmt.Sprintf("-- file://%s#L%d\n", s.SourceFile, s.SourceLine)
	content := header + s.RawText + "\n"
	return os.WriteFile(filepath.Join(d.Path, name), []byte(content), 0o644)
}

func statementFileName(n int, s *sqlparse.Statement) string {
	prefix := ""
	if s.Kind == sqlparse.KindExtension {
		prefix = "extension-"
	}
	slug := func(part string) string {
		return strings.Trim(safeNamePart.ReplaceAllString(strings.ToLower(part), "-"), "-")
	}
	return fmt.Sprintf("%03d-%s%s-%s.sql", n, prefix, slug(s.ID.Schema), slug(s.ID.Name))
}
