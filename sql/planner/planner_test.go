package planner

import (
	"errors"
	"testing"

	"github.com/nanopg/nanopg/sql/internal/nanoerr"
)

func TestClassifySkipsReviewPlanSection(t *testing.T) {
	raw := "#Review plan#\n-- noisy\ndrop table ignored;\n#Applying#\nalter table users add column x int;\nFinished executing\n"
	plan := classify(raw)

	cmds := plan.Commands()
	if len(cmds) != 1 || cmds[0] != "alter table users add column x int;" {
		t.Fatalf("expected one command after review section, got %v", cmds)
	}
	if !plan.Success {
		t.Error("expected Success to be true")
	}
}

func TestClassifyCollectsComments(t *testing.T) {
	raw := "#Applying#\n-- adding a column\nalter table users add column x int;\n"
	plan := classify(raw)

	var comments int
	for _, l := range plan.Lines {
		if l.Kind == LineComment {
			comments++
		}
	}
	if comments != 1 {
		t.Errorf("expected 1 comment line, got %d", comments)
	}
}

func TestBuildRunErrorDetectsHazards(t *testing.T) {
	stderr := "Hazard: dropping non-empty column \"email\"\nHazard: destructive column type change\n"
	err := buildRunError(errors.New("exit status 1"), stderr)

	var ne *nanoerr.Error
	if !errors.As(err, &ne) {
		t.Fatalf("expected *nanoerr.Error, got %T", err)
	}
	if ne.Code != nanoerr.CodeMigrationHazards {
		t.Errorf("Code = %v, want %v", ne.Code, nanoerr.CodeMigrationHazards)
	}
	if !contains(ne.Message, "email") {
		t.Errorf("expected hazard detail in message, got %q", ne.Message)
	}
}

func TestBuildRunErrorExtractsSourcePointer(t *testing.T) {
	stderr := "ERROR: column \"x\" does not exist\nfile:///schema/users.sql#L12\n"
	err := buildRunError(errors.New("exit status 1"), stderr)

	var ne *nanoerr.Error
	if !errors.As(err, &ne) {
		t.Fatalf("expected *nanoerr.Error, got %T", err)
	}
	if ne.Code != nanoerr.CodePlanner {
		t.Errorf("Code = %v, want %v", ne.Code, nanoerr.CodePlanner)
	}
	if !contains(ne.Message, "schema/users.sql:12") {
		t.Errorf("expected source pointer in message, got %q", ne.Message)
	}
}

func TestExtractSourcePointer(t *testing.T) {
	src := ExtractSourcePointer("boom\nfile:///a/b.sql#L7\n")
	if src == nil {
		t.Fatal("expected a source pointer")
	}
	if src.Path != "a/b.sql" || src.Line != 7 {
		t.Errorf("got %+v", src)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
