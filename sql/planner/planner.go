// Package planner invokes the external schema-diff tool that produces
// the final low-level DDL plan (index/trigger/sequence deltas,
// function-body diffs) this engine's own diff/migrate stages don't
// attempt, per spec.md §6. The subprocess reads the schema-output
// directory sql/migrate.SchemaDir writes and prints a plan to stdout;
// this package's job is only to run it and classify what it prints,
// not to reimplement it.
//
// Grounded in the teacher's bufio.Scanner-based line classification in
// sql/migrate/dir.go (HashFile's line-by-line parsing of a checksum
// file) and sql/migrate/lex.go's Scanner, generalized here from parsing
// a file's own lines to parsing a subprocess's stdout lines against the
// title/body-command/body-comment/success grammar spec.md §6 defines.
package planner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/nanopg/nanopg/sql/internal/nanoerr"
)

// LineKind classifies one line of the planner's stdout.
type LineKind int

const (
	// LineTitle is a "#...#" fenced section header, e.g. the
	// "Review plan" banner this package skips.
	LineTitle LineKind = iota
	LineCommand
	LineComment
	LineSuccess
)

// Line is one classified line of planner output.
type Line struct {
	Kind LineKind
	Text string
}

// Plan is the parsed result of one planner invocation.
type Plan struct {
	Lines   []Line
	Success bool
}

// SourcePointer is a "file:///path#LN" reference extracted from a
// failed planner run's stderr, pointing the developer at the schema
// file the failing statement came from.
type SourcePointer struct {
	Path string
	Line int
}

var titleFence = regexp.MustCompile(`^#.*#$`)
var sourcePointerRE = regexp.MustCompile(`file:///(\S+)#L(\d+)`)
var errorLineRE = regexp.MustCompile(`(?m)ERROR:\s*(.+)$`)
var hazardLineRE = regexp.MustCompile(`(?i)^Hazard:\s*(.+)$`)

const reviewPlanHeader = "Review plan"

// Run executes the planner binary against schemaDir, classifying its
// stdout per line and surfacing a *nanoerr.Error (CodeMigrationHazards
// or CodePlanner, with an extracted source pointer where present) on a
// non-zero exit.
func Run(ctx context.Context, binary string, args []string, schemaDir string) (*Plan, error) {
	cmd := exec.CommandContext(ctx, binary, append(args, schemaDir)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	plan := classify(stdout.String())

	if runErr != nil {
		return plan, buildRunError(runErr, stderr.String())
	}
	return plan, nil
}

// classify scans raw line by line, skipping the "Review plan" section
// banner, and assigns each remaining line one of the four kinds spec.md
// §6 names.
func classify(raw string) *Plan {
	plan := &Plan{}
	sc := bufio.NewScanner(strings.NewReader(raw))
	inReviewSection := false
	for sc.Scan() {
		line := sc.Text()
		switch {
		case titleFence.MatchString(strings.TrimSpace(line)):
			inReviewSection = strings.Contains(line, reviewPlanHeader)
			plan.Lines = append(plan.Lines, Line{Kind: LineTitle, Text: line})
		case inReviewSection:
			// Body lines inside the review-plan banner are skipped per
			// spec.md §6 ("skipping the Review plan section").
			continue
		case strings.TrimSpace(line) == "":
			continue
		case strings.HasPrefix(strings.TrimSpace(line), "--"):
			plan.Lines = append(plan.Lines, Line{Kind: LineComment, Text: line})
		case strings.Contains(line, "No plan generated") || strings.Contains(line, "Finished executing"):
			plan.Success = true
			plan.Lines = append(plan.Lines, Line{Kind: LineSuccess, Text: line})
		default:
			plan.Lines = append(plan.Lines, Line{Kind: LineCommand, Text: line})
		}
	}
	return plan
}

// Commands returns every body-command line, the SQL statements the
// planner decided on.
func (p *Plan) Commands() []string {
	var out []string
	for _, l := range p.Lines {
		if l.Kind == LineCommand {
			out = append(out, l.Text)
		}
	}
	return out
}

// buildRunError classifies a failed run's stderr into the engine's
// error taxonomy: a hazard refusal becomes CodeMigrationHazards (with
// every "Hazard: ..." line collected into the message), anything else
// becomes CodePlanner, with an extracted "ERROR: ..." message and
// file:///path#LN source pointer folded in when present.
func buildRunError(runErr error, stderr string) error {
	var hazards []string
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		if m := hazardLineRE.FindStringSubmatch(sc.Text()); m != nil {
			hazards = append(hazards, strings.TrimSpace(m[1]))
		}
	}
	if len(hazards) > 0 {
		return nanoerr.Wrap(nanoerr.CodeMigrationHazards,
			fmt.Sprintf("refused to proceed: %s", strings.Join(hazards, "; ")), runErr)
	}

	message := strings.TrimSpace(stderr)
	if m := errorLineRE.FindStringSubmatch(stderr); m != nil {
		message = strings.TrimSpace(m[1])
	}
	if src := ExtractSourcePointer(stderr); src != nil {
		message = fmt.Sprintf("%s (%s:%d)", message, src.Path, src.Line)
	}
	return nanoerr.Wrap(nanoerr.CodePlanner, message, runErr)
}

// ExtractSourcePointer pulls the first "file:///path#LN" reference out
// of raw, pointing the developer at the schema file a failing
// statement came from.
func ExtractSourcePointer(raw string) *SourcePointer {
	m := sourcePointerRE.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	var line int
	fmt.Sscanf(m[2], "%d", &line)
	return &SourcePointer{Path: m[1], Line: line}
}
