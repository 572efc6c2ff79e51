package sqlparse

import (
	"fmt"
	"strings"

	"github.com/nanopg/nanopg/sql/internal/nanoerr"
)

// codeFrame renders a file:line error (no column) with two lines of context on
// either side of the offending line, per spec.md §4.D ("parse errors
// propagate with a source-annotated code frame").
func codeFrame(file string, src string, line int, msg string) error {
	lines := strings.Split(src, "\n")
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d: %s\n", file, line, msg)
	lo, hi := line-2, line+2
	if lo < 1 {
		lo = 1
	}
	if hi > len(lines) {
		hi = len(lines)
	}
	for n := lo; n <= hi; n++ {
		marker := "  "
		if n == line {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%4d | %s\n", marker, n, lines[n-1])
	}
	return nanoerr.New(nanoerr.CodeParse, b.String())
}
