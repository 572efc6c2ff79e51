package sqltmpl

import (
	"fmt"
	"strings"
)

// Escaper supplies the identifier- and literal-escaping routines. In
// production these are backed by the wire client (pgwire.Escape*); tests
// can substitute a trivial implementation.
type Escaper interface {
	EscapeIdent(parts []string) (string, error)
	EscapeLiteral(v any) (string, error)
}

// Options controls rendering.
type Options struct {
	Escaper  Escaper
	Reindent bool // preserve/repair indentation across nested templates
}

// Render renders t into a SQL string and, for every Param token
// encountered, an ordered slice of bound parameter values.
func Render(t *Template, opts Options) (string, []any, error) {
	var (
		out    strings.Builder
		params []any
	)
	if _, err := renderInto(&out, &params, t, opts); err != nil {
		return "", nil, err
	}
	return out.String(), params, nil
}

// renderInto renders t's segments/values into out, returning the
// indentation captured at t's first interpolated position (the run of
// spaces trailing the line that precedes it), used by the caller to
// decide whether a nested template needs re-indenting. A template with
// no interpolated position returns the run of spaces opening its
// second line instead.
func renderInto(out *strings.Builder, params *[]any, t *Template, opts Options) (string, error) {
	var (
		captured     string
		haveCaptured bool
	)
	for i, seg := range t.Segments {
		out.WriteString(seg)
		if i >= len(t.Values) {
			continue
		}
		if !haveCaptured {
			captured = trailingIndent(out.String())
			haveCaptured = true
		}
		if err := renderValue(out, params, t.Values[i], opts, captured); err != nil {
			return "", err
		}
	}
	if !haveCaptured {
		captured = secondLineIndent(out.String())
	}
	return captured, nil
}

// secondLineIndent returns the run of spaces opening s's second line,
// or "" when s has a single line.
func secondLineIndent(s string) string {
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return ""
	}
	line := s[nl+1:]
	return line[:len(line)-len(strings.TrimLeft(line, " "))]
}

func renderValue(out *strings.Builder, params *[]any, v Value, opts Options, parentIndent string) error {
	switch v.Kind {
	case KindID:
		if opts.Escaper == nil {
			return fmt.Errorf("sqltmpl: render id %v: no escaper configured", v.IDParts)
		}
		s, err := opts.Escaper.EscapeIdent(v.IDParts)
		if err != nil {
			return fmt.Errorf("sqltmpl: escape identifier %v: %w", v.IDParts, err)
		}
		out.WriteString(s)
	case KindLiteral:
		if v.LiteralVal == nil {
			return nil
		}
		if v.LiteralInline {
			if opts.Escaper == nil {
				return fmt.Errorf("sqltmpl: render literal %v: no escaper configured", v.LiteralVal)
			}
			s, err := opts.Escaper.EscapeLiteral(v.LiteralVal)
			if err != nil {
				return fmt.Errorf("sqltmpl: escape literal: %w", err)
			}
			out.WriteString(s)
		} else {
			*params = append(*params, v.LiteralVal)
			fmt.Fprintf(out, "$%d", len(*params))
		}
	case KindUnsafe:
		out.WriteString(v.UnsafeText)
	case KindSeq:
		for _, item := range v.SeqItems {
			if err := renderValue(out, params, item, opts, parentIndent); err != nil {
				return err
			}
		}
	case KindJoin:
		for i, item := range v.JoinItems {
			if i > 0 {
				if v.JoinSep != nil {
					if err := renderValue(out, params, *v.JoinSep, opts, parentIndent); err != nil {
						return err
					}
				} else {
					out.WriteString(v.JoinSepLit)
				}
			}
			if err := renderValue(out, params, item, opts, parentIndent); err != nil {
				return err
			}
		}
	case KindTemplate:
		return renderNested(out, params, v.Tmpl, opts, parentIndent)
	default:
		return fmt.Errorf("sqltmpl: unhandled value kind %d", v.Kind)
	}
	return nil
}

// renderNested renders a nested template into its own buffer first (so
// its lines can be re-indented as a unit), then splices it into out.
func renderNested(out *strings.Builder, params *[]any, t *Template, opts Options, parentIndent string) error {
	var nested strings.Builder
	childIndent, err := renderInto(&nested, params, t, opts)
	if err != nil {
		return err
	}
	s := nested.String()
	if opts.Reindent {
		s = reindent(s, childIndent, parentIndent)
	}
	out.WriteString(s)
	return nil
}

// trailingIndent returns the run of spaces at the end of s's last line.
func trailingIndent(s string) string {
	nl := strings.LastIndexByte(s, '\n')
	line := s[nl+1:]
	trimmed := strings.TrimRight(line, " ")
	return line[len(trimmed):]
}

// reindent strips leading blank lines from s and, if childIndent differs
// from parentIndent, rewrites every line after the first to swap its
// leading childIndent prefix for parentIndent.
func reindent(s, childIndent, parentIndent string) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 1 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if childIndent == parentIndent {
		return strings.Join(lines, "\n")
	}
	for i := 1; i < len(lines); i++ {
		lines[i] = parentIndent + strings.TrimPrefix(lines[i], childIndent)
	}
	return strings.Join(lines, "\n")
}
