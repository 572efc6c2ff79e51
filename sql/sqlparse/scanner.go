package sqlparse

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is a single scanned statement's text along with its byte offset
// and line number in the source file, and any comment lines directly
// preceding it.
type Span struct {
	Pos      int
	Line     int
	Text     string
	Comments []string
}

// Scanner splits Postgres DDL source into statement spans, honoring
// quoted strings, dollar-quoted bodies, line/block comments, and
// BEGIN ATOMIC ... END function bodies. Adapted from the teacher's
// sql/migrate.Scanner, trimmed to the Postgres-only subset: no MySQL
// DELIMITER/GO/hash-comment handling, no T-SQL BEGIN/END or TRY/CATCH
// blocks, since those dialects never reach this parser.
type Scanner struct {
	src, input string
	pos        int
	total      int
	width      int
	comments   []string
}

const (
	eos       = -1
	delimiter = ";"
)

var (
	reDollarQuote = regexp.MustCompile(`^\$([A-Za-z_][\w]*)?\$`)
	reBeginAtomic = regexp.MustCompile(`(?i)^\s*BEGIN\s+ATOMIC\s+`)
	reEnd         = regexp.MustCompile(`(?i)^\s*END\s*`)
)

// Scan splits input into statement spans.
func Scan(input string) ([]*Span, error) {
	s := &Scanner{src: input, input: input}
	var spans []*Span
	for {
		span, err := s.stmt()
		if err != nil {
			if err == errEOS {
				return spans, nil
			}
			return nil, err
		}
		spans = append(spans, span)
	}
}

var errEOS = fmt.Errorf("sqlparse: end of input")

func (s *Scanner) stmt() (*Span, error) {
	var (
		depth, openingPos int
		text              string
	)
	s.skipSpaces()
Scan:
	for {
		switch r := s.next(); {
		case r == eos:
			switch {
			case depth > 0:
				return nil, s.error(openingPos, "unclosed '('")
			case s.pos > 0:
				text = s.input
				break Scan
			default:
				return nil, errEOS
			}
		case r == '(':
			if depth == 0 {
				openingPos = s.pos
			}
			depth++
		case r == ')':
			if depth == 0 {
				return nil, s.error(s.pos, "unexpected ')'")
			}
			depth--
		case r == '\'' || r == '"':
			if err := s.skipQuote(r); err != nil {
				return nil, err
			}
		case depth == 0 && strings.HasPrefix(s.input[s.pos-s.width:], delimiter):
			text = s.input[:s.pos]
			break Scan
		case r == '$' && reDollarQuote.MatchString(s.input[s.pos-1:]):
			if err := s.skipDollarQuote(); err != nil {
				return nil, err
			}
		case r == '-' && s.pick() == '-':
			s.next()
			s.comment("--", "\n")
		case r == '/' && s.pick() == '*':
			s.next()
			s.comment("/*", "*/")
		case reBeginAtomic.MatchString(s.input[s.pos-1:]):
			if err := s.skipBeginAtomic(); err == nil {
				text = s.input[:s.pos]
				break Scan
			}
		}
	}
	return s.emit(text), nil
}

func (s *Scanner) next() rune {
	if s.pos >= len(s.input) {
		return eos
	}
	r, w := utf8.DecodeRuneInString(s.input[s.pos:])
	s.width = w
	s.pos += w
	s.total += w
	return r
}

func (s *Scanner) pick() rune {
	p, w, t := s.pos, s.width, s.total
	r := s.next()
	s.pos, s.width, s.total = p, w, t
	return r
}

func (s *Scanner) skipQuote(quote rune) error {
	pos := s.pos
	escaped := s.pos > 0 && (s.input[s.pos-1] == 'E' || s.input[s.pos-1] == 'e')
	for {
		switch r := s.next(); {
		case r == eos:
			return s.error(pos, "unclosed quote %q", quote)
		case r == '\\' && escaped:
			s.next()
		case r == quote:
			// Quote doubling ("" or '') escapes, not a terminator.
			if s.pick() == quote {
				s.next()
				continue
			}
			return nil
		}
	}
}

func (s *Scanner) skipDollarQuote() error {
	m := reDollarQuote.FindString(s.input[s.pos-1:])
	if m == "" {
		return s.error(s.pos, "unexpected dollar quote")
	}
	s.pos += len(m) - 1
	s.total += len(m) - 1
	for {
		switch r := s.next(); {
		case r == eos:
			return s.error(s.pos, "unclosed dollar-quoted string")
		case r == '$' && strings.HasPrefix(s.input[s.pos-1:], m):
			s.pos += len(m) - 1
			s.total += len(m) - 1
			return nil
		}
	}
}

func (s *Scanner) skipBeginAtomic() error {
	m := reBeginAtomic.FindString(s.input[s.pos-1:])
	if m == "" {
		return s.error(s.pos, "unexpected missing BEGIN ATOMIC block")
	}
	s.pos += len(m) - 1
	s.total += len(m) - 1
	body := &Scanner{src: s.input[s.pos:], input: s.input[s.pos:]}
	for {
		span, err := body.stmt()
		if err == errEOS {
			return s.error(s.pos, "unexpected eof scanning BEGIN ATOMIC body")
		}
		if err != nil {
			return err
		}
		if reEnd.MatchString(span.Text) {
			break
		}
	}
	s.pos += body.total
	s.total += body.total
	return nil
}

func (s *Scanner) comment(left, right string) {
	i := strings.Index(s.input[s.pos:], right)
	if i == -1 {
		return
	}
	end := s.pos + i + len(right)
	if s.pos != len(left) {
		s.total += end - s.pos
		s.pos = end
		return
	}
	s.total += end - s.pos
	s.pos = end
	s.comments = append(s.comments, s.input[:s.pos])
	s.input = s.input[s.pos:]
	s.pos = 0
	if strings.HasPrefix(s.input, "\n\n") || (right == "\n" && strings.HasPrefix(s.input, "\n")) {
		s.comments = nil
	}
	s.skipSpaces()
}

func (s *Scanner) skipSpaces() {
	n := len(s.input)
	s.input = strings.TrimLeftFunc(s.input, unicode.IsSpace)
	s.total += n - len(s.input)
}

func (s *Scanner) emit(text string) *Span {
	line := 1 + strings.Count(s.src[:s.total-len(text)], "\n")
	span := &Span{Pos: s.total - len(text), Line: line, Text: strings.TrimSpace(text), Comments: s.comments}
	s.input = s.input[s.pos:]
	s.pos = 0
	s.comments = nil
	return span
}

func (s *Scanner) error(pos int, format string, args ...any) error {
	p := len(s.src) - len(s.input) + pos
	src := s.src[:p]
	line := 1 + strings.Count(src, "\n")
	col := p
	if i := strings.LastIndex(src, "\n"); i >= 0 {
		col = p - i - 1
	}
	return fmt.Errorf("%d:%d: "+format, append([]any{line, col}, args...)...)
}
