package cleanup

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds a single match of a backtracking pattern.
const matchTimeout = time.Second

// Pattern is an optional deny pattern. Patterns are written either in the
// delimited form "/index.html/i" or as a bare regular expression, with Perl
// syntax including lookaround. A nil or empty Pattern matches nothing.
type Pattern struct {
	raw string
	re  *regexp2.Regexp
}

// delimiters are the characters a delimited pattern may start with.
const delimiters = "/#~!@%|+,;:=`'\"([{<"

var closingDelimiters = map[byte]byte{'(': ')', '[': ']', '{': '}', '<': '>'}

// CompilePattern parses raw. An empty raw yields an empty pattern that
// disables the filter it is used for.
func CompilePattern(raw string) (*Pattern, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &Pattern{}, nil
	}

	expr, opts, err := splitDelimited(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", raw, err)
	}

	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", raw, err)
	}
	re.MatchTimeout = matchTimeout
	return &Pattern{raw: raw, re: re}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(raw string) *Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// MatchString reports whether s matches. A match that times out counts as a
// match, so the file it was checked for is left alone.
func (p *Pattern) MatchString(s string) bool {
	if p == nil || p.re == nil {
		return false
	}
	ok, err := p.re.MatchString(s)
	if err != nil {
		return true
	}
	return ok
}

// Empty reports whether the pattern disables its filter.
func (p *Pattern) Empty() bool {
	return p == nil || p.re == nil
}

func (p *Pattern) String() string {
	if p == nil {
		return ""
	}
	return p.raw
}

// splitDelimited strips the delimiters of a delimited pattern and turns its
// modifiers into options. Anything not starting with a delimiter is used as is.
func splitDelimited(pattern string) (string, regexp2.RegexOptions, error) {
	open := pattern[0]
	if !isDelimiter(open) {
		return pattern, regexp2.None, nil
	}

	closing, nested := closingDelimiters[open]
	if !nested {
		closing = open
	}

	end := -1
	depth := 1
	for i := 1; i < len(pattern) && end < 0; i++ {
		switch {
		case pattern[i] == '\\':
			i++
		case nested && pattern[i] == open:
			depth++
		case pattern[i] == closing:
			depth--
			if depth == 0 {
				end = i
			}
		}
	}
	if end < 0 {
		return "", regexp2.None, fmt.Errorf("no ending delimiter %q found", closing)
	}

	opts := regexp2.None
	for _, m := range pattern[end+1:] {
		switch m {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		case 'u', 'D':
			// identifiers are UTF-8 and never end in a newline
		case '\n', '\r', ' ':
		default:
			return "", regexp2.None, fmt.Errorf("unknown modifier %q", m)
		}
	}
	return pattern[1:end], opts, nil
}

func isDelimiter(c byte) bool {
	return strings.IndexByte(delimiters, c) >= 0
}
