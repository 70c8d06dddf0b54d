// Package router matches requests to endpoints: host-scoped sub-apps,
// path patterns with parameters and wildcards, media-type negotiation and
// the filter chain around endpoint execution.
package router

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled route pattern. Segments are matched left to right:
//
//	literal        matched byte-for-byte
//	{name}         captures one non-empty path segment
//	{name:regex}   captures whatever the anchored regex consumes; a regex
//	               that admits '/' may span segments
//	*              trailing wildcard: consumes zero or more segments
type Pattern struct {
	raw      string
	segments []segment
	wildcard bool
}

type segKind int8

const (
	segLiteral segKind = iota
	segParam
	segRegex
)

type segment struct {
	kind segKind
	lit  string // literal text, or parameter name
	re   *regexp.Regexp
}

var errEmptyPattern = errors.New("router: empty pattern")

// CompilePattern parses and validates a pattern string.
func CompilePattern(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, errEmptyPattern
	}
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("router: pattern %q must start with '/'", raw)
	}

	p := &Pattern{raw: raw}
	parts := strings.Split(raw[1:], "/")
	// "/" alone yields one empty literal segment, matching the root path.
	for i, part := range parts {
		switch {
		case part == "*":
			if i != len(parts)-1 {
				return nil, fmt.Errorf("router: wildcard must be the last segment in %q", raw)
			}
			p.wildcard = true

		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			inner := part[1 : len(part)-1]
			name, expr, hasRe := strings.Cut(inner, ":")
			if name == "" {
				return nil, fmt.Errorf("router: unnamed parameter in %q", raw)
			}
			if hasRe {
				re, err := regexp.Compile("\\A(?:" + expr + ")")
				if err != nil {
					return nil, fmt.Errorf("router: bad regex in %q: %w", raw, err)
				}
				p.segments = append(p.segments, segment{kind: segRegex, lit: name, re: re})
			} else {
				p.segments = append(p.segments, segment{kind: segParam, lit: name})
			}

		default:
			p.segments = append(p.segments, segment{kind: segLiteral, lit: part})
		}
	}
	return p, nil
}

// String returns the pattern as written.
func (p *Pattern) String() string { return p.raw }

// Match tests path against the pattern. On success the captured parameters
// are reported through capture (which may be nil) and Match returns true.
// Nothing is reported on failure.
func (p *Pattern) Match(path string, capture func(name, value string)) bool {
	params, ok := p.match(path)
	if !ok {
		return false
	}
	if capture != nil {
		for _, kv := range params {
			capture(kv[0], kv[1])
		}
	}
	return true
}

func (p *Pattern) match(path string) ([][2]string, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	rest := path[1:]
	var params [][2]string

	for i, seg := range p.segments {
		last := i == len(p.segments)-1 && !p.wildcard

		switch seg.kind {
		case segLiteral, segParam:
			var part string
			if slash := strings.IndexByte(rest, '/'); slash >= 0 {
				part, rest = rest[:slash], rest[slash+1:]
				if last {
					return nil, false // path has more segments than pattern
				}
			} else {
				part, rest = rest, ""
				if !last && !p.wildcard {
					return nil, false // pattern has more segments than path
				}
				if !last && p.wildcard && i != len(p.segments)-1 {
					return nil, false
				}
			}
			if seg.kind == segLiteral {
				if part != seg.lit {
					return nil, false
				}
			} else {
				if part == "" {
					return nil, false
				}
				params = append(params, [2]string{seg.lit, part})
			}

		case segRegex:
			loc := seg.re.FindStringIndex(rest)
			if loc == nil || loc[0] != 0 {
				return nil, false
			}
			params = append(params, [2]string{seg.lit, rest[:loc[1]]})
			rest = rest[loc[1]:]
			if last {
				if rest != "" {
					return nil, false
				}
			} else {
				if !strings.HasPrefix(rest, "/") {
					return nil, false
				}
				rest = rest[1:]
			}
		}
	}

	if p.wildcard {
		return params, true // consumes zero or more remaining segments
	}
	if rest != "" {
		return nil, false
	}
	return params, true
}

// globMatch matches a host glob where '*' matches any run of characters.
func globMatch(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return strings.EqualFold(pattern, s)
	}
	s = strings.ToLower(s)
	first, rest := strings.ToLower(parts[0]), parts[1:]
	if !strings.HasPrefix(s, first) {
		return false
	}
	s = s[len(first):]
	for i, part := range rest {
		part = strings.ToLower(part)
		if i == len(rest)-1 {
			return strings.HasSuffix(s, part)
		}
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return true
}

// literalPrefixLen is the length of the glob's leading literal run, used to
// break ties between overlapping host globs.
func literalPrefixLen(pattern string) int {
	if i := strings.IndexByte(pattern, '*'); i >= 0 {
		return i
	}
	return len(pattern)
}
