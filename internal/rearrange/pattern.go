package rearrange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrPattern is wrapped by every error caused by a malformed pattern or by
// a pattern that does not fit the input.
var ErrPattern = errors.New("rearrange: invalid pattern")

const ellipsis = "..."

// axis is one elementary axis of a pattern side. Literal axes (a bare
// number) carry their size in literal; names are empty for them.
type axis struct {
	name    string
	literal int
}

// group is one input or output dimension: a single axis, a parenthesised
// composition, or an empty composition "()" of size one.
type group []axis

type side struct {
	groups      []group
	hasEllipsis bool
	// bare is the index of the group holding an unparenthesised ellipsis,
	// or -1 when the ellipsis is absent or sits inside parentheses.
	bare int
}

type pattern struct {
	left, right side
}

var patternCache sync.Map // string -> *pattern

func parsePattern(s string) (*pattern, error) {
	if p, ok := patternCache.Load(s); ok {
		return p.(*pattern), nil
	}

	lhs, rhs, ok := strings.Cut(s, "->")
	if !ok || strings.Contains(rhs, "->") {
		return nil, fmt.Errorf("%w: %q must contain exactly one '->'", ErrPattern, s)
	}
	left, err := parseSide(lhs)
	if err != nil {
		return nil, fmt.Errorf("%w (left side of %q)", err, s)
	}
	right, err := parseSide(rhs)
	if err != nil {
		return nil, fmt.Errorf("%w (right side of %q)", err, s)
	}
	if left.hasEllipsis != right.hasEllipsis {
		return nil, fmt.Errorf("%w: ellipsis must appear on both sides of %q or neither", ErrPattern, s)
	}

	p := &pattern{left: left, right: right}
	patternCache.Store(s, p)
	return p, nil
}

func tokenize(s string) []string {
	var tokens []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		case strings.HasPrefix(s[i:], ellipsis):
			tokens = append(tokens, ellipsis)
			i += len(ellipsis)
		default:
			j := i
			for j < len(s) && !strings.ContainsRune(" \t\n()", rune(s[j])) && !strings.HasPrefix(s[j:], ellipsis) {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		}
	}
	return tokens
}

func isIdentifier(tok string) bool {
	for i, r := range tok {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return tok != ""
}

func parseSide(s string) (side, error) {
	var (
		out     side
		current group
		inGroup bool
		seen    = make(map[string]bool)
	)
	out.bare = -1

	add := func(a axis) {
		if inGroup {
			current = append(current, a)
		} else {
			out.groups = append(out.groups, group{a})
		}
	}

	for _, tok := range tokenize(s) {
		switch {
		case tok == "(":
			if inGroup {
				return side{}, fmt.Errorf("%w: nested parentheses", ErrPattern)
			}
			inGroup = true
			current = group{}
		case tok == ")":
			if !inGroup {
				return side{}, fmt.Errorf("%w: unbalanced ')'", ErrPattern)
			}
			out.groups = append(out.groups, current)
			inGroup = false
		case tok == ellipsis:
			if out.hasEllipsis {
				return side{}, fmt.Errorf("%w: more than one ellipsis", ErrPattern)
			}
			out.hasEllipsis = true
			if !inGroup {
				out.bare = len(out.groups)
			}
			add(axis{name: ellipsis})
		case isIdentifier(tok):
			if seen[tok] {
				return side{}, fmt.Errorf("%w: duplicate axis %q", ErrPattern, tok)
			}
			seen[tok] = true
			add(axis{name: tok})
		default:
			n, err := strconv.Atoi(tok)
			if err != nil || n < 1 {
				return side{}, fmt.Errorf("%w: bad token %q", ErrPattern, tok)
			}
			if n == 1 {
				// A unit axis is an empty composition.
				if inGroup {
					continue
				}
				out.groups = append(out.groups, group{})
				continue
			}
			add(axis{literal: n})
		}
	}
	if inGroup {
		return side{}, fmt.Errorf("%w: unbalanced '('", ErrPattern)
	}
	return out, nil
}

// expand replaces the ellipsis with n generated axis names. A bare ellipsis
// becomes n separate groups, a parenthesised one a single group of n axes.
func (s side) expand(n int) []group {
	if !s.hasEllipsis {
		return s.groups
	}
	names := make([]axis, n)
	for i := range names {
		names[i] = axis{name: fmt.Sprintf("%s%d", ellipsis, i)}
	}

	var out []group
	for i, g := range s.groups {
		if i == s.bare {
			for _, a := range names {
				out = append(out, group{a})
			}
			continue
		}
		var ng group
		for _, a := range g {
			if a.name == ellipsis {
				ng = append(ng, names...)
			} else {
				ng = append(ng, a)
			}
		}
		out = append(out, ng)
	}
	return out
}

// ellipsisRank returns how many input dimensions the ellipsis covers.
func (s side) ellipsisRank(rank int) (int, error) {
	if !s.hasEllipsis {
		if len(s.groups) != rank {
			return 0, fmt.Errorf("%w: pattern has %d dimensions, input has %d", ErrPattern, len(s.groups), rank)
		}
		return 0, nil
	}
	if s.bare >= 0 {
		n := rank - (len(s.groups) - 1)
		if n < 0 {
			return 0, fmt.Errorf("%w: input rank %d too small for pattern", ErrPattern, rank)
		}
		return n, nil
	}
	// Ellipsis inside parentheses still consumes exactly one dimension,
	// but the number of axes it stands for cannot be recovered from it.
	return 0, fmt.Errorf("%w: ellipsis inside parentheses is only allowed on the output side", ErrPattern)
}
