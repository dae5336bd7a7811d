package rval

import (
	"regexp"
	"strings"
)

// Append returns a new list Rval with item appended to the end of list.
// list must be KindList (or KindNone, treated as empty).
func Append(list Rval, item Rval) Rval {
	base := asList(list)
	out := make([]Rval, len(base)+1)
	copy(out, base)
	out[len(base)] = item
	return Rval{Kind: KindList, List: out}
}

// Prepend returns a new list Rval with item inserted at the front.
func Prepend(list Rval, item Rval) Rval {
	base := asList(list)
	out := make([]Rval, len(base)+1)
	out[0] = item
	copy(out[1:], base)
	return Rval{Kind: KindList, List: out}
}

// Length returns the number of elements in a list Rval. A None value has
// length zero; any other non-list Kind is treated as a single-element
// list of itself, matching how a bare scalar can stand in for a
// singleton list in promise bodies.
func Length(list Rval) int {
	switch list.Kind {
	case KindNone:
		return 0
	case KindList:
		return len(list.List)
	default:
		return 1
	}
}

func asList(v Rval) []Rval {
	switch v.Kind {
	case KindList:
		return v.List
	case KindNone:
		return nil
	default:
		return []Rval{v}
	}
}

// SplitOnChar splits a scalar Rval's string content on every occurrence
// of sep, returning a list of scalar Rvals in order.
func SplitOnChar(s Rval, sep string) Rval {
	parts := strings.Split(s.Scalar, sep)
	items := make([]Rval, len(parts))
	for i, p := range parts {
		items[i] = Scalar(p)
	}
	return Rval{Kind: KindList, List: items}
}

// SplitOnRegex splits a scalar Rval's string content on matches of
// pattern, honouring a maximum number of result elements (max <= 0 means
// unbounded) and optionally discarding blank elements.
func SplitOnRegex(s Rval, pattern string, max int, keepBlanks bool) (Rval, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rval{}, err
	}

	var parts []string
	if max > 0 {
		parts = re.Split(s.Scalar, max)
	} else {
		parts = re.Split(s.Scalar, -1)
	}

	items := make([]Rval, 0, len(parts))
	for _, p := range parts {
		if p == "" && !keepBlanks {
			continue
		}
		items = append(items, Scalar(p))
	}
	return Rval{Kind: KindList, List: items}, nil
}

// Print renders a list Rval in the canonical `{ 'a', 'b' }` form used by
// policy source and diagnostic output. Non-scalar elements are rendered
// recursively; this is the inverse of ParseShown for well-formed input.
func Print(list Rval) string {
	if list.Kind != KindList {
		if list.Kind == KindScalar {
			return "'" + list.Scalar + "'"
		}
		return "{}"
	}
	parts := make([]string, len(list.List))
	for i, e := range list.List {
		parts[i] = Print(e)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// ParseShown parses the canonical `{ 'a', 'b' }` print form produced by
// Print back into a list Rval. It is intentionally tolerant of both
// single and double quoting and of surrounding whitespace, matching the
// quoting styles accepted by the promise-body grammar.
func ParseShown(s string) Rval {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "{")
	trimmed = strings.TrimSuffix(trimmed, "}")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return Rval{Kind: KindList}
	}

	var items []Rval
	for _, raw := range splitTopLevelCommas(trimmed) {
		item := strings.TrimSpace(raw)
		item = unquote(item)
		items = append(items, Scalar(item))
	}
	return Rval{Kind: KindList, List: items}
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// splitTopLevelCommas splits on commas that are not inside a quoted
// substring, so that a quoted scalar containing a literal comma is not
// split in two.
func splitTopLevelCommas(s string) []string {
	var out []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
