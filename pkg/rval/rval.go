package rval

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind tags the payload carried by a Rval.
type Kind int

const (
	KindNone Kind = iota
	KindScalar
	KindList
	KindFnCall
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindFnCall:
		return "function-call"
	case KindContainer:
		return "container"
	default:
		return "none"
	}
}

// FnCall is an unevaluated function invocation: a name plus unevaluated
// argument Rvals. FnCalls are identity-compared by pointer at most one
// level deep (see Equal).
type FnCall struct {
	Name string
	Args []Rval
}

// Rval is the tagged right-hand-side value of a promise constraint or a
// scope variable. Exactly one of the payload fields is meaningful,
// selected by Kind.
type Rval struct {
	Kind      Kind
	Scalar    string
	List      []Rval
	Call      *FnCall
	Container any
}

// None constructs the absence-of-a-promisee value.
func None() Rval { return Rval{Kind: KindNone} }

// Scalar constructs an 8-bit-clean scalar value. An empty string is a
// valid scalar.
func Scalar(s string) Rval { return Rval{Kind: KindScalar, Scalar: s} }

// List constructs an ordered list value. Elements may themselves be
// lists; lists must not be cyclic (the caller is responsible for
// this).
func List(items ...Rval) Rval { return Rval{Kind: KindList, List: items} }

// Func constructs an unevaluated function-call value.
func Func(name string, args ...Rval) Rval {
	return Rval{Kind: KindFnCall, Call: &FnCall{Name: name, Args: args}}
}

// ContainerOf wraps an opaque JSON-like tree (produced by encoding/json
// Unmarshal into any, or built directly from map[string]any/[]any/
// primitives) as a Container-tagged Rval.
func ContainerOf(v any) Rval { return Rval{Kind: KindContainer, Container: v} }

// Resolver is the minimal lookup capability Clone needs to auto-dereference
// a naked-list reference while splicing it into a containing list. The
// scope package's Scope type implements this.
type Resolver interface {
	// ResolveList returns the current value of a list-typed variable
	// named lval, and whether it exists and is list-typed.
	ResolveList(lval string) (items []Rval, ok bool)
}

var nakedListRef = regexp.MustCompile(`^@\(([A-Za-z_][A-Za-z0-9_.:\[\]]*)\)$`)

// nakedListName reports the variable name if s is exactly a naked-list
// reference token (`@(name)`), and ok=false otherwise. A naked-list
// reference is only legal as a full Rval slot, never embedded inside a
// longer string, so this checks the whole scalar, not a substring.
func nakedListName(s string) (name string, ok bool) {
	m := nakedListRef.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Clone performs a deep copy of v. If resolve is non-nil, any list
// element that is a scalar holding exactly a naked-list reference
// `@(name)` whose referent currently resolves (via resolve) to a list is
// spliced into the clone in place of the single element (auto-
// dereference); otherwise the element is copied literally. Passing a nil
// resolver always produces a literal deep copy.
func Clone(v Rval, resolve Resolver) Rval {
	switch v.Kind {
	case KindScalar:
		return Scalar(v.Scalar)
	case KindList:
		out := make([]Rval, 0, len(v.List))
		for _, elem := range v.List {
			if elem.Kind == KindScalar && resolve != nil {
				if name, ok := nakedListName(elem.Scalar); ok {
					if items, isList := resolve.ResolveList(name); isList {
						for _, item := range items {
							out = append(out, Clone(item, resolve))
						}
						continue
					}
				}
			}
			out = append(out, Clone(elem, resolve))
		}
		return Rval{Kind: KindList, List: out}
	case KindFnCall:
		args := make([]Rval, len(v.Call.Args))
		for i, a := range v.Call.Args {
			args[i] = Clone(a, resolve)
		}
		return Rval{Kind: KindFnCall, Call: &FnCall{Name: v.Call.Name, Args: args}}
	case KindContainer:
		return Rval{Kind: KindContainer, Container: cloneContainer(v.Container)}
	default:
		return None()
	}
}

func cloneContainer(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneContainer(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneContainer(val)
		}
		return out
	default:
		return t
	}
}

// Tri is a three-valued logic result: a structural comparison can be
// inconclusive when either side still has unresolved content.
type Tri int

const (
	False Tri = iota
	True
	Inconclusive
)

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case Inconclusive:
		return "inconclusive"
	default:
		return "false"
	}
}

var expandableRef = regexp.MustCompile(`\$\([^()]*\)|\$\{[^{}]*\}|@\([^()]*\)`)

// isExpandable reports whether s still contains a $(...) / ${...} /
// @(...) token that has not been resolved to a concrete value.
func isExpandable(s string) bool {
	return expandableRef.MatchString(s)
}

// Equal performs a structural comparison of a and b. It returns
// Inconclusive, rather than guessing, whenever either side's scalar
// content still contains an unexpanded variable reference, or either
// side is a FnCall (FnCalls compare by pointer identity one level deep
// and are otherwise treated as not yet resolvable to a value).
func Equal(a, b Rval) Tri {
	if a.Kind == KindFnCall || b.Kind == KindFnCall {
		if a.Kind == KindFnCall && b.Kind == KindFnCall && a.Call == b.Call {
			return True
		}
		return Inconclusive
	}

	if a.Kind != b.Kind {
		return False
	}

	switch a.Kind {
	case KindNone:
		return True
	case KindScalar:
		if isExpandable(a.Scalar) || isExpandable(b.Scalar) {
			return Inconclusive
		}
		if a.Scalar == b.Scalar {
			return True
		}
		return False
	case KindList:
		if len(a.List) != len(b.List) {
			return False
		}
		result := True
		for i := range a.List {
			switch Equal(a.List[i], b.List[i]) {
			case False:
				return False
			case Inconclusive:
				result = Inconclusive
			}
		}
		return result
	case KindContainer:
		return containerEqual(a.Container, b.Container)
	default:
		return False
	}
}

func containerEqual(a, b any) Tri {
	if fmt.Sprint(a) == fmt.Sprint(b) {
		return True
	}
	return False
}

// Destroy is a no-op; Go's garbage collector reclaims Rval memory, so
// there is nothing to free. It exists so call sites written against an
// explicit-free ownership style have a well-defined place to put the
// call.
func Destroy(Rval) {}

// ContainsSelfReference reports whether any scalar inside v textually
// contains a `$(lval)`/`${lval}` or `@(lval)` token referring to lval
// itself. This is used to reject non-convergent variable definitions
// such as `x => "a $(x) b"`.
func ContainsSelfReference(v Rval, lval string) bool {
	tokens := []string{
		"$(" + lval + ")",
		"${" + lval + "}",
		"@(" + lval + ")",
	}
	return scanScalars(v, func(s string) bool {
		for _, t := range tokens {
			if strings.Contains(s, t) {
				return true
			}
		}
		return false
	})
}

func scanScalars(v Rval, pred func(string) bool) bool {
	switch v.Kind {
	case KindScalar:
		return pred(v.Scalar)
	case KindList:
		for _, e := range v.List {
			if scanScalars(e, pred) {
				return true
			}
		}
		return false
	case KindFnCall:
		for _, a := range v.Call.Args {
			if scanScalars(a, pred) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
