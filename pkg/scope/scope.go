package scope

import (
	"fmt"
	"strings"
	"sync"

	"github.com/grovestate/promised/pkg/hashtable"
	"github.com/grovestate/promised/pkg/log"
	"github.com/grovestate/promised/pkg/rval"
)

const defaultNamespacePrefix = "default:"

// Scope is one named variable namespace: a scope identifier and the
// hashtable.Table backing it. Scope implements rval.Resolver so that
// rval.Clone can auto-dereference @(name) naked-list references against
// whichever scope is currently being expanded.
type Scope struct {
	Name  string
	Table *hashtable.Table

	store *Store
}

// ResolveList looks up name as a list-typed variable of this scope (or,
// if name is qualified with "scope.var", of the scope it names) and
// returns its elements. ok is false if the variable does not exist or
// is not list-typed, in which case callers must leave the naked-list
// reference as a literal string rather than splice in nothing.
func (sc *Scope) ResolveList(name string) ([]rval.Rval, bool) {
	v, dt, found := sc.store.GetVariable(sc.Name, name)
	if !found || !dt.IsList() {
		return nil, false
	}
	if v.Kind != rval.KindList {
		return nil, false
	}
	return v.List, true
}

// Store is the process-wide registry of scopes, guarded by a single
// mutex: scope creation, lookup, deletion and copy all contend for the
// same lock, and no finer-grained locking is attempted.
type Store struct {
	mu     sync.Mutex
	scopes map[string]*Scope

	thisStack  []*Scope
	stackDepth int
}

// NewStore returns an empty registry.
func NewStore() *Store {
	return &Store{scopes: make(map[string]*Scope)}
}

func stripNamespace(name string) string {
	return strings.TrimPrefix(name, defaultNamespacePrefix)
}

// NewScope creates an empty scope named name, or is a no-op if one
// already exists under that name.
func (s *Store) NewScope(name string) *Scope {
	name = stripNamespace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.scopes[name]; ok {
		return sc
	}

	sc := &Scope{Name: name, Table: hashtable.New(), store: s}
	s.scopes[name] = sc
	return sc
}

// GetScope returns the scope named name, stripping a leading
// "default:" namespace qualifier first.
func (s *Store) GetScope(name string) (*Scope, bool) {
	name = stripNamespace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scopes[name]
	return sc, ok
}

// DeleteScope removes the scope named name, if it exists.
func (s *Store) DeleteScope(name string) {
	name = stripNamespace(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, name)
}

// DeleteAll removes every scope in the registry.
func (s *Store) DeleteAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes = make(map[string]*Scope)
}

// CopyScope creates newName (if it does not already exist) and copies
// every live variable from oldName into it via hashtable.CopyFrom, so a
// variable already present under newName is left untouched.
func (s *Store) CopyScope(newName, oldName string) {
	dst := s.NewScope(newName)

	oldName = stripNamespace(oldName)
	s.mu.Lock()
	src, ok := s.scopes[oldName]
	s.mu.Unlock()
	if !ok {
		return
	}

	dst.Table.CopyFrom(src.Table)
}

// PushThis renames the current "this" scope to "this_<depth>" and
// stacks it, so a nested bundle call can establish a fresh "this"
// without destroying the caller's. It is a no-op if "this" does not
// currently exist.
func (s *Store) PushThis() {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scopes["this"]
	if !ok {
		return
	}

	s.stackDepth++
	s.thisStack = append(s.thisStack, sc)

	delete(s.scopes, "this")
	newName := fmt.Sprintf("this_%d", s.stackDepth)
	sc.Name = newName
	s.scopes[newName] = sc
}

// PopThis discards the current "this" scope and restores the one most
// recently pushed by PushThis, renaming it back to "this". It is a
// no-op if the stack is empty.
func (s *Store) PopThis() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stackDepth == 0 || len(s.thisStack) == 0 {
		return
	}

	delete(s.scopes, "this")

	last := len(s.thisStack) - 1
	sc := s.thisStack[last]
	s.thisStack = s.thisStack[:last]
	s.stackDepth--

	sc.Name = "this"
	s.scopes["this"] = sc
}

// PutScalar assigns a scalar value to lval in scope scopeName. If the
// variable already exists with an identical value it is left alone; if
// it exists with a different value it is overwritten and a
// redefinition warning is logged rather than the assignment being
// rejected. A right-hand side that contains a reference to lval itself
// is rejected, since the assignment could never converge.
func (s *Store) PutScalar(scopeName, lval string, v rval.Rval, dt hashtable.DataType) error {
	return s.put(scopeName, lval, v, dt)
}

// PutList assigns a list value to lval in scope scopeName, with the
// same redefinition and self-reference semantics as PutScalar.
func (s *Store) PutList(scopeName, lval string, v rval.Rval, dt hashtable.DataType) error {
	return s.put(scopeName, lval, v, dt)
}

func (s *Store) put(scopeName, lval string, v rval.Rval, dt hashtable.DataType) error {
	if rval.ContainsSelfReference(v, lval) {
		return fmt.Errorf("scope %s: variable %q contains itself (non-convergent)", scopeName, lval)
	}

	sc := s.NewScope(scopeName)

	if existing, ok := sc.Table.Lookup(lval); ok {
		if rval.Equal(existing.Rval, v) == rval.True {
			return nil
		}

		log.WithComponent("scope").Warn().
			Str("scope", scopeName).
			Str("lval", lval).
			Msg("duplicate selection of value for variable")

		sc.Table.Delete(lval)
	}

	if !sc.Table.Insert(lval, v, dt) {
		return fmt.Errorf("scope %s: hash table full inserting %q", scopeName, lval)
	}
	return nil
}

// GetVariable resolves lval against scopeName. A qualified name of the
// form "otherscope.lval" or "otherscope:lval" looks the variable up in
// otherscope instead. found is false, and the returned Rval echoes lval
// back as a literal scalar, if no such scope or variable exists -- the
// caller gets the unexpanded reference back rather than an empty
// value.
func (s *Store) GetVariable(scopeName, lval string) (rval.Rval, hashtable.DataType, bool) {
	targetScope := scopeName
	varName := lval

	if qualifier, rest, ok := splitQualified(lval); ok {
		targetScope = qualifier
		varName = rest
	}

	sc, ok := s.GetScope(targetScope)
	if !ok {
		return rval.Scalar(lval), hashtable.DataNone, false
	}

	assoc, ok := sc.Table.Lookup(varName)
	if !ok {
		return rval.Scalar(lval), hashtable.DataNone, false
	}

	return assoc.Rval, assoc.Datatype, true
}

// splitQualified splits a variable reference of the form
// "scope.lval" or "scope:lval" into its scope qualifier and bare lval.
// ok is false for an unqualified name.
func splitQualified(name string) (scopeName, lval string, ok bool) {
	if idx := strings.IndexAny(name, ".:"); idx > 0 {
		return name[:idx], name[idx+1:], true
	}
	return "", name, false
}

// DeleteVariable removes lval from scopeName, if present.
func (s *Store) DeleteVariable(scopeName, lval string) {
	sc, ok := s.GetScope(scopeName)
	if !ok {
		return
	}
	sc.Table.Delete(lval)
}

// Param is one formal/actual argument pair or a give/take pair used by
// Augment and MapBodyArgs.
type Param struct {
	Name  string
	Value rval.Rval
	Type  hashtable.DataType
}

// Augment constructs scopeName's bindings from a bundle call's formal
// parameters (lvals) matched positionally against its actual arguments
// (rvals). A list-typed actual must be passed as a naked @(name)
// reference; scalars and already-evaluated function results are bound
// directly. len(lvals) and len(rvals) must match -- a formal/actual
// count mismatch is a policy authoring error the caller should already
// have rejected the bundle for.
func (s *Store) Augment(scopeName, ns string, lvals []string, rvals []rval.Rval) error {
	if len(lvals) != len(rvals) {
		return fmt.Errorf("scope %s: formal/actual parameter count mismatch (%d vs %d)", scopeName, len(lvals), len(rvals))
	}

	for i, lval := range lvals {
		actual := rvals[i]

		if actual.Kind == rval.KindScalar {
			if name, ok := nakedListReference(actual.Scalar); ok {
				qualified := name
				if !strings.ContainsAny(name, ".:") {
					qualified = ns + ":" + name
				}
				v, dt, found := s.GetVariable(scopeName, qualified)
				if found && dt.IsList() {
					if err := s.PutList(scopeName, lval, v, hashtable.DataStringList); err != nil {
						return err
					}
					continue
				}
				log.WithComponent("scope").Error().
					Str("scope", scopeName).
					Str("ref", qualified).
					Msg("list parameter not found while constructing scope")
				if err := s.PutScalar(scopeName, lval, actual, hashtable.DataString); err != nil {
					return err
				}
				continue
			}
		}

		if err := s.PutScalar(scopeName, lval, actual, hashtable.DataString); err != nil {
			return err
		}
	}

	return nil
}

// nakedListReference reports whether s is exactly "@(name)" and
// returns name.
func nakedListReference(s string) (string, bool) {
	if len(s) < 4 || !strings.HasPrefix(s, "@(") || !strings.HasSuffix(s, ")") {
		return "", false
	}
	return s[2 : len(s)-1], true
}

// MapBodyArgs binds a body's "take" formal parameter names to a
// caller's "give" actual arguments, positionally, inside scopeName.
// Like Augment, it requires give and take to be the same length.
func (s *Store) MapBodyArgs(scopeName string, give, take []Param) error {
	if len(give) != len(take) {
		return fmt.Errorf("scope %s: body template argument mismatch (give=%d take=%d)", scopeName, len(give), len(take))
	}

	for i, g := range give {
		lval := take[i].Name
		if g.Type != take[i].Type && take[i].Type != hashtable.DataNone {
			log.WithComponent("scope").Warn().
				Str("formal", g.Name).
				Str("actual", lval).
				Msg("type mismatch between logical/formal body parameters")
		}

		if err := s.PutScalar(scopeName, lval, g.Value, g.Type); err != nil {
			return err
		}
	}
	return nil
}

// DereferenceListVariables replaces, in scopeName's hashtable, every
// variable named in namelist with the scalar currently held in the
// correspondingly-indexed entry of dereflist, demoting its DataType
// from a *_LIST type to its scalar equivalent. This is the step the
// iteration engine's wheel mechanism performs each time it advances:
// namelist and dereflist must be the same length.
func (s *Store) DereferenceListVariables(scopeName string, namelist []string, dereflist []rval.Rval) error {
	if len(namelist) != len(dereflist) {
		return fmt.Errorf("scope %s: name list %d, deref list %d", scopeName, len(namelist), len(dereflist))
	}
	if len(namelist) == 0 {
		return nil
	}

	sc, ok := s.GetScope(scopeName)
	if !ok {
		return nil
	}

	for i, name := range namelist {
		assoc, found := sc.Table.Lookup(name)
		if !found {
			continue
		}

		assoc.Rval = dereflist[i]
		assoc.Datatype = assoc.Datatype.Demote()
	}
	return nil
}

// Snapshot reports how many scopes are currently registered and how
// many of their hashtables have been promoted to the huge
// representation, for metrics collection. It takes the same mutex as
// every other mutating operation, so callers should poll this
// periodically rather than on every promise.
func (s *Store) Snapshot() (scopes, huge, tiny int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range s.scopes {
		scopes++
		if sc.Table.IsHuge() {
			huge++
		} else {
			tiny++
		}
	}
	return scopes, huge, tiny
}

// StackDepth returns the current depth of the pushed "this" scope
// stack, for metrics collection.
func (s *Store) StackDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stackDepth
}

// ToList returns every variable name currently bound in scopeName, in
// no particular order.
func (s *Store) ToList(scopeName string) []string {
	sc, ok := s.GetScope(scopeName)
	if !ok {
		return nil
	}

	var names []string
	it := sc.Table.Iterator()
	for {
		a, ok := it.Next()
		if !ok {
			break
		}
		names = append(names, a.Lval)
	}
	return names
}
