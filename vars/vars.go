// Package vars is the variable store collaborator (§6, "consumed"):
// shell parameters, environment variables, and function-local scoping.
// It is intentionally small; expand and interp only need Get/Set/Unset
// and a way to push/pop a function call's local scope.
package vars

import "sort"

// Value is a shell scalar, the unit vars stores. Exported is ash's
// "export" attribute: whether the variable is copied into the
// environment of launched processes (see Store.Environ).
type Value struct {
	Str      string
	Exported bool
	ReadOnly bool
}

// Store is a stack of scopes: index 0 is the global scope, and each
// function call pushes one local scope on top (Local builtin's target).
// Lookups walk from the top down, matching ash's local-variable shadowing.
type Store struct {
	scopes []map[string]Value
}

// New returns a Store seeded from a process environment, e.g. os.Environ(),
// with every entry marked exported, mirroring a shell's initial state.
func New(environ []string) *Store {
	s := &Store{scopes: []map[string]Value{{}}}
	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				s.scopes[0][kv[:i]] = Value{Str: kv[i+1:], Exported: true}
				break
			}
		}
	}
	return s
}

// PushScope begins a function call's local scope.
func (s *Store) PushScope() {
	s.scopes = append(s.scopes, map[string]Value{})
}

// PopScope discards the most recent local scope, e.g. on function return.
func (s *Store) PopScope() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// Get reports a variable's value and whether it is set at all.
func (s *Store) Get(name string) (Value, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i][name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Set assigns name in the innermost scope that already holds it, or in
// the global scope (scopes[0]) if it is new — matching ash's "assignment
// inside a function updates the existing variable wherever it lives,
// otherwise creates it locally only if declared local" simplification.
func (s *Store) Set(name, value string) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if old, ok := s.scopes[i][name]; ok {
			old.Str = value
			s.scopes[i][name] = old
			return
		}
	}
	s.scopes[0][name] = Value{Str: value}
}

// SetLocal assigns name in the current topmost scope unconditionally,
// the `local name=value` builtin's operation.
func (s *Store) SetLocal(name, value string) {
	top := s.scopes[len(s.scopes)-1]
	top[name] = Value{Str: value}
}

// Export marks an existing or newly created variable for inheritance by
// launched processes.
func (s *Store) Export(name string) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i][name]; ok {
			v.Exported = true
			s.scopes[i][name] = v
			return
		}
	}
	s.scopes[0][name] = Value{Exported: true}
}

// Unset removes a variable from whichever scope holds it.
func (s *Store) Unset(name string) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i][name]; ok {
			delete(s.scopes[i], name)
			return
		}
	}
}

// Snapshot returns a deep copy of the Store, used by interp's subshell
// and pipeline-stage support so a forked evaluation branch's variable
// writes never escape to the parent, ash's fork()-for-free isolation
// realized as a struct copy instead.
func (s *Store) Snapshot() *Store {
	cp := &Store{scopes: make([]map[string]Value, len(s.scopes))}
	for i, scope := range s.scopes {
		m := make(map[string]Value, len(scope))
		for k, v := range scope {
			m[k] = v
		}
		cp.scopes[i] = m
	}
	return cp
}

// Environ returns the sorted "KEY=value" pairs for variables marked
// exported, visible from the current scope stack. Used by interp's
// external-command launch (callExternal) to build a child's environment.
func (s *Store) Environ() []string {
	merged := map[string]string{}
	for _, scope := range s.scopes {
		for name, v := range scope {
			if v.Exported {
				merged[name] = v.Str
			}
		}
	}
	out := make([]string, 0, len(merged))
	for name, val := range merged {
		out = append(out, name+"="+val)
	}
	sort.Strings(out)
	return out
}
