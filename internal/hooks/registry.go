package hooks

import (
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/hookdeps/internal/semantic"
)

// DefaultSources are the modules built-in hooks are recognized from.
var DefaultSources = []string{"react", "preact/compat", "preact/hooks"}

// globalNamespace is accepted as a hook namespace when it resolves to no
// declaration, e.g. the UMD global in `React.useEffect`.
const globalNamespace = "React"

// Builtins returns the built-in hook table.
func Builtins() []Definition {
	effect := func(name string, closure, deps int) Definition {
		return Definition{Name: name, ClosureIndex: closure, DepsIndex: deps, Builtin: true}
	}
	stable := func(name string, s StableResult) Definition {
		return Definition{Name: name, ClosureIndex: NoIndex, DepsIndex: NoIndex, Stable: s, Builtin: true}
	}
	return []Definition{
		effect("useEffect", 0, 1),
		effect("useLayoutEffect", 0, 1),
		effect("useInsertionEffect", 0, 1),
		effect("useCallback", 0, 1),
		effect("useMemo", 0, 1),
		effect("useImperativeHandle", 1, 2),
		stable("useState", StableResult{Kind: StableIndices, Indices: []int{1}}),
		stable("useReducer", StableResult{Kind: StableIndices, Indices: []int{1}}),
		stable("useTransition", StableResult{Kind: StableIndices, Indices: []int{1}}),
		stable("useRef", StableResult{Kind: StableAll}),
	}
}

// Registry is the flat name → definition table shared by every call in a run.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	user    map[string]Definition
	builtin map[string]Definition
	sources map[string]bool
}

// NewRegistry builds a registry from user hook configuration. sources
// replaces DefaultSources when non-empty.
func NewRegistry(configs []Config, sources []string) (*Registry, error) {
	r := &Registry{
		user:    make(map[string]Definition, len(configs)),
		builtin: make(map[string]Definition),
		sources: make(map[string]bool),
	}
	for _, d := range Builtins() {
		r.builtin[d.Name] = d
	}
	if len(sources) == 0 {
		sources = DefaultSources
	}
	for _, s := range sources {
		r.sources[s] = true
	}
	for i, c := range configs {
		d, err := c.Definition()
		if err != nil {
			return nil, fmt.Errorf("hooks[%d]: %w", i, err)
		}
		r.user[d.Name] = d
	}
	return r, nil
}

// With returns a copy of r extended with additional user definitions.
func (r *Registry) With(defs ...Definition) *Registry {
	if len(defs) == 0 {
		return r
	}
	next := &Registry{
		user:    make(map[string]Definition, len(r.user)+len(defs)),
		builtin: r.builtin,
		sources: r.sources,
	}
	for k, v := range r.user {
		next.user[k] = v
	}
	for _, d := range defs {
		d.Builtin = false
		next.user[d.Name] = d
	}
	return next
}

// Definitions returns every definition, user entries shadowing built-ins,
// sorted by name.
func (r *Registry) Definitions() []Definition {
	var out []Definition
	for name, d := range r.builtin {
		if _, ok := r.user[name]; !ok {
			out = append(out, d)
		}
	}
	for _, d := range r.user {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Sources returns the recognized import sources, sorted.
func (r *Registry) Sources() []string {
	out := make([]string, 0, len(r.sources))
	for s := range r.sources {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the hook definition a call expression invokes. User
// definitions match on the callee name alone. Built-ins require the callee
// to trace to an import from a recognized source, directly, through a
// renamed import, or through one namespace member access.
func (r *Registry) Resolve(f *semantic.File, call *sitter.Node) (Definition, bool) {
	if call == nil || call.Type() != "call_expression" {
		return Definition{}, false
	}
	callee := semantic.Unwrap(call.ChildByFieldName("function"))
	if callee == nil {
		return Definition{}, false
	}

	switch callee.Type() {
	case "identifier":
		name := f.Text(callee)
		if d, ok := r.user[name]; ok {
			return d, true
		}
		return r.resolveImported(f, callee, name)

	case "member_expression":
		prop := callee.ChildByFieldName("property")
		obj := semantic.Unwrap(callee.ChildByFieldName("object"))
		if prop == nil || obj == nil || prop.Type() != "property_identifier" {
			return Definition{}, false
		}
		name := f.Text(prop)
		if obj.Type() == "identifier" {
			switch f.Text(obj) {
			case "jest", "vi":
				return Definition{}, false
			}
		}
		if d, ok := r.user[name]; ok {
			return d, true
		}
		d, ok := r.builtin[name]
		if !ok || obj.Type() != "identifier" {
			return Definition{}, false
		}
		if r.isNamespace(f, obj) {
			return d, true
		}
	}
	return Definition{}, false
}

func (r *Registry) resolveImported(f *semantic.File, callee *sitter.Node, name string) (Definition, bool) {
	id := f.Model.Resolve(callee)
	if id == semantic.NoBinding {
		// An undeclared global such as a test environment's `useEffect`.
		d, ok := r.builtin[name]
		return d, ok
	}
	b := f.Model.Binding(id)
	if b.Kind != semantic.BindImport || b.Import == nil || !r.sources[b.Import.Source] {
		return Definition{}, false
	}
	d, ok := r.builtin[b.Import.Imported]
	return d, ok
}

// isNamespace reports whether obj is a namespace or default import of a
// recognized source, or the unresolved React global.
func (r *Registry) isNamespace(f *semantic.File, obj *sitter.Node) bool {
	id := f.Model.Resolve(obj)
	if id == semantic.NoBinding {
		return f.Text(obj) == globalNamespace
	}
	b := f.Model.Binding(id)
	if b.Kind != semantic.BindImport || b.Import == nil || !r.sources[b.Import.Source] {
		return false
	}
	return b.Import.Imported == "*" || b.Import.Imported == "default"
}

// StableFor reports whether a binding destructured through access from the
// result of call is stable according to the hook call's definition.
func (r *Registry) StableFor(f *semantic.File, call *sitter.Node, access []semantic.Access) bool {
	d, ok := r.Resolve(f, call)
	if !ok {
		return false
	}
	return d.Stable.Covers(access)
}
