package depcheck

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/hookdeps/internal/hooks"
	"github.com/jward/hookdeps/internal/semantic"
)

// stability classifies bindings relative to one component function. A
// stable binding keeps its identity across renders and never belongs in a
// dependency array.
type stability struct {
	f         *semantic.File
	registry  *hooks.Registry
	component semantic.ScopeID
	memo      map[semantic.BindingID]bool
}

func newStability(f *semantic.File, reg *hooks.Registry, component *sitter.Node) *stability {
	return &stability{
		f:         f,
		registry:  reg,
		component: f.Model.ScopeOf(component),
		memo:      make(map[semantic.BindingID]bool),
	}
}

// Stable reports whether the binding id, read at ref, is stable.
func (s *stability) Stable(id semantic.BindingID, ref *sitter.Node) bool {
	if id == semantic.NoBinding {
		return true
	}
	if s.selfReference(id, ref) {
		return true
	}
	return s.binding(id, map[semantic.BindingID]bool{})
}

// Local reports whether id is declared inside the component.
func (s *stability) Local(id semantic.BindingID) bool {
	b := s.f.Model.Binding(id)
	if b == nil || s.component == semantic.NoScope {
		return false
	}
	return s.f.Model.IsAncestorScope(s.component, b.Scope)
}

// selfReference reports whether ref sits inside the declaration that
// introduces id, e.g. a memoized callback that calls itself. Parameters
// and catch variables have the owning function or clause as Decl, so a
// read inside it is an ordinary capture.
func (s *stability) selfReference(id semantic.BindingID, ref *sitter.Node) bool {
	b := s.f.Model.Binding(id)
	if b == nil || b.Decl == nil || ref == nil {
		return false
	}
	if b.Kind == semantic.BindParam || b.Kind == semantic.BindCatch {
		return false
	}
	switch b.Decl.Type() {
	case "variable_declarator", "function_declaration",
		"generator_function_declaration", "class_declaration":
		return semantic.Within(ref, b.Decl)
	}
	return false
}

func (s *stability) binding(id semantic.BindingID, visiting map[semantic.BindingID]bool) bool {
	if v, ok := s.memo[id]; ok {
		return v
	}
	if visiting[id] {
		return false
	}
	visiting[id] = true
	v := s.classify(id, visiting)
	s.memo[id] = v
	return v
}

func (s *stability) classify(id semantic.BindingID, visiting map[semantic.BindingID]bool) bool {
	b := s.f.Model.Binding(id)
	if b == nil {
		return true
	}
	switch b.Kind {
	case semantic.BindImport, semantic.BindClass, semantic.BindType:
		return true
	}
	if !s.Local(id) {
		return true
	}
	switch b.Kind {
	case semantic.BindParam, semantic.BindCatch, semantic.BindFunction:
		return false
	}
	if b.Reassigned() {
		return false
	}

	init := semantic.Unwrap(b.Init)
	if init == nil {
		return false
	}
	if b.Kind == semantic.BindConst && len(b.Access) == 0 && semantic.IsConstantExpression(init) {
		return true
	}
	switch init.Type() {
	case "call_expression":
		return s.registry.StableFor(s.f, init, b.Access)
	case "identifier":
		if len(b.Access) != 0 {
			return false
		}
		target := s.f.Model.Resolve(init)
		if target == semantic.NoBinding {
			return true
		}
		return s.binding(target, visiting)
	}
	return false
}

// freshKind names why a local binding gets a new identity every render, or
// returns "" when it does not.
func (s *stability) freshKind(id semantic.BindingID) string {
	b := s.f.Model.Binding(id)
	if b == nil || !s.Local(id) {
		return ""
	}
	if b.Kind == semantic.BindFunction {
		return ReasonFunction
	}
	if n := len(b.Access); n != 0 {
		if b.Access[n-1].Kind == semantic.AccessRest {
			return ReasonObject
		}
		return ""
	}
	if b.Init == nil {
		return ""
	}
	init := semantic.Unwrap(b.Init)
	if !semantic.IsFreshValue(init) {
		return ""
	}
	switch init.Type() {
	case "object":
		return ReasonObject
	case "array":
		return ReasonArray
	case "class":
		return ReasonClass
	case "new_expression":
		return ReasonInstance
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return ReasonElement
	}
	return ReasonFunction
}
