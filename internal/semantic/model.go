package semantic

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// ScopeID indexes a Scope in a Model's scope arena.
type ScopeID int

// BindingID indexes a Binding in a Model's binding arena.
type BindingID int

// Sentinels for absent scopes and bindings.
const (
	NoScope   ScopeID   = -1
	NoBinding BindingID = -1
)

// ScopeKind classifies what introduced a scope.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeClass
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeClass:
		return "class"
	}
	return "unknown"
}

// BindingKind classifies how a name was declared.
type BindingKind int

const (
	BindVar BindingKind = iota
	BindLet
	BindConst
	BindFunction
	BindClass
	BindParam
	BindImport
	BindCatch
	BindType // enums and namespaces
)

func (k BindingKind) String() string {
	switch k {
	case BindVar:
		return "var"
	case BindLet:
		return "let"
	case BindConst:
		return "const"
	case BindFunction:
		return "function"
	case BindClass:
		return "class"
	case BindParam:
		return "param"
	case BindImport:
		return "import"
	case BindCatch:
		return "catch"
	case BindType:
		return "type"
	}
	return "unknown"
}

// AccessKind is one step of a destructuring path.
type AccessKind int

const (
	AccessIndex    AccessKind = iota // array pattern position
	AccessKey                        // object pattern property
	AccessRest                       // ...rest element
	AccessComputed                   // object pattern with a computed key
)

// Access is one step from a declarator's initializer to a destructured
// binding. `const [a, { b }] = init` gives a [Index 0] and b [Index 1, Key b].
type Access struct {
	Kind  AccessKind
	Index int
	Key   string
}

// Import describes where an import binding comes from. Imported is the
// exported name, "default" for default imports and "*" for namespaces.
type Import struct {
	Source   string
	Imported string
}

// Scope is a lexical scope. Parent is an index into the same arena.
type Scope struct {
	ID     ScopeID
	Kind   ScopeKind
	Parent ScopeID
	Node   *sitter.Node

	names map[string]BindingID
}

// Binding is a declared name.
type Binding struct {
	ID    BindingID
	Name  string
	Kind  BindingKind
	Scope ScopeID

	// Ident is the declaring identifier.
	Ident *sitter.Node
	// Decl is the declaring construct: a variable_declarator, a function or
	// class declaration, the function owning a parameter, the catch clause,
	// the import statement, or the for-in/of statement.
	Decl *sitter.Node
	// Init is the declarator's initializer, nil when absent.
	Init *sitter.Node
	// Access is the destructuring path from Init to this binding.
	Access []Access
	// Import is set for BindImport.
	Import *Import
	// Writes holds every identifier that reassigns the binding after its
	// declaration.
	Writes []*sitter.Node
}

// Reassigned reports whether the binding is written anywhere after its
// declaration.
func (b *Binding) Reassigned() bool {
	return len(b.Writes) > 0
}

// Reference is a resolved identifier occurrence.
type Reference struct {
	Ident   *sitter.Node
	Scope   ScopeID
	Binding BindingID // NoBinding when unresolved
	Read    bool
	Write   bool
}

// Model is the read-only scope and binding table of one file.
type Model struct {
	scopes   []Scope
	bindings []Binding
	refs     []Reference // sorted by identifier start byte

	refAt      map[uint32]int
	declAt     map[uint32]BindingID
	nodeScopes map[nodeKey]ScopeID
}

type nodeKey struct {
	start, end uint32
	typ        string
}

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{start: n.StartByte(), end: n.EndByte(), typ: n.Type()}
}

// Scope returns the scope with the given ID.
func (m *Model) Scope(id ScopeID) *Scope {
	if id < 0 || int(id) >= len(m.scopes) {
		return nil
	}
	return &m.scopes[id]
}

// Binding returns the binding with the given ID.
func (m *Model) Binding(id BindingID) *Binding {
	if id < 0 || int(id) >= len(m.bindings) {
		return nil
	}
	return &m.bindings[id]
}

// Bindings returns every binding in declaration order.
func (m *Model) Bindings() []Binding {
	return m.bindings
}

// ScopeCount returns the number of scopes in the arena.
func (m *Model) ScopeCount() int {
	return len(m.scopes)
}

// ScopeOf returns the scope introduced by node, or NoScope.
func (m *Model) ScopeOf(node *sitter.Node) ScopeID {
	if node == nil {
		return NoScope
	}
	if id, ok := m.nodeScopes[keyOf(node)]; ok {
		return id
	}
	return NoScope
}

// Resolve returns the binding an identifier refers to or declares.
func (m *Model) Resolve(ident *sitter.Node) BindingID {
	if ident == nil {
		return NoBinding
	}
	if i, ok := m.refAt[ident.StartByte()]; ok {
		return m.refs[i].Binding
	}
	if id, ok := m.declAt[ident.StartByte()]; ok {
		return id
	}
	return NoBinding
}

// ReferenceAt returns the reference recorded for an identifier.
func (m *Model) ReferenceAt(ident *sitter.Node) (Reference, bool) {
	if ident == nil {
		return Reference{}, false
	}
	i, ok := m.refAt[ident.StartByte()]
	if !ok {
		return Reference{}, false
	}
	return m.refs[i], true
}

// ReferencesIn returns the references whose identifiers lie inside node,
// in source order.
func (m *Model) ReferencesIn(node *sitter.Node) []Reference {
	start, end := node.StartByte(), node.EndByte()
	lo := sort.Search(len(m.refs), func(i int) bool {
		return m.refs[i].Ident.StartByte() >= start
	})
	hi := lo
	for hi < len(m.refs) && m.refs[hi].Ident.StartByte() < end {
		hi++
	}
	return m.refs[lo:hi]
}

// Lookup resolves name starting at scope and walking up the parent chain.
func (m *Model) Lookup(scope ScopeID, name string) BindingID {
	for id := scope; id != NoScope; id = m.scopes[id].Parent {
		if b, ok := m.scopes[id].names[name]; ok {
			return b
		}
	}
	return NoBinding
}

// IsAncestorScope reports whether ancestor is scope or one of its parents.
func (m *Model) IsAncestorScope(ancestor, scope ScopeID) bool {
	for id := scope; id != NoScope; id = m.scopes[id].Parent {
		if id == ancestor {
			return true
		}
	}
	return false
}

// ScopeChain returns the scope IDs from scope up to the module scope.
func (m *Model) ScopeChain(scope ScopeID) []ScopeID {
	var chain []ScopeID
	for id := scope; id != NoScope; id = m.scopes[id].Parent {
		chain = append(chain, id)
	}
	return chain
}
