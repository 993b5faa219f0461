package semantic

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// pendingRef is an identifier seen during the walk, resolved once every
// declaration in the file is known so hoisted names resolve.
type pendingRef struct {
	ident *sitter.Node
	scope ScopeID
	read  bool
	write bool
}

type builder struct {
	src     []byte
	m       *Model
	pending []pendingRef
}

// Build constructs the scope and binding model for a parsed file.
func Build(root *sitter.Node, src []byte) *Model {
	b := &builder{
		src: src,
		m: &Model{
			refAt:      make(map[uint32]int),
			declAt:     make(map[uint32]BindingID),
			nodeScopes: make(map[nodeKey]ScopeID),
		},
	}
	module := b.newScope(ScopeModule, NoScope, root)
	b.walkChildren(root, module)
	b.resolve()
	return b.m
}

func (b *builder) newScope(kind ScopeKind, parent ScopeID, node *sitter.Node) ScopeID {
	id := ScopeID(len(b.m.scopes))
	b.m.scopes = append(b.m.scopes, Scope{
		ID:     id,
		Kind:   kind,
		Parent: parent,
		Node:   node,
		names:  make(map[string]BindingID),
	})
	b.m.nodeScopes[keyOf(node)] = id
	return id
}

// hoistTarget returns the nearest function or module scope, where var
// declarations live.
func (b *builder) hoistTarget(scope ScopeID) ScopeID {
	for id := scope; id != NoScope; id = b.m.scopes[id].Parent {
		switch b.m.scopes[id].Kind {
		case ScopeFunction, ScopeModule:
			return id
		}
	}
	return scope
}

func (b *builder) declare(scope ScopeID, ident *sitter.Node, kind BindingKind, decl, init *sitter.Node, access []Access) BindingID {
	name := ident.Content(b.src)
	if existing, ok := b.m.scopes[scope].names[name]; ok && kind == BindVar {
		b.m.declAt[ident.StartByte()] = existing
		return existing
	}
	id := BindingID(len(b.m.bindings))
	b.m.bindings = append(b.m.bindings, Binding{
		ID:     id,
		Name:   name,
		Kind:   kind,
		Scope:  scope,
		Ident:  ident,
		Decl:   decl,
		Init:   init,
		Access: append([]Access(nil), access...),
	})
	b.m.scopes[scope].names[name] = id
	b.m.declAt[ident.StartByte()] = id
	return id
}

func (b *builder) ref(ident *sitter.Node, scope ScopeID, read, write bool) {
	b.pending = append(b.pending, pendingRef{ident: ident, scope: scope, read: read, write: write})
}

func (b *builder) resolve() {
	sort.SliceStable(b.pending, func(i, j int) bool {
		return b.pending[i].ident.StartByte() < b.pending[j].ident.StartByte()
	})
	for _, p := range b.pending {
		id := b.m.Lookup(p.scope, p.ident.Content(b.src))
		if i, ok := b.m.refAt[p.ident.StartByte()]; ok {
			// `x += 1` is recorded once as a read and once as a write.
			b.m.refs[i].Read = b.m.refs[i].Read || p.read
			b.m.refs[i].Write = b.m.refs[i].Write || p.write
		} else {
			b.m.refAt[p.ident.StartByte()] = len(b.m.refs)
			b.m.refs = append(b.m.refs, Reference{
				Ident:   p.ident,
				Scope:   p.scope,
				Binding: id,
				Read:    p.read,
				Write:   p.write,
			})
		}
		if p.write && id != NoBinding {
			b.m.bindings[id].Writes = append(b.m.bindings[id].Writes, p.ident)
		}
	}
}

func (b *builder) walkChildren(n *sitter.Node, scope ScopeID) {
	for i := 0; i < int(n.ChildCount()); i++ {
		b.walk(n.Child(i), scope)
	}
}

func (b *builder) walk(n *sitter.Node, scope ScopeID) {
	if n == nil {
		return
	}
	typ := n.Type()
	if isTypeContext(typ) {
		return
	}

	switch typ {
	case "comment", "string", "number", "regex", "template_chars",
		"property_identifier", "private_property_identifier",
		"shorthand_property_identifier_pattern", "statement_identifier",
		"type_identifier", "export_clause", "jsx_namespace_name":
		return

	case "identifier":
		if isIntrinsicJSXName(n, b.src) {
			return
		}
		b.ref(n, scope, true, false)

	case "shorthand_property_identifier":
		b.ref(n, scope, true, false)

	case "nested_identifier":
		if first := n.NamedChild(0); first != nil {
			b.walk(first, scope)
		}

	case "import_statement":
		b.declareImport(n, scope)

	case "lexical_declaration", "variable_declaration":
		b.declareVariables(n, scope)

	case "function_declaration", "generator_function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(scope, name, BindFunction, n, nil, nil)
		}
		b.walkFunction(n, scope)

	case "function", "function_expression", "generator_function", "arrow_function":
		b.walkFunction(n, scope)

	case "method_definition":
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "computed_property_name" {
			b.walk(name, scope)
		}
		b.walkFunction(n, scope)

	case "class_declaration", "abstract_class_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(scope, name, BindClass, n, nil, nil)
		}
		b.walkClass(n, scope, false)

	case "class":
		b.walkClass(n, scope, true)

	case "enum_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(scope, name, BindType, n, nil, nil)
		}

	case "internal_module", "module":
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			b.declare(scope, name, BindType, n, nil, nil)
		}

	case "statement_block", "switch_body", "class_static_block":
		inner := b.newScope(ScopeBlock, scope, n)
		b.walkChildren(n, inner)

	case "for_statement":
		inner := b.newScope(ScopeBlock, scope, n)
		b.walkChildren(n, inner)

	case "for_in_statement":
		b.walkForIn(n, scope)

	case "catch_clause":
		inner := b.newScope(ScopeBlock, scope, n)
		if param := n.ChildByFieldName("parameter"); param != nil {
			b.declarePattern(inner, param, BindCatch, n, nil, nil)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.walkChildren(body, inner)
		}

	case "assignment_expression":
		left := n.ChildByFieldName("left")
		b.walkAssignTarget(left, scope)
		b.walk(n.ChildByFieldName("right"), scope)

	case "augmented_assignment_expression":
		left := n.ChildByFieldName("left")
		if left != nil && left.Type() == "identifier" {
			b.ref(left, scope, true, true)
		} else {
			b.walk(left, scope)
		}
		b.walk(n.ChildByFieldName("right"), scope)

	case "update_expression":
		arg := Unwrap(n.ChildByFieldName("argument"))
		if arg != nil && arg.Type() == "identifier" {
			b.ref(arg, scope, true, true)
		} else {
			b.walk(arg, scope)
		}

	case "as_expression", "satisfies_expression":
		b.walk(n.NamedChild(0), scope)

	case "type_assertion":
		b.walk(n.NamedChild(int(n.NamedChildCount())-1), scope)

	case "required_parameter", "optional_parameter":
		// Only reached outside formal_parameters (e.g. index signatures).
		return

	default:
		b.walkChildren(n, scope)
	}
}

func (b *builder) declareImport(n *sitter.Node, scope ScopeID) {
	srcNode := n.ChildByFieldName("source")
	if srcNode == nil {
		return
	}
	source := StringValue(srcNode, b.src)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			part := clause.NamedChild(j)
			switch part.Type() {
			case "identifier":
				id := b.declare(scope, part, BindImport, n, nil, nil)
				b.m.bindings[id].Import = &Import{Source: source, Imported: "default"}
			case "namespace_import":
				for k := 0; k < int(part.NamedChildCount()); k++ {
					if ident := part.NamedChild(k); ident.Type() == "identifier" {
						id := b.declare(scope, ident, BindImport, n, nil, nil)
						b.m.bindings[id].Import = &Import{Source: source, Imported: "*"}
					}
				}
			case "named_imports":
				for k := 0; k < int(part.NamedChildCount()); k++ {
					spec := part.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					if name == nil {
						continue
					}
					local := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = alias
					}
					id := b.declare(scope, local, BindImport, n, nil, nil)
					b.m.bindings[id].Import = &Import{Source: source, Imported: StringValue(name, b.src)}
				}
			}
		}
	}
}

func (b *builder) declareVariables(n *sitter.Node, scope ScopeID) {
	kind := BindVar
	if n.Type() == "lexical_declaration" {
		kind = BindLet
		if k := n.ChildByFieldName("kind"); k != nil && k.Type() == "const" {
			kind = BindConst
		} else if first := n.Child(0); first != nil && first.Type() == "const" {
			kind = BindConst
		}
	}
	target := scope
	if kind == BindVar {
		target = b.hoistTarget(scope)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		decl := n.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		value := decl.ChildByFieldName("value")
		if name := decl.ChildByFieldName("name"); name != nil {
			b.declarePatternIn(target, scope, name, kind, decl, value, nil)
		}
		b.walk(value, scope)
	}
}

// declarePattern declares every name bound by a binding pattern.
func (b *builder) declarePattern(scope ScopeID, pat *sitter.Node, kind BindingKind, decl, init *sitter.Node, access []Access) {
	b.declarePatternIn(scope, scope, pat, kind, decl, init, access)
}

// declarePatternIn declares names into target while walking default values
// and computed keys in the surrounding scope.
func (b *builder) declarePatternIn(target, scope ScopeID, pat *sitter.Node, kind BindingKind, decl, init *sitter.Node, access []Access) {
	if pat == nil {
		return
	}
	extend := func(a Access) []Access {
		next := make([]Access, len(access), len(access)+1)
		copy(next, access)
		return append(next, a)
	}

	switch pat.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		b.declare(target, pat, kind, decl, init, access)

	case "object_pattern":
		for i := 0; i < int(pat.NamedChildCount()); i++ {
			prop := pat.NamedChild(i)
			switch prop.Type() {
			case "shorthand_property_identifier_pattern":
				b.declare(target, prop, kind, decl, init, extend(Access{Kind: AccessKey, Key: prop.Content(b.src)}))
			case "pair_pattern":
				key := prop.ChildByFieldName("key")
				step := b.keyAccess(key, scope)
				b.declarePatternIn(target, scope, prop.ChildByFieldName("value"), kind, decl, init, extend(step))
			case "object_assignment_pattern":
				left := prop.ChildByFieldName("left")
				if left != nil && left.Type() == "shorthand_property_identifier_pattern" {
					b.declare(target, left, kind, decl, init, extend(Access{Kind: AccessKey, Key: left.Content(b.src)}))
				} else {
					b.declarePatternIn(target, scope, left, kind, decl, init, access)
				}
				b.walk(prop.ChildByFieldName("right"), scope)
			case "rest_pattern":
				b.declarePatternIn(target, scope, prop.NamedChild(0), kind, decl, init, extend(Access{Kind: AccessRest}))
			}
		}

	case "array_pattern":
		index := 0
		for i := 0; i < int(pat.ChildCount()); i++ {
			el := pat.Child(i)
			switch {
			case el.Type() == ",":
				index++
			case el.Type() == "rest_pattern":
				b.declarePatternIn(target, scope, el.NamedChild(0), kind, decl, init, extend(Access{Kind: AccessRest, Index: index}))
			case el.IsNamed() && el.Type() != "comment":
				b.declarePatternIn(target, scope, el, kind, decl, init, extend(Access{Kind: AccessIndex, Index: index}))
			}
		}

	case "assignment_pattern":
		b.declarePatternIn(target, scope, pat.ChildByFieldName("left"), kind, decl, init, access)
		b.walk(pat.ChildByFieldName("right"), scope)

	case "rest_pattern":
		b.declarePatternIn(target, scope, pat.NamedChild(0), kind, decl, init, extend(Access{Kind: AccessRest}))

	case "required_parameter", "optional_parameter":
		p := pat.ChildByFieldName("pattern")
		if p == nil {
			p = pat.NamedChild(0)
		}
		if p != nil && p.Type() != "accessibility_modifier" {
			b.declarePatternIn(target, scope, p, kind, decl, init, access)
		}
		b.walk(pat.ChildByFieldName("value"), scope)
	}
}

func (b *builder) keyAccess(key *sitter.Node, scope ScopeID) Access {
	if key == nil {
		return Access{Kind: AccessComputed}
	}
	switch key.Type() {
	case "property_identifier":
		return Access{Kind: AccessKey, Key: key.Content(b.src)}
	case "string":
		return Access{Kind: AccessKey, Key: StringValue(key, b.src)}
	case "number":
		return Access{Kind: AccessKey, Key: key.Content(b.src)}
	}
	b.walk(key, scope)
	return Access{Kind: AccessComputed}
}

func (b *builder) walkFunction(n *sitter.Node, scope ScopeID) {
	fn := b.newScope(ScopeFunction, scope, n)

	// A named function expression binds its own name inside itself.
	switch n.Type() {
	case "function", "function_expression", "generator_function":
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(fn, name, BindFunction, n, nil, nil)
		}
	}

	if param := n.ChildByFieldName("parameter"); param != nil {
		b.declarePattern(fn, param, BindParam, n, nil, nil)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p.Type() == "comment" {
				continue
			}
			b.declarePattern(fn, p, BindParam, n, nil, nil)
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	if body.Type() == "statement_block" {
		// The body block shares the parameter scope.
		b.m.nodeScopes[keyOf(body)] = fn
		b.walkChildren(body, fn)
		return
	}
	b.walk(body, fn)
}

func (b *builder) walkClass(n *sitter.Node, scope ScopeID, expression bool) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "class_heritage" {
			b.walk(c, scope)
		}
	}
	cls := b.newScope(ScopeClass, scope, n)
	if expression {
		if name := n.ChildByFieldName("name"); name != nil {
			b.declare(cls, name, BindClass, n, nil, nil)
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.walkChildren(body, cls)
	}
}

func (b *builder) walkForIn(n *sitter.Node, scope ScopeID) {
	inner := b.newScope(ScopeBlock, scope, n)
	left := n.ChildByFieldName("left")

	var kind BindingKind
	declared := false
	k := n.ChildByFieldName("kind")
	if k == nil {
		for i := 0; i < int(n.ChildCount()); i++ {
			switch c := n.Child(i); c.Type() {
			case "const", "let", "var":
				k = c
			}
			if k != nil {
				break
			}
		}
	}
	if k != nil {
		declared = true
		switch k.Type() {
		case "const":
			kind = BindConst
		case "let":
			kind = BindLet
		default:
			kind = BindVar
		}
	}
	if declared {
		target := inner
		if kind == BindVar {
			target = b.hoistTarget(scope)
		}
		b.declarePatternIn(target, inner, left, kind, n, nil, nil)
	} else {
		b.walkAssignTarget(left, inner)
	}

	b.walk(n.ChildByFieldName("right"), inner)
	b.walk(n.ChildByFieldName("body"), inner)
}

// walkAssignTarget records writes for the left side of an assignment.
// Member targets are reads of their object.
func (b *builder) walkAssignTarget(n *sitter.Node, scope ScopeID) {
	n = Unwrap(n)
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		b.ref(n, scope, false, true)
	case "object_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			prop := n.NamedChild(i)
			switch prop.Type() {
			case "shorthand_property_identifier_pattern":
				b.ref(prop, scope, false, true)
			case "pair_pattern":
				if key := prop.ChildByFieldName("key"); key != nil && key.Type() == "computed_property_name" {
					b.walk(key, scope)
				}
				b.walkAssignTarget(prop.ChildByFieldName("value"), scope)
			case "object_assignment_pattern":
				b.walkAssignTarget(prop.ChildByFieldName("left"), scope)
				b.walk(prop.ChildByFieldName("right"), scope)
			case "rest_pattern":
				b.walkAssignTarget(prop.NamedChild(0), scope)
			}
		}
	case "array_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.walkAssignTarget(n.NamedChild(i), scope)
		}
	case "assignment_pattern":
		b.walkAssignTarget(n.ChildByFieldName("left"), scope)
		b.walk(n.ChildByFieldName("right"), scope)
	case "rest_pattern":
		b.walkAssignTarget(n.NamedChild(0), scope)
	default:
		b.walk(n, scope)
	}
}
