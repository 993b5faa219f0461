package depcheck

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/hookdeps/internal/semantic"
)

// Capture is a value the closure reads from an enclosing scope.
type Capture struct {
	Path  Path
	Spans []semantic.Span
	// Ident is the root identifier of the first occurrence.
	Ident *sitter.Node
}

// collectCaptures returns every read reference inside closure that resolves
// to a binding declared outside it, extended through static member access.
// Unresolved names are globals and never captured.
func collectCaptures(f *semantic.File, closure *sitter.Node) []Capture {
	m := f.Model
	closureScope := m.ScopeOf(closure)

	var out []Capture
	for _, ref := range m.ReferencesIn(closure) {
		if !ref.Read || ref.Binding == semantic.NoBinding {
			continue
		}
		b := m.Binding(ref.Binding)
		if closureScope != semantic.NoScope && m.IsAncestorScope(closureScope, b.Scope) {
			continue
		}
		path, node := memberChain(f, ref.Ident)
		path.Root = ref.Binding
		span := semantic.SpanOf(node)

		merged := false
		for i := range out {
			if out[i].Path.Equal(path) {
				out[i].Spans = append(out[i].Spans, span)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, Capture{Path: path, Spans: []semantic.Span{span}, Ident: ref.Ident})
		}
	}
	return out
}

// memberChain extends ident through enclosing static member expressions
// (`a.b.c`, `a?.b`, `a!.b`). When the chain is called or assigned, the last
// property is the method or the slot written and is dropped: `a.b.push(x)`
// captures a.b and `a.b = 1` captures a.
func memberChain(f *semantic.File, ident *sitter.Node) (Path, *sitter.Node) {
	path := Path{Name: f.Text(ident)}
	nodes := []*sitter.Node{ident}

	cur := ident
	for {
		parent := skipWrappers(&cur)
		if parent == nil || parent.Type() != "member_expression" {
			break
		}
		if !semantic.SameNode(parent.ChildByFieldName("object"), cur) {
			break
		}
		prop := parent.ChildByFieldName("property")
		if prop == nil || prop.Type() != "property_identifier" {
			break
		}
		path.Props = append(path.Props, f.Text(prop))
		nodes = append(nodes, parent)
		cur = parent
	}

	if len(path.Props) > 0 && isCalleeOrTarget(&cur) {
		path.Props = path.Props[:len(path.Props)-1]
		nodes = nodes[:len(nodes)-1]
	}
	return path, nodes[len(nodes)-1]
}

// skipWrappers walks *cur up through parentheses and TypeScript expression
// wrappers and returns the first other ancestor.
func skipWrappers(cur **sitter.Node) *sitter.Node {
	parent := (*cur).Parent()
	for parent != nil {
		switch parent.Type() {
		case "parenthesized_expression", "non_null_expression",
			"as_expression", "satisfies_expression":
			*cur = parent
			parent = parent.Parent()
			continue
		}
		break
	}
	return parent
}

func isCalleeOrTarget(cur **sitter.Node) bool {
	parent := skipWrappers(cur)
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "call_expression":
		return semantic.SameNode(parent.ChildByFieldName("function"), *cur)
	case "assignment_expression", "augmented_assignment_expression":
		return semantic.SameNode(parent.ChildByFieldName("left"), *cur)
	case "update_expression":
		return true
	}
	return false
}
