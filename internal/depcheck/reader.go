package depcheck

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/hookdeps/internal/semantic"
)

// Declared is one entry of a dependency array.
type Declared struct {
	Path Path
	Span semantic.Span
	Node *sitter.Node
	// Opaque entries are not a static path (`items[0]`, `fn()`). They are
	// neither required nor reported, and the roots they read count as
	// covered so the call never demands `items` for `[items[0]]`.
	Opaque bool
	Roots  []semantic.BindingID
}

type arrayState int

const (
	arrayPresent arrayState = iota
	arrayAbsent
	arrayDynamic
)

// readDependencies reads the argument at idx as a dependency array. A
// missing argument is arrayAbsent. An argument that is not an array literal,
// or an array with a spread element, is arrayDynamic.
func readDependencies(f *semantic.File, args []*sitter.Node, idx int) ([]Declared, arrayState) {
	if idx < 0 || idx >= len(args) {
		return nil, arrayAbsent
	}
	arr := semantic.Unwrap(args[idx])
	if arr == nil || arr.Type() != "array" {
		return nil, arrayDynamic
	}

	elems := semantic.ArrayElements(arr)
	out := make([]Declared, 0, len(elems))
	for _, el := range elems {
		if el.Type() == "spread_element" {
			return nil, arrayDynamic
		}
		d := Declared{Span: semantic.SpanOf(el), Node: el}
		if p, ok := staticPath(f, el); ok {
			d.Path = p
		} else {
			d.Opaque = true
			for _, ref := range f.Model.ReferencesIn(el) {
				if ref.Read && ref.Binding != semantic.NoBinding {
					d.Roots = append(d.Roots, ref.Binding)
				}
			}
		}
		out = append(out, d)
	}
	return out, arrayPresent
}

// staticPath converts an identifier or a chain of static member accesses
// into a Path.
func staticPath(f *semantic.File, n *sitter.Node) (Path, bool) {
	n = semantic.Unwrap(n)
	if n == nil {
		return Path{}, false
	}
	switch n.Type() {
	case "identifier":
		return Path{Root: f.Model.Resolve(n), Name: f.Text(n)}, true
	case "member_expression":
		prop := n.ChildByFieldName("property")
		if prop == nil || prop.Type() != "property_identifier" {
			return Path{}, false
		}
		base, ok := staticPath(f, n.ChildByFieldName("object"))
		if !ok {
			return Path{}, false
		}
		base.Props = append(append([]string(nil), base.Props...), f.Text(prop))
		return base, true
	}
	return Path{}, false
}
