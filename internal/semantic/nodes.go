package semantic

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Span locates a node in its source. Lines and columns are 0-based.
type Span struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// SpanOf returns the span of n.
func SpanOf(n *sitter.Node) Span {
	if n == nil {
		return Span{}
	}
	sp, ep := n.StartPoint(), n.EndPoint()
	return Span{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartLine: int(sp.Row),
		StartCol:  int(sp.Column),
		EndLine:   int(ep.Row),
		EndCol:    int(ep.Column),
	}
}

// Contains reports whether other lies inside s.
func (s Span) Contains(other Span) bool {
	return s.StartByte <= other.StartByte && other.EndByte <= s.EndByte
}

// Within reports whether inner lies inside outer.
func Within(inner, outer *sitter.Node) bool {
	if inner == nil || outer == nil {
		return false
	}
	return outer.StartByte() <= inner.StartByte() && inner.EndByte() <= outer.EndByte()
}

// SameNode compares nodes by position and type.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// IsFunction reports whether n is a function or arrow expression, or a
// function declaration.
func IsFunction(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "arrow_function", "function", "function_expression",
		"generator_function", "function_declaration",
		"generator_function_declaration", "method_definition":
		return true
	}
	return false
}

// IsFunctionExpression reports whether n is an inline closure: an arrow
// function or a function expression.
func IsFunctionExpression(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

// Unwrap strips parentheses and TypeScript-only expression wrappers.
func Unwrap(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "parenthesized_expression", "non_null_expression",
			"as_expression", "satisfies_expression":
			inner := n.NamedChild(0)
			if inner == nil {
				return n
			}
			n = inner
		case "type_assertion":
			inner := n.NamedChild(int(n.NamedChildCount()) - 1)
			if inner == nil {
				return n
			}
			n = inner
		default:
			return n
		}
	}
	return n
}

// EnclosingFunction returns the nearest function-like ancestor of n.
func EnclosingFunction(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if IsFunction(p) {
			return p
		}
	}
	return nil
}

// Arguments returns the argument expressions of a call_expression, skipping
// punctuation and comments.
func Arguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		c := args.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ArrayElements returns the elements of an array literal, skipping
// punctuation and comments.
func ArrayElements(arr *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(arr.NamedChildCount()); i++ {
		c := arr.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// StringValue returns the unquoted value of a string literal node.
func StringValue(n *sitter.Node, src []byte) string {
	text := n.Content(src)
	if len(text) >= 2 {
		if unq, err := strconv.Unquote(text); err == nil {
			return unq
		}
		q := text[0]
		if (q == '\'' || q == '"' || q == '`') && text[len(text)-1] == q {
			return text[1 : len(text)-1]
		}
	}
	return text
}

// IsConstantExpression reports whether n is a literal whose value cannot
// change between evaluations.
func IsConstantExpression(n *sitter.Node) bool {
	n = Unwrap(n)
	if n == nil {
		return false
	}
	switch n.Type() {
	case "number", "string", "true", "false", "null", "undefined", "regex":
		return true
	case "template_string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "template_substitution" {
				return false
			}
		}
		return true
	case "unary_expression":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		if op == nil || arg == nil {
			return false
		}
		switch op.Type() {
		case "-", "+", "!", "~", "void":
			return IsConstantExpression(arg)
		}
	}
	return false
}

// IsFreshValue reports whether n creates a new object identity every time it
// is evaluated: object, array, function, class, JSX and `new` expressions.
func IsFreshValue(n *sitter.Node) bool {
	n = Unwrap(n)
	if n == nil {
		return false
	}
	switch n.Type() {
	case "object", "array", "arrow_function", "function", "function_expression",
		"generator_function", "class", "new_expression",
		"jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return true
	}
	return false
}

// isTypeContext reports node types whose subtrees are type-level only.
func isTypeContext(typ string) bool {
	switch typ {
	case "type_annotation", "type_arguments", "type_parameters",
		"type_query", "type_predicate_annotation", "asserts_annotation",
		"opting_type_annotation", "omitting_type_annotation", "adding_type_annotation",
		"implements_clause", "type_alias_declaration", "interface_declaration",
		"abstract_method_signature", "function_signature", "index_signature":
		return true
	}
	return false
}

// isIntrinsicJSXName reports whether ident names a host element such as
// <div>, which is not a variable reference.
func isIntrinsicJSXName(ident *sitter.Node, src []byte) bool {
	p := ident.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "jsx_opening_element", "jsx_closing_element", "jsx_self_closing_element":
	default:
		return false
	}
	name := ident.Content(src)
	if name == "" {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || strings.Contains(name, "-")
}
