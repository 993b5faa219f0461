// Package directive recognizes suppression comments and turns them into
// depcheck suppression records.
//
//	// hookdeps-ignore: reason
//	// hookdeps-ignore(dep.path): reason
//	// biome-ignore lint/correctness/useExhaustiveDependencies(dep): reason
//
// A directive applies to the statement that follows it.
package directive

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/hookdeps/internal/depcheck"
	"github.com/jward/hookdeps/internal/semantic"
)

const (
	// Prefix is the native directive keyword.
	Prefix = "hookdeps-ignore"
	// BiomeRule is the compatible rule name accepted after biome-ignore.
	BiomeRule = "lint/correctness/useExhaustiveDependencies"
)

var directiveRe = regexp.MustCompile(
	`^(?:` + regexp.QuoteMeta(Prefix) + `|biome-ignore\s+` + regexp.QuoteMeta(BiomeRule) + `)` +
		`(?:\(\s*([^()]*?)\s*\))?\s*(?::\s*(.*))?$`)

// Directive is one recognized comment.
type Directive struct {
	// Dependency is empty for a whole-call directive.
	Dependency string
	Reason     string
	Comment    *sitter.Node
	Target     *sitter.Node
}

// Suppression converts d to a depcheck record.
func (d Directive) Suppression() depcheck.Suppression {
	s := depcheck.Suppression{
		Scope:  depcheck.FullCall,
		Target: semantic.SpanOf(d.Target),
		Span:   semantic.SpanOf(d.Comment),
		Reason: d.Reason,
	}
	if d.Dependency != "" {
		s.Scope = depcheck.PerDependency
		s.Name = d.Dependency
	}
	return s
}

// Match parses the text of one comment. ok is false for ordinary comments.
func Match(comment string) (dep, reason string, ok bool) {
	body := strings.TrimSpace(comment)
	switch {
	case strings.HasPrefix(body, "//"):
		body = strings.TrimPrefix(body, "//")
	case strings.HasPrefix(body, "/*") && strings.HasSuffix(body, "*/"):
		body = strings.TrimSuffix(strings.TrimPrefix(body, "/*"), "*/")
	default:
		return "", "", false
	}
	m := directiveRe.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// Scan returns every directive in f that precedes a statement.
func Scan(f *semantic.File) []Directive {
	var out []Directive
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "comment" {
			if dep, reason, ok := Match(f.Text(n)); ok {
				if target := nextNonComment(n); target != nil {
					out = append(out, Directive{Dependency: dep, Reason: reason, Comment: n, Target: target})
				}
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(f.Root())
	return out
}

// Suppressions is Scan converted to depcheck records.
func Suppressions(f *semantic.File) []depcheck.Suppression {
	dirs := Scan(f)
	out := make([]depcheck.Suppression, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, d.Suppression())
	}
	return out
}

func nextNonComment(n *sitter.Node) *sitter.Node {
	for s := n.NextNamedSibling(); s != nil; s = s.NextNamedSibling() {
		if s.Type() != "comment" {
			return s
		}
	}
	return nil
}
