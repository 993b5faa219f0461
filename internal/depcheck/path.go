package depcheck

import (
	"strings"

	"github.com/jward/hookdeps/internal/semantic"
)

// Path is a capture path: a root binding followed by static property names.
// Two bindings with the same name are different roots; unresolved roots
// (semantic.NoBinding) are told apart by Name.
type Path struct {
	Root  semantic.BindingID
	Name  string
	Props []string
}

// Equal compares paths structurally.
func (p Path) Equal(o Path) bool {
	if p.Root != o.Root || p.Name != o.Name || len(p.Props) != len(o.Props) {
		return false
	}
	for i := range p.Props {
		if p.Props[i] != o.Props[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix equals p or is an ancestor of it:
// `a` and `a.b` are prefixes of `a.b`, `a.c` is not.
func (p Path) HasPrefix(prefix Path) bool {
	if p.Root != prefix.Root || p.Name != prefix.Name || len(prefix.Props) > len(p.Props) {
		return false
	}
	for i := range prefix.Props {
		if p.Props[i] != prefix.Props[i] {
			return false
		}
	}
	return true
}

// SameRoot reports whether p and o start at the same binding.
func (p Path) SameRoot(o Path) bool {
	return p.Root == o.Root && p.Name == o.Name
}

// Len returns the number of segments including the root.
func (p Path) Len() int {
	return 1 + len(p.Props)
}

// String prints the path as written in source, e.g. "props.data".
func (p Path) String() string {
	if len(p.Props) == 0 {
		return p.Name
	}
	return p.Name + "." + strings.Join(p.Props, ".")
}

// collapse drops every path that has a strict prefix in the set and merges
// exact duplicates, keeping first-seen order.
func collapse(caps []Capture) []Capture {
	var out []Capture
	for i, c := range caps {
		subsumed := false
		for j, o := range caps {
			if i == j {
				continue
			}
			if c.Path.HasPrefix(o.Path) && o.Path.Len() < c.Path.Len() {
				subsumed = true
				break
			}
		}
		if subsumed {
			continue
		}
		merged := false
		for k := range out {
			if out[k].Path.Equal(c.Path) {
				out[k].Spans = append(out[k].Spans, c.Spans...)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, c)
		}
	}
	return out
}
