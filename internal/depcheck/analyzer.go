// Package depcheck cross-checks the values a hook closure captures against
// the dependency array passed next to it.
//
// For every call that resolves to a dependency-checked hook the analyzer
// collects the closure's captures, drops the stable ones, collapses nested
// paths and diffs the rest against the declared entries. Suppression records
// attached to the call are applied last.
package depcheck

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/hookdeps/internal/hooks"
	"github.com/jward/hookdeps/internal/semantic"
)

// Options switches the optional finding kinds.
type Options struct {
	ReportUnnecessary  bool
	ReportMissingArray bool
	ReportUnstable     bool
	// ReportTooDeep reports an entry more specific than a missing capture
	// as TooDeep instead of Unnecessary.
	ReportTooDeep bool
}

// DefaultOptions reports unnecessary entries and nothing optional.
func DefaultOptions() Options {
	return Options{ReportUnnecessary: true}
}

// CallState is the outcome of examining one hook call.
type CallState int

const (
	// Ignored calls have no enclosing function or no inline closure.
	Ignored CallState = iota
	// Unverifiable calls have no literal dependency array.
	Unverifiable
	// Analyzed calls were fully cross-checked.
	Analyzed
)

func (s CallState) String() string {
	switch s {
	case Ignored:
		return "ignored"
	case Unverifiable:
		return "unverifiable"
	case Analyzed:
		return "analyzed"
	}
	return "unknown"
}

// Call is the result for one hook call.
type Call struct {
	Hook     string
	Span     semantic.Span
	State    CallState
	Findings []Finding
}

// Result holds every hook call of a file and their findings.
type Result struct {
	Calls    []Call
	Findings []Finding
}

// Analyzer runs the check over parsed files. It holds no per-file state and
// is safe for concurrent use.
type Analyzer struct {
	registry *hooks.Registry
	opts     Options
}

// New returns an analyzer resolving hooks through reg.
func New(reg *hooks.Registry, opts Options) *Analyzer {
	return &Analyzer{registry: reg, opts: opts}
}

// Registry returns the hook registry the analyzer resolves against.
func (a *Analyzer) Registry() *hooks.Registry {
	return a.registry
}

type candidate struct {
	node *sitter.Node
	def  hooks.Definition
	sups []Suppression
}

// Analyze checks every hook call of f. Suppression records are attached to
// the first hook call inside their target span; records for calls that end
// up ignored or unverifiable are dropped.
func (a *Analyzer) Analyze(f *semantic.File, sups []Suppression) Result {
	cands := a.candidates(f)
	attach(cands, sups)

	var res Result
	for _, c := range cands {
		call := a.analyzeCall(f, c)
		res.Calls = append(res.Calls, call)
		res.Findings = append(res.Findings, call.Findings...)
	}
	sortFindings(res.Findings)
	return res
}

// candidates returns the dependency-checked hook calls of f in source order.
func (a *Analyzer) candidates(f *semantic.File) []*candidate {
	var out []*candidate
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "call_expression" {
			if d, ok := a.registry.Resolve(f, n); ok && d.ChecksDependencies() {
				out = append(out, &candidate{node: n, def: d})
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(f.Root())
	return out
}

func attach(cands []*candidate, sups []Suppression) {
	for _, s := range sups {
		for _, c := range cands {
			if s.Target.Contains(semantic.SpanOf(c.node)) {
				c.sups = append(c.sups, s)
				break
			}
		}
	}
}

func (a *Analyzer) analyzeCall(f *semantic.File, c *candidate) Call {
	out := Call{Hook: c.def.Name, Span: semantic.SpanOf(c.node), State: Ignored}

	component := semantic.EnclosingFunction(c.node)
	if component == nil {
		return out
	}
	args := semantic.Arguments(c.node)
	if c.def.ClosureIndex >= len(args) {
		return out
	}
	closure := semantic.Unwrap(args[c.def.ClosureIndex])
	if !semantic.IsFunctionExpression(closure) {
		return out
	}

	declared, state := readDependencies(f, args, c.def.DepsIndex)
	switch state {
	case arrayAbsent:
		out.State = Unverifiable
		if a.opts.ReportMissingArray {
			out.Findings = stamp(out, []Finding{{
				Kind: MissingArray,
				Span: semantic.SpanOf(c.node.ChildByFieldName("function")),
			}})
		}
		return out
	case arrayDynamic:
		out.State = Unverifiable
		return out
	}

	st := newStability(f, a.registry, component)
	var required []Capture
	for _, capture := range collectCaptures(f, closure) {
		if !st.Stable(capture.Path.Root, capture.Ident) {
			required = append(required, capture)
		}
	}
	required = collapse(required)

	findings := diff(required, declared, st, a.opts)
	out.State = Analyzed
	out.Findings = stamp(out, reconcile(findings, c.sups))
	return out
}

// stamp fills the call-level fields of findings.
func stamp(call Call, findings []Finding) []Finding {
	for i := range findings {
		findings[i].Hook = call.Hook
		findings[i].Call = call.Span
	}
	return findings
}

func sortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Call.StartByte != fs[j].Call.StartByte {
			return fs[i].Call.StartByte < fs[j].Call.StartByte
		}
		if fs[i].Kind != fs[j].Kind {
			return fs[i].Kind < fs[j].Kind
		}
		return fs[i].Span.StartByte < fs[j].Span.StartByte
	})
}
