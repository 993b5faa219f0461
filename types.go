package hookdeps

import (
	"github.com/jward/hookdeps/internal/depcheck"
	"github.com/jward/hookdeps/internal/hooks"
	"github.com/jward/hookdeps/internal/semantic"
	"github.com/jward/hookdeps/internal/store"
)

// Public type aliases for internal types used in the Engine API. These are
// Go type aliases (=) so no conversion is needed.

type Store = store.Store
type HookConfig = hooks.Config
type HookDefinition = hooks.Definition
type ReportOptions = depcheck.Options
type FindingFilter = store.FindingFilter
type Summary = store.Summary

// Kind names as they appear in findings.
const (
	KindMissing              = "missing"
	KindUnnecessary          = "unnecessary"
	KindDuplicate            = "duplicate"
	KindIncorrectSuppression = "incorrect-suppression"
	KindMissingArray         = "missing-array"
	KindUnstable             = "unstable"
	KindTooDeep              = "too-deep"
)

// Span is a source range. Lines and columns are 0-based.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

func spanOf(s semantic.Span) Span {
	return Span{StartLine: s.StartLine, StartCol: s.StartCol, EndLine: s.EndLine, EndCol: s.EndCol}
}

// Finding is one diagnostic about a hook call's dependency array.
type Finding struct {
	File string `json:"file"`
	Kind string `json:"kind"`
	// Dependency is the printed capture path, e.g. "props.user.id". Empty
	// for missing-array findings and unused whole-call suppressions.
	Dependency string `json:"dependency"`
	Hook       string `json:"hook"`
	Span       Span   `json:"span"`
	Call       Span   `json:"call"`
	References []Span `json:"references,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// CallReport is the outcome for one hook call.
type CallReport struct {
	Hook  string `json:"hook"`
	State string `json:"state"`
	Span  Span   `json:"span"`
}

// FileReport is the result of checking one file.
type FileReport struct {
	Path     string       `json:"path"`
	Language string       `json:"language"`
	Calls    []CallReport `json:"calls"`
	Findings []Finding    `json:"findings"`
}

// Report is the result of checking a set of files.
type Report struct {
	// Files lists every file that was considered, in order.
	Files []string `json:"files"`
	// Checked counts files analyzed in this run; Cached counts files whose
	// results were reused.
	Checked  int       `json:"checked"`
	Cached   int       `json:"cached"`
	Findings []Finding `json:"findings"`
}

func newFileReport(path, lang string, res depcheck.Result) *FileReport {
	r := &FileReport{Path: path, Language: lang, Calls: []CallReport{}, Findings: []Finding{}}
	for _, c := range res.Calls {
		r.Calls = append(r.Calls, CallReport{Hook: c.Hook, State: c.State.String(), Span: spanOf(c.Span)})
	}
	for _, fd := range res.Findings {
		out := Finding{
			File:       path,
			Kind:       fd.Kind.String(),
			Dependency: fd.Path,
			Hook:       fd.Hook,
			Span:       spanOf(fd.Span),
			Call:       spanOf(fd.Call),
			Reason:     fd.Reason,
		}
		for _, ref := range fd.References {
			out.References = append(out.References, spanOf(ref))
		}
		r.Findings = append(r.Findings, out)
	}
	return r
}
