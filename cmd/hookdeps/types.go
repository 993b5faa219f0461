package main

import (
	"github.com/jward/hookdeps"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string          `json:"command"`
	Results any             `json:"results"`
	Summary *CLICheckTotals `json:"summary,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
}

// CLIPosition is a 1-based source position.
type CLIPosition struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// CLIFinding is a JSON-friendly finding with 1-based positions and a path
// relative to the working directory.
type CLIFinding struct {
	File       string        `json:"file"`
	Line       int           `json:"line"`
	Col        int           `json:"col"`
	EndLine    int           `json:"end_line"`
	EndCol     int           `json:"end_col"`
	Kind       string        `json:"kind"`
	Dependency string        `json:"dependency,omitempty"`
	Hook       string        `json:"hook"`
	Call       CLIPosition   `json:"call"`
	References []CLIPosition `json:"references,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// CLICheckTotals counts the work a check did.
type CLICheckTotals struct {
	Files    int `json:"files"`
	Checked  int `json:"checked"`
	Cached   int `json:"cached"`
	Findings int `json:"findings"`
}

// CLISummary is a JSON-friendly cache summary.
type CLISummary struct {
	Files    int            `json:"files"`
	Calls    map[string]int `json:"calls"`
	Findings map[string]int `json:"findings"`
}

// CLIHook is a JSON-friendly hook definition.
type CLIHook struct {
	Name              string `json:"name"`
	ClosureIndex      *int   `json:"closure_index,omitempty"`
	DependenciesIndex *int   `json:"dependencies_index,omitempty"`
	StableResult      string `json:"stable_result"`
	Origin            string `json:"origin"`
}

// CLIHooks lists the effective hook table and the recognized sources.
type CLIHooks struct {
	Hooks   []CLIHook `json:"hooks"`
	Sources []string  `json:"sources"`
}

func toCLIFindings(base string, findings []hookdeps.Finding) []CLIFinding {
	out := make([]CLIFinding, 0, len(findings))
	for _, f := range findings {
		cf := CLIFinding{
			File:       displayPath(base, f.File),
			Line:       f.Span.StartLine + 1,
			Col:        f.Span.StartCol + 1,
			EndLine:    f.Span.EndLine + 1,
			EndCol:     f.Span.EndCol + 1,
			Kind:       f.Kind,
			Dependency: f.Dependency,
			Hook:       f.Hook,
			Call:       CLIPosition{Line: f.Call.StartLine + 1, Col: f.Call.StartCol + 1},
			Reason:     f.Reason,
		}
		for _, ref := range f.References {
			cf.References = append(cf.References, CLIPosition{Line: ref.StartLine + 1, Col: ref.StartCol + 1})
		}
		out = append(out, cf)
	}
	return out
}

func toCLIHooks(defs []hookdeps.HookDefinition, sources []string) CLIHooks {
	out := CLIHooks{Hooks: make([]CLIHook, 0, len(defs)), Sources: sources}
	for _, d := range defs {
		h := CLIHook{Name: d.Name, StableResult: d.Stable.String(), Origin: "config"}
		if d.Builtin {
			h.Origin = "builtin"
		}
		if d.ClosureIndex >= 0 {
			h.ClosureIndex = &d.ClosureIndex
		}
		if d.DepsIndex >= 0 {
			h.DependenciesIndex = &d.DepsIndex
		}
		out.Hooks = append(out.Hooks, h)
	}
	return out
}
