package depcheck

import (
	"fmt"

	"github.com/jward/hookdeps/internal/semantic"
)

// Kind is the type of a finding.
type Kind int

const (
	// Missing: a captured, non-stable path is absent from the array.
	Missing Kind = iota
	// Unnecessary: a declared entry is stable or never captured.
	Unnecessary
	// Duplicate: a declared entry repeats an earlier one.
	Duplicate
	// IncorrectSuppression: a suppression matched nothing or repeats another.
	IncorrectSuppression
	// MissingArray: a dependency-checked hook was called without its array.
	MissingArray
	// Unstable: a declared entry changes identity on every render.
	Unstable
	// TooDeep: a declared entry is more specific than what the closure
	// reads, e.g. `a.b.c` declared for a read of `a.b`.
	TooDeep
)

var kindNames = [...]string{
	Missing:              "missing",
	Unnecessary:          "unnecessary",
	Duplicate:            "duplicate",
	IncorrectSuppression: "incorrect-suppression",
	MissingArray:         "missing-array",
	Unstable:             "unstable",
	TooDeep:              "too-deep",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown finding kind %q", s)
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

// Reasons of IncorrectSuppression findings.
const (
	ReasonUnused    = "unused"
	ReasonDuplicate = "duplicate"
)

// Reasons of Unstable findings name the kind of fresh value.
const (
	ReasonObject   = "object"
	ReasonArray    = "array"
	ReasonFunction = "function"
	ReasonClass    = "class"
	ReasonInstance = "instance"
	ReasonElement  = "element"
)

// Finding is one structured diagnostic. The engine never renders messages.
type Finding struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
	// Span is the capture site for Missing, the array entry for
	// Unnecessary, Duplicate, Unstable and TooDeep, the annotation for
	// IncorrectSuppression and the callee for MissingArray.
	Span semantic.Span `json:"span"`
	// Call is the span of the hook call the finding belongs to.
	Call semantic.Span `json:"call"`
	Hook string        `json:"hook"`
	// References lists every capture site of a Missing path, or of the
	// shallower captures a TooDeep entry is more specific than.
	References []semantic.Span `json:"references,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// SuppressionScope selects what a suppression silences.
type SuppressionScope int

const (
	// FullCall silences every finding of the call.
	FullCall SuppressionScope = iota
	// PerDependency silences the findings whose path prints as Name.
	PerDependency
)

func (s SuppressionScope) String() string {
	if s == FullCall {
		return "full"
	}
	return "dependency"
}

// Suppression is a pre-parsed suppression record. Target is the span of
// the code the annotation applies to; the record attaches to the first
// hook call inside it.
type Suppression struct {
	Scope  SuppressionScope
	Name   string
	Target semantic.Span
	Span   semantic.Span
	Reason string
}
