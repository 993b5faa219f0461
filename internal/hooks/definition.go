// Package hooks resolves call expressions to hook signatures: which argument
// is the closure, which is the dependency array, and which parts of the
// hook's return value keep their identity across renders.
package hooks

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jward/hookdeps/internal/semantic"
)

// NoIndex marks an absent argument position.
const NoIndex = -1

// StableKind classifies which part of a hook's result is stable.
type StableKind int

const (
	StableNone    StableKind = iota
	StableAll                // the whole returned value, e.g. useRef
	StableIndices            // tuple positions, e.g. the setter of useState
	StableKeys               // properties of a returned object
)

func (k StableKind) String() string {
	switch k {
	case StableNone:
		return "none"
	case StableAll:
		return "all"
	case StableIndices:
		return "indices"
	case StableKeys:
		return "keys"
	}
	return "unknown"
}

// StableResult describes the stable part of a hook's return value.
type StableResult struct {
	Kind    StableKind
	Indices []int
	Keys    []string
}

// Covers reports whether a binding destructured from the hook's result
// through access is stable. Only the whole value (StableAll) or a single
// level of destructuring (StableIndices, StableKeys) qualifies: a nested
// pattern such as `const [[x]] = useState()` names part of a state value,
// never the setter.
func (s StableResult) Covers(access []semantic.Access) bool {
	switch s.Kind {
	case StableAll:
		return len(access) == 0
	case StableIndices:
		if len(access) != 1 || access[0].Kind != semantic.AccessIndex {
			return false
		}
		for _, i := range s.Indices {
			if i == access[0].Index {
				return true
			}
		}
	case StableKeys:
		if len(access) != 1 || access[0].Kind != semantic.AccessKey {
			return false
		}
		for _, k := range s.Keys {
			if k == access[0].Key {
				return true
			}
		}
	}
	return false
}

func (s StableResult) String() string {
	switch s.Kind {
	case StableIndices:
		parts := make([]string, len(s.Indices))
		for i, idx := range s.Indices {
			parts[i] = strconv.Itoa(idx)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case StableKeys:
		return "{" + strings.Join(s.Keys, ",") + "}"
	}
	return s.Kind.String()
}

// Definition is a hook signature.
type Definition struct {
	Name         string
	ClosureIndex int
	DepsIndex    int
	Stable       StableResult
	// Builtin definitions only match callees imported from a recognized
	// source. User definitions match by name alone.
	Builtin bool
}

// ChecksDependencies reports whether calls to the hook carry a closure and
// a dependency array to cross-check.
func (d Definition) ChecksDependencies() bool {
	return d.ClosureIndex != NoIndex && d.DepsIndex != NoIndex
}

// Config is one user-configured hook, as read from the configuration file.
type Config struct {
	Name              string `mapstructure:"name" yaml:"name" json:"name"`
	ClosureIndex      *int   `mapstructure:"closureIndex" yaml:"closureIndex,omitempty" json:"closureIndex,omitempty"`
	DependenciesIndex *int   `mapstructure:"dependenciesIndex" yaml:"dependenciesIndex,omitempty" json:"dependenciesIndex,omitempty"`
	// StableResult is a bool, a position, a list of positions or a list of
	// object keys.
	StableResult any `mapstructure:"stableResult" yaml:"stableResult,omitempty" json:"stableResult,omitempty"`
}

// Errors returned for invalid hook configuration.
var (
	ErrEmptyName      = errors.New("hook name is empty")
	ErrSameIndex      = errors.New("closureIndex and dependenciesIndex must differ")
	ErrNegativeIndex  = errors.New("argument index must not be negative")
	ErrBadStableValue = errors.New("stableResult must be a bool, an index, a list of indices or a list of keys")
)

// Definition validates the configuration and converts it.
func (c Config) Definition() (Definition, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return Definition{}, ErrEmptyName
	}
	d := Definition{Name: name, ClosureIndex: NoIndex, DepsIndex: NoIndex}
	if c.ClosureIndex != nil {
		if *c.ClosureIndex < 0 {
			return Definition{}, fmt.Errorf("hook %s: closureIndex: %w", name, ErrNegativeIndex)
		}
		d.ClosureIndex = *c.ClosureIndex
	}
	if c.DependenciesIndex != nil {
		if *c.DependenciesIndex < 0 {
			return Definition{}, fmt.Errorf("hook %s: dependenciesIndex: %w", name, ErrNegativeIndex)
		}
		d.DepsIndex = *c.DependenciesIndex
	}
	if d.ClosureIndex != NoIndex && d.ClosureIndex == d.DepsIndex {
		return Definition{}, fmt.Errorf("hook %s: %w", name, ErrSameIndex)
	}
	stable, err := ParseStableResult(c.StableResult)
	if err != nil {
		return Definition{}, fmt.Errorf("hook %s: %w", name, err)
	}
	d.Stable = stable
	return d, nil
}

// ParseStableResult converts a decoded configuration value. YAML, JSON and
// Risor all decode numbers differently, so every numeric type is accepted.
func ParseStableResult(v any) (StableResult, error) {
	switch val := v.(type) {
	case nil:
		return StableResult{}, nil
	case bool:
		if val {
			return StableResult{Kind: StableAll}, nil
		}
		return StableResult{}, nil
	case []string:
		if len(val) == 0 {
			return StableResult{}, nil
		}
		keys := append([]string(nil), val...)
		sort.Strings(keys)
		return StableResult{Kind: StableKeys, Keys: keys}, nil
	case []int:
		items := make([]any, len(val))
		for i, n := range val {
			items[i] = n
		}
		return ParseStableResult(items)
	case []any:
		return parseStableList(val)
	}
	if n, ok := toIndex(v); ok {
		if n < 0 {
			return StableResult{}, ErrNegativeIndex
		}
		return StableResult{Kind: StableIndices, Indices: []int{n}}, nil
	}
	return StableResult{}, ErrBadStableValue
}

func parseStableList(items []any) (StableResult, error) {
	if len(items) == 0 {
		return StableResult{}, nil
	}
	if _, ok := items[0].(string); ok {
		keys := make([]string, 0, len(items))
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return StableResult{}, ErrBadStableValue
			}
			keys = append(keys, s)
		}
		sort.Strings(keys)
		return StableResult{Kind: StableKeys, Keys: keys}, nil
	}
	indices := make([]int, 0, len(items))
	for _, it := range items {
		n, ok := toIndex(it)
		if !ok {
			return StableResult{}, ErrBadStableValue
		}
		if n < 0 {
			return StableResult{}, ErrNegativeIndex
		}
		indices = append(indices, n)
	}
	sort.Ints(indices)
	return StableResult{Kind: StableIndices, Indices: indices}, nil
}

func toIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
