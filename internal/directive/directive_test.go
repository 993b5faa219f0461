package directive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/hookdeps/internal/depcheck"
	"github.com/jward/hookdeps/internal/hooks"
	"github.com/jward/hookdeps/internal/semantic"
)

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		dep    string
		reason string
		ok     bool
	}{
		{"// hookdeps-ignore: runs once", "", "runs once", true},
		{"// hookdeps-ignore", "", "", true},
		{"//hookdeps-ignore(props.data): stable upstream", "props.data", "stable upstream", true},
		{"/* hookdeps-ignore( a ): x */", "a", "x", true},
		{"// biome-ignore lint/correctness/useExhaustiveDependencies: legacy", "", "legacy", true},
		{"// biome-ignore lint/correctness/useExhaustiveDependencies(b): test", "b", "test", true},
		{"// biome-ignore lint/style/useConst: nope", "", "", false},
		{"// just a comment", "", "", false},
		{"// hookdeps-ignored: typo", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			dep, reason, ok := Match(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.dep, dep)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestScan(t *testing.T) {
	t.Parallel()

	src := `import { useEffect } from 'react';
function C({ a, b }) {
  // hookdeps-ignore(b): test
  useEffect(() => {}, [a]);

  // unrelated
  // hookdeps-ignore: mount only
  // another note
  useEffect(() => { console.log(a); }, []);

  useEffect(() => {}, []); // hookdeps-ignore: trailing, nothing follows
}`
	f, err := semantic.Parse(context.Background(), "c.jsx", []byte(src))
	require.NoError(t, err)
	defer f.Close()

	dirs := Scan(f)
	require.Len(t, dirs, 2)
	assert.Equal(t, "b", dirs[0].Dependency)
	assert.Equal(t, "expression_statement", dirs[0].Target.Type())
	assert.Equal(t, 3, int(dirs[0].Target.StartPoint().Row))
	assert.Equal(t, "", dirs[1].Dependency)
	assert.Equal(t, 8, int(dirs[1].Target.StartPoint().Row))

	sups := Suppressions(f)
	require.Len(t, sups, 2)
	assert.Equal(t, depcheck.PerDependency, sups[0].Scope)
	assert.Equal(t, depcheck.FullCall, sups[1].Scope)
	assert.Equal(t, 2, sups[0].Span.StartLine)

	reg, err := hooks.NewRegistry(nil, nil)
	require.NoError(t, err)
	res := depcheck.New(reg, depcheck.DefaultOptions()).Analyze(f, sups)

	kinds := make([]string, 0, len(res.Findings))
	for _, fd := range res.Findings {
		kinds = append(kinds, fd.Kind.String()+":"+fd.Path)
	}
	assert.Equal(t, []string{"unnecessary:a", "incorrect-suppression:b"}, kinds)
}
