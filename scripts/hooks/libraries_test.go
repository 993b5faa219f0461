package hooks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/hookdeps/internal/hooks"
	"github.com/jward/hookdeps/internal/runtime"
	"github.com/jward/hookdeps/internal/semantic"
)

// runLibraries parses src and runs libraries.risor against it.
func runLibraries(t *testing.T, path, src string) map[string]hooks.Definition {
	t.Helper()
	f, err := semantic.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(f.Close)

	rt := runtime.NewRuntime("..")
	defs, err := rt.HookScript(context.Background(), "hooks/libraries.risor", f)
	require.NoError(t, err)

	byName := make(map[string]hooks.Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	return byName
}

func TestLibraries_Ahooks(t *testing.T) {
	t.Parallel()
	defs := runLibraries(t, "a.jsx", `import { useUpdateEffect, useDebounceEffect as useSettled, useRequest } from 'ahooks';
`)

	require.Len(t, defs, 2)
	assert.Equal(t, 0, defs["useUpdateEffect"].ClosureIndex)
	assert.Equal(t, 1, defs["useUpdateEffect"].DepsIndex)
	require.Contains(t, defs, "useSettled", "renamed imports register under the local name")
	assert.NotContains(t, defs, "useRequest")
}

func TestLibraries_ReactUseDebounce(t *testing.T) {
	t.Parallel()
	defs := runLibraries(t, "a.tsx", `import { useDebounce, useDeepCompareEffect } from 'react-use';
`)

	require.Len(t, defs, 2)
	assert.Equal(t, 0, defs["useDebounce"].ClosureIndex)
	assert.Equal(t, 2, defs["useDebounce"].DepsIndex)
	assert.Equal(t, 1, defs["useDeepCompareEffect"].DepsIndex)
	assert.False(t, defs["useDebounce"].Builtin)
}

func TestLibraries_IgnoresOtherSources(t *testing.T) {
	t.Parallel()
	defs := runLibraries(t, "a.js", `import { useUpdateEffect } from './local-hooks';
import { useEffect } from 'react';
`)

	assert.Empty(t, defs)
}
