package depcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/hookdeps/internal/hooks"
	"github.com/jward/hookdeps/internal/semantic"
)

func parseFile(t *testing.T, path, src string) *semantic.File {
	t.Helper()
	f, err := semantic.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func defaultRegistry(t *testing.T) *hooks.Registry {
	t.Helper()
	r, err := hooks.NewRegistry(nil, nil)
	require.NoError(t, err)
	return r
}

func analyze(t *testing.T, src string, opts Options, sups ...Suppression) Result {
	t.Helper()
	f := parseFile(t, "test.tsx", src)
	return New(defaultRegistry(t), opts).Analyze(f, sups)
}

// summary renders findings as "kind:path" for compact assertions.
func summary(fs []Finding) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Kind.String()+":"+f.Path)
	}
	return out
}

func TestAnalyze_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "local let is missing",
			src: `import { useEffect } from 'react';
function C() {
  let a = 1;
  useEffect(() => { console.log(a); }, []);
}`,
			want: []string{"missing:a"},
		},
		{
			name: "state setter is exempt",
			src: `import { useEffect, useState } from 'react';
function C() {
  const [count, setCount] = useState(0);
  useEffect(() => { setCount(count + 1); }, [count]);
}`,
			want: []string{},
		},
		{
			name: "declared setter is unnecessary",
			src: `import { useEffect, useState } from 'react';
function C() {
  const [count, setCount] = useState(0);
  useEffect(() => { setCount(count + 1); }, [count, setCount]);
}`,
			want: []string{"unnecessary:setCount"},
		},
		{
			name: "self reference in memo",
			src: `import { useMemo } from 'react';
function C() {
  const tree = useMemo(() => ({ self: () => tree }), []);
}`,
			want: []string{},
		},
		{
			name: "component renders itself",
			src: `import { useMemo } from 'react';
function Self() {
  const el = useMemo(() => <Self />, []);
  return el;
}`,
			want: []string{},
		},
		{
			name: "declared component reads its parameter",
			src: `import { useEffect } from 'react';
function C(props) {
  useEffect(() => { props.data.forEach((v, i) => v); }, []);
}`,
			want: []string{"missing:props.data"},
		},
		{
			name: "declared component reads a destructured prop",
			src: `import { useCallback } from 'react';
export default function C({ onChange, value = 0 }) {
  const cb = useCallback(() => onChange(value), [value]);
  return cb;
}`,
			want: []string{"missing:onChange"},
		},
		{
			name: "method call on nested member",
			src: `import { useEffect } from 'react';
function C(props) {
  useEffect(() => { props.data.forEach((x) => console.log(x)); }, []);
}`,
			want: []string{"missing:props.data"},
		},
		{
			name: "declared prefix covers member capture",
			src: `import { useEffect } from 'react';
function C(props) {
  useEffect(() => { props.data.forEach((x) => x); }, [props]);
}`,
			want: []string{},
		},
		{
			name: "array held in variable is unverifiable",
			src: `import { useEffect } from 'react';
function C({ a }) {
  const deps = [a];
  useEffect(() => { console.log(a); }, deps);
}`,
			want: []string{},
		},
		{
			name: "spread array is unverifiable",
			src: `import { useEffect } from 'react';
function C({ a, rest }) {
  useEffect(() => { console.log(a); }, [...rest]);
}`,
			want: []string{},
		},
		{
			name: "adjacent duplicate",
			src: `import { useEffect } from 'react';
function C({ a }) {
  useEffect(() => { console.log(a); }, [a, a]);
}`,
			want: []string{"duplicate:a"},
		},
		{
			name: "separated duplicate",
			src: `import { useEffect } from 'react';
function C({ a, b }) {
  useEffect(() => { console.log(a, b); }, [a, b, a]);
}`,
			want: []string{"duplicate:a"},
		},
		{
			name: "never captured is unnecessary",
			src: `import { useEffect } from 'react';
function C({ a }) {
  useEffect(() => {}, [a]);
}`,
			want: []string{"unnecessary:a"},
		},
		{
			name: "module scope and imports are stable",
			src: `import { useEffect } from 'react';
import { track } from './analytics';
const LIMIT = 10;
let counter = 0;
function C() {
  useEffect(() => { track(LIMIT, counter, window.location); }, []);
}`,
			want: []string{},
		},
		{
			name: "nested path collapses into root",
			src: `import { useEffect } from 'react';
function C({ user }) {
  useEffect(() => { console.log(user, user.name); }, []);
}`,
			want: []string{"missing:user"},
		},
		{
			name: "ref write is stable",
			src: `import { useEffect, useRef } from 'react';
function C() {
  const ref = useRef(null);
  useEffect(() => { ref.current = 1; ref.current.focus(); }, []);
}`,
			want: []string{},
		},
		{
			name: "constant local is stable",
			src: `import { useEffect } from 'react';
function C() {
  const k = -1;
  useEffect(() => { console.log(k); }, [k]);
}`,
			want: []string{"unnecessary:k"},
		},
		{
			name: "reassigned let breaks stability",
			src: `import { useEffect } from 'react';
function C() {
  const [, setV] = useState(0);
  let v = 1;
  if (Math.random()) v = 2;
  useEffect(() => { setV(v); }, []);
}`,
			want: []string{"missing:v"},
		},
		{
			name: "alias of stable setter is stable",
			src: `import { useEffect, useState } from 'react';
function C() {
  const [v, setV] = useState(0);
  const update = setV;
  useEffect(() => { update(1); }, []);
}`,
			want: []string{},
		},
		{
			name: "alias of a prop is not stable",
			src: `import { useEffect } from 'react';
function C({ fetchEntity }) {
  const load = fetchEntity;
  useEffect(() => { load(); }, []);
}`,
			want: []string{"missing:load"},
		},
		{
			name: "nested destructuring of state is not the setter",
			src: `import { useEffect, useState } from 'react';
function C() {
  const [[x, y], setXY] = useState([0, 0]);
  useEffect(() => { setXY([x, y]); }, []);
}`,
			want: []string{"missing:x", "missing:y"},
		},
		{
			name: "closure locals are not captures",
			src: `import { useEffect } from 'react';
function C({ a }) {
  useEffect(() => {
    const a = 1;
    function inner(b) { return a + b; }
    inner(a);
  }, []);
}`,
			want: []string{},
		},
		{
			name: "function declared in component is required",
			src: `import { useCallback } from 'react';
function C() {
  function helper() { return 1; }
  const cb = useCallback(() => helper(), []);
}`,
			want: []string{"missing:helper"},
		},
		{
			name: "computed entry covers its root",
			src: `import { useEffect } from 'react';
function C({ items }) {
  useEffect(() => { console.log(items[0]); }, [items[0]]);
}`,
			want: []string{},
		},
		{
			name: "imperative handle closure at index one",
			src: `import { useImperativeHandle } from 'react';
function C({ value }, ref) {
  useImperativeHandle(ref, () => ({ get: () => value }), []);
}`,
			want: []string{"missing:value"},
		},
		{
			name: "namespace hook and typescript wrappers",
			src: `import * as React from 'react';
function C({ node }: { node: HTMLElement | null }) {
  const el = React.useRef<HTMLDivElement>(null);
  React.useLayoutEffect(() => { (node as HTMLElement)!.append(el.current!); }, [node]);
}`,
			want: []string{},
		},
		{
			name: "missing and unnecessary together",
			src: `import { useMemo } from 'react';
const C = ({ a, b }) => {
  const total = useMemo(() => a * 2, [b]);
  return total;
};`,
			want: []string{"missing:a", "unnecessary:b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := analyze(t, tt.src, DefaultOptions())
			assert.Equal(t, tt.want, summary(res.Findings))
		})
	}
}

func TestAnalyze_CallStates(t *testing.T) {
	t.Parallel()

	res := analyze(t, `import { useEffect } from 'react';
useEffect(() => {}, []);
function C({ handler, deps }) {
  useEffect(handler, []);
  useEffect(() => {});
  useEffect(() => {}, deps);
  useEffect(() => {}, []);
}`, DefaultOptions())

	require.Len(t, res.Calls, 5)
	states := make([]CallState, len(res.Calls))
	for i, c := range res.Calls {
		states[i] = c.State
		assert.Equal(t, "useEffect", c.Hook)
	}
	assert.Equal(t, []CallState{Ignored, Ignored, Unverifiable, Unverifiable, Analyzed}, states)
	assert.Empty(t, res.Findings)
}

func TestAnalyze_MissingArrayOptIn(t *testing.T) {
	t.Parallel()

	src := `import { useEffect } from 'react';
function C() {
  useEffect(() => {});
}`
	assert.Empty(t, analyze(t, src, DefaultOptions()).Findings)

	opts := DefaultOptions()
	opts.ReportMissingArray = true
	res := analyze(t, src, opts)
	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	assert.Equal(t, MissingArray, f.Kind)
	assert.Equal(t, "useEffect", f.Hook)
	assert.Equal(t, 2, f.Span.StartLine)
}

func TestAnalyze_ReportSwitches(t *testing.T) {
	t.Parallel()

	src := `import { useEffect } from 'react';
function C({ a }) {
  const opts = { a };
  function handler() {}
  useEffect(() => { handler(opts); }, [opts, handler, a]);
}`
	assert.Equal(t, []string{"unnecessary:a"}, summary(analyze(t, src, DefaultOptions()).Findings))

	res := analyze(t, src, Options{ReportUnstable: true})
	require.Len(t, res.Findings, 2)
	assert.Equal(t, Unstable, res.Findings[0].Kind)
	assert.Equal(t, "opts", res.Findings[0].Path)
	assert.Equal(t, "object", res.Findings[0].Reason)
	assert.Equal(t, "handler", res.Findings[1].Path)
	assert.Equal(t, "function", res.Findings[1].Reason)
}

func TestAnalyze_UnstableRestBinding(t *testing.T) {
	t.Parallel()

	res := analyze(t, `import { useEffect } from 'react';
function C(props) {
  const { a, ...rest } = props;
  const [first, ...others] = props.items;
  useEffect(() => { console.log(a, rest, first, others); }, [a, rest, first, others]);
}`, Options{ReportUnstable: true})

	assert.Equal(t, []string{"unstable:rest", "unstable:others"}, summary(res.Findings))
	for _, f := range res.Findings {
		assert.Equal(t, ReasonObject, f.Reason)
	}
}

func TestAnalyze_TooDeep(t *testing.T) {
	t.Parallel()

	src := `import { useEffect } from 'react';
function C({ user }) {
  useEffect(() => { console.log(user.profile); }, [user.profile.name]);
}`
	assert.Equal(t, []string{"missing:user.profile", "unnecessary:user.profile.name"},
		summary(analyze(t, src, DefaultOptions()).Findings))

	res := analyze(t, src, Options{ReportTooDeep: true})
	require.Len(t, res.Findings, 2)
	assert.Equal(t, Missing, res.Findings[0].Kind)
	deep := res.Findings[1]
	assert.Equal(t, TooDeep, deep.Kind)
	assert.Equal(t, "user.profile.name", deep.Path)
	require.Len(t, deep.References, 1)
	assert.Equal(t, res.Findings[0].Span, deep.References[0])

	t.Run("entry under a covered capture stays unnecessary", func(t *testing.T) {
		res := analyze(t, `import { useEffect } from 'react';
function C({ user }) {
  useEffect(() => { console.log(user.profile, user.profile.name); }, [user.profile, user.profile.name]);
}`, Options{ReportUnnecessary: true, ReportTooDeep: true})
		assert.Equal(t, []string{"unnecessary:user.profile.name"}, summary(res.Findings))
	})

	t.Run("unrelated entry stays unnecessary", func(t *testing.T) {
		res := analyze(t, `import { useEffect } from 'react';
function C({ user, team }) {
  useEffect(() => { console.log(user.profile); }, [user.profile, team.name]);
}`, Options{ReportUnnecessary: true, ReportTooDeep: true})
		assert.Equal(t, []string{"unnecessary:team.name"}, summary(res.Findings))
	})
}

func TestAnalyze_Suppressions(t *testing.T) {
	t.Parallel()

	src := `import { useEffect } from 'react';
function C({ a, b }) {
  useEffect(() => {}, [a]);
}`
	f := parseFile(t, "test.jsx", src)
	an := New(defaultRegistry(t), DefaultOptions())
	whole := semantic.SpanOf(f.Root())
	annotation := semantic.Span{StartByte: 1, EndByte: 2, StartLine: 0}

	t.Run("unmatched name is incorrect", func(t *testing.T) {
		res := an.Analyze(f, []Suppression{{Scope: PerDependency, Name: "b", Target: whole, Span: annotation}})
		assert.Equal(t, []string{"unnecessary:a", "incorrect-suppression:b"}, summary(res.Findings))
		assert.Equal(t, ReasonUnused, res.Findings[1].Reason)
		assert.Equal(t, annotation, res.Findings[1].Span)
	})

	t.Run("matched name silences", func(t *testing.T) {
		res := an.Analyze(f, []Suppression{{Scope: PerDependency, Name: "a", Target: whole}})
		assert.Empty(t, res.Findings)
	})

	t.Run("repeated name is incorrect", func(t *testing.T) {
		res := an.Analyze(f, []Suppression{
			{Scope: PerDependency, Name: "a", Target: whole},
			{Scope: PerDependency, Name: "a", Target: whole},
		})
		require.Len(t, res.Findings, 1)
		assert.Equal(t, IncorrectSuppression, res.Findings[0].Kind)
		assert.Equal(t, ReasonDuplicate, res.Findings[0].Reason)
	})

	t.Run("full call silences everything", func(t *testing.T) {
		res := an.Analyze(f, []Suppression{{Scope: FullCall, Target: whole}})
		assert.Empty(t, res.Findings)
	})

	t.Run("record outside any call is dropped", func(t *testing.T) {
		res := an.Analyze(f, []Suppression{{Scope: PerDependency, Name: "zzz", Target: semantic.Span{StartByte: 0, EndByte: 5}}})
		assert.Equal(t, []string{"unnecessary:a"}, summary(res.Findings))
	})
}

func TestAnalyze_UnusedFullCallSuppression(t *testing.T) {
	t.Parallel()
	f := parseFile(t, "test.jsx", `import { useEffect } from 'react';
function C({ a }) {
  useEffect(() => { console.log(a); }, [a]);
}`)
	res := New(defaultRegistry(t), DefaultOptions()).Analyze(f, []Suppression{{Scope: FullCall, Target: semantic.SpanOf(f.Root())}})
	require.Len(t, res.Findings, 1)
	assert.Equal(t, IncorrectSuppression, res.Findings[0].Kind)
	assert.Equal(t, ReasonUnused, res.Findings[0].Reason)
}

func TestAnalyze_UserHookStableKeys(t *testing.T) {
	t.Parallel()

	closure, deps := 0, 1
	reg, err := hooks.NewRegistry([]hooks.Config{
		{Name: "useStore", StableResult: []any{"dispatch"}},
		{Name: "useDebouncedEffect", ClosureIndex: &closure, DependenciesIndex: &deps},
	}, nil)
	require.NoError(t, err)

	f := parseFile(t, "test.jsx", `import { useStore } from './store';
function C() {
  const { dispatch, state } = useStore();
  const { dispatch: send } = useStore();
  useDebouncedEffect(() => { dispatch(state); send(1); }, []);
}`)
	res := New(reg, DefaultOptions()).Analyze(f, nil)
	assert.Equal(t, []string{"missing:state"}, summary(res.Findings))
}

func TestAnalyze_MissingReferencesEveryCaptureSite(t *testing.T) {
	t.Parallel()
	res := analyze(t, `import { useEffect } from 'react';
function C({ a }) {
  useEffect(() => {
    console.log(a);
    console.log(a);
  }, []);
}`, DefaultOptions())
	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	assert.Len(t, f.References, 2)
	assert.Equal(t, f.References[0], f.Span)
	assert.Equal(t, 3, f.Span.StartLine)
}

// Applying every fix a run suggests yields a clean second run.
func TestAnalyze_FixesAreIdempotent(t *testing.T) {
	t.Parallel()

	before := `import { useEffect, useState } from 'react';
function C({ a, b, c }) {
  const [v, setV] = useState(0);
  useEffect(() => { setV(a + b.total); }, [c, setV, c]);
}`
	after := `import { useEffect, useState } from 'react';
function C({ a, b, c }) {
  const [v, setV] = useState(0);
  useEffect(() => { setV(a + b.total); }, [a, b.total]);
}`
	assert.ElementsMatch(t,
		[]string{"missing:a", "missing:b.total", "unnecessary:c", "unnecessary:setV", "duplicate:c"},
		summary(analyze(t, before, DefaultOptions()).Findings))
	assert.Empty(t, analyze(t, after, DefaultOptions()).Findings)
}

func TestAnalyze_Deterministic(t *testing.T) {
	t.Parallel()
	src := `import { useEffect } from 'react';
function C({ a, b }) {
  useEffect(() => { console.log(b, a); }, [b]);
  useEffect(() => { console.log(a); }, []);
}`
	first := analyze(t, src, DefaultOptions())
	for i := 0; i < 3; i++ {
		assert.Equal(t, first.Findings, analyze(t, src, DefaultOptions()).Findings)
	}
	assert.Equal(t, []string{"missing:a", "missing:a"}, summary(first.Findings))
}

func TestKind_Text(t *testing.T) {
	t.Parallel()
	for _, k := range Kinds() {
		text, err := k.MarshalText()
		require.NoError(t, err)
		var back Kind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}
	_, err := ParseKind("bogus")
	assert.Error(t, err)
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestPath(t *testing.T) {
	t.Parallel()
	a := Path{Root: 1, Name: "a"}
	ab := Path{Root: 1, Name: "a", Props: []string{"b"}}
	ac := Path{Root: 1, Name: "a", Props: []string{"c"}}
	other := Path{Root: 2, Name: "a"}

	assert.True(t, ab.HasPrefix(a))
	assert.True(t, ab.HasPrefix(ab))
	assert.False(t, ab.HasPrefix(ac))
	assert.False(t, a.HasPrefix(ab))
	assert.False(t, a.HasPrefix(other), "shadowed names are different roots")
	assert.Equal(t, "a.b", ab.String())

	got := collapse([]Capture{{Path: ab}, {Path: a}, {Path: ac}, {Path: a}})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Path.String())
}
