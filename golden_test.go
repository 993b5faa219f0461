package hookdeps

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format. Lines and columns are 1-based.
type goldenFile struct {
	// Config overrides DefaultConfig for the case.
	Config   *json.RawMessage `json:"config,omitempty"`
	Findings []goldenFinding  `json:"findings"`
}

type goldenFinding struct {
	File       string `json:"file"`
	Kind       string `json:"kind"`
	Dependency string `json:"dependency"`
	Hook       string `json:"hook"`
	Line       int    `json:"line"`
	Col        int    `json:"col"`
}

// TestGolden walks testdata/golden/ and checks each case's src/ directory
// through the full pipeline, twice, so the second pass is served from the
// cache.
func TestGolden(t *testing.T) {
	root := filepath.Join("testdata", "golden")
	cases, err := os.ReadDir(root)
	if err != nil {
		t.Skip("no testdata/golden directory found")
	}

	for _, c := range cases {
		if !c.IsDir() {
			continue
		}
		testDir := filepath.Join(root, c.Name())
		goldenPath := filepath.Join(testDir, "golden.json")
		srcDir := filepath.Join(testDir, "src")
		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		t.Run(c.Name(), func(t *testing.T) {
			t.Parallel()
			runGoldenTest(t, srcDir, goldenPath)
		})
	}
}

func runGoldenTest(t *testing.T, srcDir, goldenPath string) {
	t.Helper()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	cfg := DefaultConfig()
	if golden.Config != nil {
		require.NoError(t, json.Unmarshal(*golden.Config, &cfg))
	}
	require.NoError(t, cfg.Validate())

	dbPath := filepath.Join(t.TempDir(), "golden.db")
	engine, err := New(dbPath, cfg.Options()...)
	require.NoError(t, err)
	defer engine.Close()

	absSrc, err := filepath.Abs(srcDir)
	require.NoError(t, err)

	for _, pass := range []string{"fresh", "cached"} {
		report, err := engine.CheckDirectory(context.Background(), absSrc)
		require.NoError(t, err, pass)

		got := make([]goldenFinding, 0, len(report.Findings))
		for _, f := range report.Findings {
			rel, err := filepath.Rel(absSrc, f.File)
			require.NoError(t, err)
			got = append(got, goldenFinding{
				File:       filepath.ToSlash(rel),
				Kind:       f.Kind,
				Dependency: f.Dependency,
				Hook:       f.Hook,
				Line:       f.Span.StartLine + 1,
				Col:        f.Span.StartCol + 1,
			})
		}
		want := golden.Findings
		if want == nil {
			want = []goldenFinding{}
		}
		assert.Equal(t, want, got, pass)
	}
}
