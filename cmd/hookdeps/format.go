package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/jward/hookdeps"
)

// kindColors maps finding kinds to ANSI colors. Color is dropped when the
// writer is not a terminal.
var kindColors = map[string]lipgloss.Color{
	hookdeps.KindMissing:              lipgloss.Color("9"),
	hookdeps.KindMissingArray:         lipgloss.Color("9"),
	hookdeps.KindUnnecessary:          lipgloss.Color("11"),
	hookdeps.KindDuplicate:            lipgloss.Color("11"),
	hookdeps.KindIncorrectSuppression: lipgloss.Color("13"),
	hookdeps.KindUnstable:             lipgloss.Color("14"),
	hookdeps.KindTooDeep:              lipgloss.Color("14"),
}

// outputResult writes result to w in the selected format.
func outputResult(w io.Writer, format string, result CLIResult) error {
	if format == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIFinding:
		formatFindingsText(w, v)
		if result.Summary != nil {
			formatTotalsText(w, *result.Summary)
		}
	case CLISummary:
		formatSummaryText(w, v)
	case CLIHooks:
		formatHooksText(w, v)
	case string:
		fmt.Fprintln(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	return nil
}

// newTable returns a borderless, left-aligned table.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// formatFindingsText renders one row per finding, "file:line:col" first so
// editors can jump to it.
func formatFindingsText(w io.Writer, findings []CLIFinding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}
	r := lipgloss.NewRenderer(w)
	table := newTable(w, "Location", "Kind", "Hook", "Dependency")
	for _, f := range findings {
		kind := f.Kind
		if c, ok := kindColors[kind]; ok {
			kind = r.NewStyle().Foreground(c).Render(kind)
		}
		table.Append([]string{
			fmt.Sprintf("%s:%d:%d", f.File, f.Line, f.Col),
			kind,
			f.Hook,
			f.Dependency,
		})
	}
	table.Render()
}

func formatTotalsText(w io.Writer, t CLICheckTotals) {
	fmt.Fprintf(w, "\n%d finding(s) in %d file(s) (%d checked, %d cached)\n",
		t.Findings, t.Files, t.Checked, t.Cached)
}

// formatSummaryText renders file, call and finding counts.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintf(w, "Files: %d\n\n", s.Files)

	table := newTable(w, "Calls", "Count")
	for _, k := range sortedKeys(s.Calls) {
		table.Append([]string{k, strconv.Itoa(s.Calls[k])})
	}
	table.Render()
	fmt.Fprintln(w)

	table = newTable(w, "Findings", "Count")
	for _, k := range sortedKeys(s.Findings) {
		table.Append([]string{k, strconv.Itoa(s.Findings[k])})
	}
	table.Render()
}

// formatHooksText renders the hook table followed by the import sources.
func formatHooksText(w io.Writer, h CLIHooks) {
	table := newTable(w, "Name", "Closure", "Deps", "Stable", "Origin")
	for _, hk := range h.Hooks {
		table.Append([]string{hk.Name, optionalIndex(hk.ClosureIndex), optionalIndex(hk.DependenciesIndex), hk.StableResult, hk.Origin})
	}
	table.Render()
	fmt.Fprintf(w, "\nSources: %s\n", strings.Join(h.Sources, ", "))
}

func optionalIndex(i *int) string {
	if i == nil {
		return "-"
	}
	return strconv.Itoa(*i)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
