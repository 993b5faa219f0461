package depcheck

import "github.com/jward/hookdeps/internal/semantic"

// diff cross-checks the required captures against the declared entries.
// A required path is satisfied by an entry equal to it or by a prefix of
// it: declaring `props` covers a read of `props.data`.
func diff(required []Capture, declared []Declared, st *stability, opts Options) []Finding {
	var out []Finding

	opaqueRoots := make(map[semantic.BindingID]bool)
	for _, d := range declared {
		for _, r := range d.Roots {
			opaqueRoots[r] = true
		}
	}

	var missing []Capture
	for _, c := range required {
		if opaqueRoots[c.Path.Root] || covered(c.Path, declared) {
			continue
		}
		missing = append(missing, c)
		out = append(out, Finding{
			Kind:       Missing,
			Path:       c.Path.String(),
			Span:       c.Spans[0],
			References: c.Spans,
		})
	}

	var seen []Path
	for _, d := range declared {
		if d.Opaque {
			continue
		}
		dup := false
		for _, p := range seen {
			if p.Equal(d.Path) {
				dup = true
				break
			}
		}
		if dup {
			out = append(out, Finding{Kind: Duplicate, Path: d.Path.String(), Span: d.Span})
			continue
		}
		seen = append(seen, d.Path)

		if !needed(d.Path, required) {
			if shallower := shallowerCaptures(d.Path, missing); opts.ReportTooDeep && len(shallower) > 0 {
				out = append(out, Finding{Kind: TooDeep, Path: d.Path.String(), Span: d.Span, References: shallower})
				continue
			}
			if opts.ReportUnnecessary {
				out = append(out, Finding{Kind: Unnecessary, Path: d.Path.String(), Span: d.Span})
			}
			continue
		}
		if opts.ReportUnstable && d.Path.Root != semantic.NoBinding && len(d.Path.Props) == 0 {
			if reason := st.freshKind(d.Path.Root); reason != "" {
				out = append(out, Finding{Kind: Unstable, Path: d.Path.String(), Span: d.Span, Reason: reason})
			}
		}
	}
	return out
}

func covered(p Path, declared []Declared) bool {
	for _, d := range declared {
		if !d.Opaque && p.HasPrefix(d.Path) {
			return true
		}
	}
	return false
}

func needed(p Path, required []Capture) bool {
	for _, c := range required {
		if c.Path.HasPrefix(p) {
			return true
		}
	}
	return false
}

// shallowerCaptures returns the capture sites of every missing path that is
// a strict prefix of p. A super-path of a capture some shorter entry already
// covers is plainly unnecessary.
func shallowerCaptures(p Path, missing []Capture) []semantic.Span {
	var out []semantic.Span
	for _, c := range missing {
		if p.HasPrefix(c.Path) && !p.Equal(c.Path) {
			out = append(out, c.Spans...)
		}
	}
	return out
}
