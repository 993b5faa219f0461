package depcheck

// reconcile applies the suppressions attached to one call to its findings.
// A FullCall record silences everything; a PerDependency record silences
// the findings whose path prints as its name. A record that silences
// nothing, or repeats an earlier one, becomes an IncorrectSuppression
// finding itself. Those are never suppressible.
func reconcile(findings []Finding, sups []Suppression) []Finding {
	if len(sups) == 0 {
		return findings
	}

	silenced := make([]bool, len(findings))
	var incorrect []Finding
	fullSeen := false
	named := make(map[string]bool)

	for _, s := range sups {
		if s.Scope == FullCall {
			if fullSeen {
				incorrect = append(incorrect, incorrectFinding(s, ReasonDuplicate))
				continue
			}
			fullSeen = true
			if len(findings) == 0 {
				incorrect = append(incorrect, incorrectFinding(s, ReasonUnused))
			}
			for i := range silenced {
				silenced[i] = true
			}
			continue
		}

		if named[s.Name] {
			incorrect = append(incorrect, incorrectFinding(s, ReasonDuplicate))
			continue
		}
		named[s.Name] = true

		used := false
		for i, f := range findings {
			if f.Path == s.Name {
				silenced[i] = true
				used = true
			}
		}
		if !used {
			incorrect = append(incorrect, incorrectFinding(s, ReasonUnused))
		}
	}

	out := make([]Finding, 0, len(findings)+len(incorrect))
	for i, f := range findings {
		if !silenced[i] {
			out = append(out, f)
		}
	}
	return append(out, incorrect...)
}

func incorrectFinding(s Suppression, reason string) Finding {
	return Finding{
		Kind:   IncorrectSuppression,
		Path:   s.Name,
		Span:   s.Span,
		Reason: reason,
	}
}
