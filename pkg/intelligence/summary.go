package intelligence

import (
	"fmt"
	"strings"

	"github.com/yashdiniz/focusa-remind/pkg/core"
)

// summary prefers the policy's own words and falls back to counting
// outcomes. Failures and notes are always appended.
func (r *run) summary() string {
	notes := append([]string(nil), r.result.Notes...)
	if r.result.State == TerminatedBudgetExceeded {
		notes = append(notes, "token budget exceeded")
	}

	base := r.policySummary
	if base == "" {
		base = Describe(r.result.Outcomes)
	} else if n := countFailed(r.result.Outcomes); n > 0 {
		notes = append([]string{fmt.Sprintf("%d failed", n)}, notes...)
	}

	if len(notes) == 0 {
		return base
	}
	return base + "; " + strings.Join(notes, "; ")
}

// Describe summarizes outcomes as counts, e.g. "added 1, replaced 1; 1 failed".
// It returns "acked" when nothing was attempted.
func Describe(outcomes []Outcome) string {
	var added, replaced, extended, deleted int
	for _, o := range outcomes {
		if o.Failed() {
			continue
		}
		switch o.Intent.Action {
		case ActionAdd:
			added++
		case ActionUpdate:
			if o.Intent.EdgeType == core.EdgeExtend {
				extended++
			} else {
				replaced++
			}
		case ActionDelete:
			deleted += len(o.DeletedIDs)
		}
	}

	var parts []string
	for _, c := range []struct {
		verb string
		n    int
	}{{"added", added}, {"replaced", replaced}, {"extended", extended}, {"deleted", deleted}} {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", c.verb, c.n))
		}
	}

	failed := countFailed(outcomes)
	switch {
	case len(parts) == 0 && failed == 0:
		return "acked"
	case len(parts) == 0:
		return fmt.Sprintf("%d failed", failed)
	case failed > 0:
		return fmt.Sprintf("%s; %d failed", strings.Join(parts, ", "), failed)
	default:
		return strings.Join(parts, ", ")
	}
}

func countFailed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}
