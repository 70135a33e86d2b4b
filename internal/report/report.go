// Package report implements the report aggregator (component H): it
// turns the dispatcher's per-invocation outcomes into a single Report
// with a computed exit code, findings grouped by linter, and the union
// of every file any linter mutated.
//
// Grounded on the teacher's internal/security.ScanReport/Finding/
// Severity shape — "collect structured findings, expose a roll-up" —
// reused here keyed on linter outcome rather than security rule.
package report

import "sort"

// Finding is one linter's reported problem with a batch of files: its
// exit code and captured stderr (findings text itself is whatever the
// linter chose to write to stderr; nit does not parse linter output).
type Finding struct {
	Linter    string `json:"linter"`
	ExitCode  int    `json:"exitCode"`
	Stderr    string `json:"stderr,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Outcome is the aggregator's view of one completed sandbox invocation,
// sufficient to build a Report without importing internal/sandbox.
type Outcome struct {
	Linter    string
	ExitCode  int
	Stderr    string
	Truncated bool
	Mutated   []string
	Failed    bool // true for acquisition/invocation errors, not findings
}

// Report is the final result of a run.
type Report struct {
	ExitCode int       `json:"exitCode"`
	Findings []Finding `json:"findings"`
	Mutated  []string  `json:"mutated"`
	Failed   []string  `json:"failed,omitempty"`
}

// Clean reports whether the run requires no attention: every outcome
// exited 0, nothing was mutated, and nothing failed to run at all.
func (r Report) Clean() bool {
	return r.ExitCode == 0 && len(r.Mutated) == 0 && len(r.Failed) == 0
}

// Aggregate computes the final Report from every invocation outcome
// across every linter in a run.
func Aggregate(outcomes []Outcome) Report {
	var rep Report
	mutatedSet := make(map[string]struct{})
	failedSet := make(map[string]struct{})

	for _, o := range outcomes {
		if o.Failed {
			failedSet[o.Linter] = struct{}{}
			continue
		}
		if o.ExitCode != 0 {
			rep.Findings = append(rep.Findings, Finding{
				Linter:    o.Linter,
				ExitCode:  o.ExitCode,
				Stderr:    o.Stderr,
				Truncated: o.Truncated,
			})
		}
		for _, m := range o.Mutated {
			mutatedSet[m] = struct{}{}
		}
	}

	rep.Mutated = setToSortedSlice(mutatedSet)
	rep.Failed = setToSortedSlice(failedSet)

	rep.ExitCode = 0
	if len(rep.Findings) > 0 || len(rep.Mutated) > 0 || len(rep.Failed) > 0 {
		rep.ExitCode = 1
	}
	return rep
}

// FindingsByLinter groups findings by the linter that produced them.
func (r Report) FindingsByLinter() map[string][]Finding {
	out := make(map[string][]Finding)
	for _, f := range r.Findings {
		out[f.Linter] = append(out[f.Linter], f)
	}
	return out
}

func setToSortedSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
