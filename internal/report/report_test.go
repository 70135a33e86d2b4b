package report

import "testing"

func TestAggregateCleanRun(t *testing.T) {
	rep := Aggregate([]Outcome{
		{Linter: "gofmt-check", ExitCode: 0},
		{Linter: "license-header", ExitCode: 0},
	})
	if !rep.Clean() {
		t.Fatalf("expected a clean report, got %+v", rep)
	}
}

func TestAggregateCollectsFindingsAndMutations(t *testing.T) {
	rep := Aggregate([]Outcome{
		{Linter: "gofmt-check", ExitCode: 1, Stderr: "b.go:3: not formatted"},
		{Linter: "gofmt-fix", ExitCode: 0, Mutated: []string{"b.go", "a.go"}},
	})
	if rep.Clean() {
		t.Fatalf("expected a non-clean report")
	}
	if rep.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", rep.ExitCode)
	}
	if len(rep.Findings) != 1 || rep.Findings[0].Linter != "gofmt-check" {
		t.Fatalf("unexpected findings: %+v", rep.Findings)
	}
	if len(rep.Mutated) != 2 || rep.Mutated[0] != "a.go" {
		t.Fatalf("expected sorted mutated files, got %v", rep.Mutated)
	}
}

func TestAggregateTracksFailedLinters(t *testing.T) {
	rep := Aggregate([]Outcome{
		{Linter: "broken-fetch", Failed: true},
		{Linter: "ok", ExitCode: 0},
	})
	if rep.Clean() {
		t.Fatalf("a failed linter must make the report non-clean")
	}
	if len(rep.Failed) != 1 || rep.Failed[0] != "broken-fetch" {
		t.Fatalf("unexpected failed set: %v", rep.Failed)
	}
}

func TestFindingsByLinterGroups(t *testing.T) {
	rep := Aggregate([]Outcome{
		{Linter: "a", ExitCode: 1, Stderr: "x"},
		{Linter: "a", ExitCode: 1, Stderr: "y"},
		{Linter: "b", ExitCode: 1, Stderr: "z"},
	})
	grouped := rep.FindingsByLinter()
	if len(grouped["a"]) != 2 || len(grouped["b"]) != 1 {
		t.Fatalf("unexpected grouping: %+v", grouped)
	}
}
