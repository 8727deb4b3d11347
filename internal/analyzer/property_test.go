package analyzer

import (
	"testing"

	"github.com/ariel-frischer/shipver/internal/commits"
	"pgregory.net/rapid"
)

var (
	sampleTypes  = []string{"feat", "fix", "perf", "chore", "docs", "refactor", "build", "test", ""}
	sampleScopes = []string{"", "release", "api", "deps"}
)

func commitGen() *rapid.Generator[commits.Commit] {
	return rapid.Custom(func(t *rapid.T) commits.Commit {
		return commits.Commit{
			Hash:     rapid.StringMatching(`[0-9a-f]{8}`).Draw(t, "hash"),
			Type:     rapid.SampledFrom(sampleTypes).Draw(t, "type"),
			Scope:    rapid.SampledFrom(sampleScopes).Draw(t, "scope"),
			Breaking: rapid.Bool().Draw(t, "breaking"),
		}
	})
}

func ruleGen() *rapid.Generator[Rule] {
	return rapid.Custom(func(t *rapid.T) Rule {
		return Rule{
			Type:    rapid.SampledFrom(sampleTypes[:len(sampleTypes)-1]).Draw(t, "type"),
			Scope:   rapid.SampledFrom(sampleScopes).Draw(t, "scope"),
			Release: BumpLevel(rapid.IntRange(int(None), int(Major)).Draw(t, "release")),
		}
	})
}

// The overall bump equals the maximum of per-commit first-match levels.
func TestAnalyze_BumpIsMaxOfFirstMatches(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		table := RuleTable(rapid.SliceOf(ruleGen()).Draw(t, "rules"))
		history := rapid.SliceOf(commitGen()).Draw(t, "commits")

		want := None
		for _, c := range history {
			for _, r := range table {
				if r.Matches(c) {
					want = Max(want, r.Release)
					break
				}
			}
		}

		if got := Analyze(history, table).Bump; got != want {
			t.Fatalf("bump = %s, want %s", got, want)
		}
	})
}

// Reordering commits never changes the decision.
func TestAnalyze_CommutativeOverCommitOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		history := rapid.SliceOfN(commitGen(), 0, 20).Draw(t, "commits")
		shuffled := rapid.Permutation(history).Draw(t, "shuffled")

		a := Analyze(history, DefaultRules()).Bump
		b := Analyze(shuffled, DefaultRules()).Bump
		if a != b {
			t.Fatalf("bump changed under reordering: %s vs %s", a, b)
		}
	})
}

// Without any commit matching a non-none rule there is never a release.
func TestAnalyze_NoQualifyingCommitsMeansNoRelease(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		quiet := []string{"docs", "test", "style", "ci", ""}
		history := rapid.SliceOf(rapid.Custom(func(t *rapid.T) commits.Commit {
			return commits.Commit{Type: rapid.SampledFrom(quiet).Draw(t, "type")}
		})).Draw(t, "commits")

		if d := Analyze(history, DefaultRules()); d.ReleaseDue() {
			t.Fatalf("unexpected release %s for %d quiet commits", d.Bump, len(history))
		}
	})
}
