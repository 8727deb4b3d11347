package analyzer

import (
	"fmt"
	"strings"

	"github.com/ariel-frischer/shipver/internal/commits"
)

// Rule is a tagged predicate→action pair. Empty Type or Scope and a nil
// Breaking match any commit on that dimension.
type Rule struct {
	Type     string
	Scope    string
	Breaking *bool
	Release  BumpLevel
}

// Matches reports whether the rule's predicate holds for the commit.
func (r Rule) Matches(c commits.Commit) bool {
	if r.Type != "" && !strings.EqualFold(r.Type, c.Type) {
		return false
	}
	if r.Scope != "" && !strings.EqualFold(r.Scope, c.NormalizedScope()) {
		return false
	}
	if r.Breaking != nil && *r.Breaking != c.Breaking {
		return false
	}
	return true
}

// String renders the rule for logs and error messages.
func (r Rule) String() string {
	var parts []string
	if r.Type != "" {
		parts = append(parts, "type="+r.Type)
	}
	if r.Scope != "" {
		parts = append(parts, "scope="+r.Scope)
	}
	if r.Breaking != nil {
		parts = append(parts, fmt.Sprintf("breaking=%t", *r.Breaking))
	}
	return fmt.Sprintf("{%s -> %s}", strings.Join(parts, " "), r.Release)
}

func (r Rule) key() string {
	breaking := "*"
	if r.Breaking != nil {
		breaking = fmt.Sprintf("%t", *r.Breaking)
	}
	return strings.ToLower(r.Type) + "|" + strings.ToLower(r.Scope) + "|" + breaking
}

// RuleTable is a priority-ordered list of rules. Order encodes precedence,
// so more specific rules must come before general ones.
type RuleTable []Rule

// Match returns the first rule matching the commit.
func (t RuleTable) Match(c commits.Commit) (Rule, bool) {
	for _, r := range t {
		if r.Matches(c) {
			return r, true
		}
	}
	return Rule{}, false
}

// RuleError describes an invalid rule table entry.
type RuleError struct {
	Index   int
	Message string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("release_rules[%d]: %s", e.Index, e.Message)
}

// ValidateRules rejects tables that cannot be evaluated unambiguously:
// rules without any predicate, and rules sharing a predicate but
// disagreeing on the release level.
func ValidateRules(t RuleTable) error {
	seen := make(map[string]int, len(t))
	for i, r := range t {
		if r.Type == "" && r.Scope == "" && r.Breaking == nil {
			return &RuleError{Index: i, Message: "rule has no type, scope or breaking predicate"}
		}
		if r.Release < None || r.Release > Major {
			return &RuleError{Index: i, Message: fmt.Sprintf("invalid release level %d", r.Release)}
		}
		k := r.key()
		if j, ok := seen[k]; ok {
			if t[j].Release != r.Release {
				return &RuleError{
					Index:   i,
					Message: fmt.Sprintf("conflicts with release_rules[%d]: same predicate, release %s vs %s", j, t[j].Release, r.Release),
				}
			}
			continue
		}
		seen[k] = i
	}
	return nil
}

// DefaultRules returns the built-in rule table.
func DefaultRules() RuleTable {
	breaking := true
	return RuleTable{
		{Breaking: &breaking, Release: Major},
		{Type: "feat", Release: Minor},
		{Type: "fix", Release: Patch},
		{Type: "perf", Release: Patch},
		{Type: "revert", Release: Patch},
		{Type: "chore", Scope: "release", Release: None},
		{Type: "refactor", Release: Patch},
		{Type: "build", Release: Patch},
	}
}
