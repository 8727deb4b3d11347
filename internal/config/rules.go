package config

import (
	"fmt"

	"github.com/ariel-frischer/shipver/internal/analyzer"
	"github.com/ariel-frischer/shipver/internal/notes"
)

// Rules converts release_rules into a validated rule table.
func (c *Configuration) Rules() (analyzer.RuleTable, error) {
	table := make(analyzer.RuleTable, 0, len(c.ReleaseRules))
	for i, rc := range c.ReleaseRules {
		level, err := analyzer.ParseBumpLevel(rc.Release)
		if err != nil {
			return nil, &analyzer.RuleError{Index: i, Message: err.Error()}
		}
		table = append(table, analyzer.Rule{
			Type:     rc.Type,
			Scope:    rc.Scope,
			Breaking: rc.Breaking,
			Release:  level,
		})
	}
	if err := analyzer.ValidateRules(table); err != nil {
		return nil, err
	}
	return table, nil
}

// NoteTypes returns the configured type mapping, or the built-in one.
func (c *Configuration) NoteTypes() []notes.TypeSection {
	if len(c.Notes.Types) == 0 {
		return notes.DefaultTypes()
	}
	out := make([]notes.TypeSection, 0, len(c.Notes.Types))
	for _, t := range c.Notes.Types {
		out = append(out, notes.TypeSection{Type: t.Type, Section: t.Section, Hidden: t.Hidden})
	}
	return out
}

// String renders a rule for 'config show'.
func (r RuleConfig) String() string {
	s := "type=" + orAny(r.Type) + " scope=" + orAny(r.Scope)
	if r.Breaking != nil {
		s += fmt.Sprintf(" breaking=%t", *r.Breaking)
	}
	return s + " -> " + r.Release
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
