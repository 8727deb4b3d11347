package notes

import (
	"strings"

	"github.com/ariel-frischer/shipver/internal/commits"
)

// Build partitions commits into sections following the mapping's declared
// order. Commits keep their chronological order inside a section. Commits
// whose type has no mapping entry are dropped. Hidden sections are returned
// flagged so callers can still inspect them; Render skips them.
func Build(history []commits.Commit, mapping []TypeSection) []Section {
	type sectionKey struct {
		title  string
		hidden bool
	}

	byType := make(map[string]sectionKey, len(mapping))
	index := make(map[sectionKey]int)
	var sections []Section

	for _, m := range mapping {
		t := strings.ToLower(strings.TrimSpace(m.Type))
		if _, dup := byType[t]; dup || t == "" {
			continue
		}
		key := sectionKey{title: m.Section, hidden: m.Hidden}
		byType[t] = key
		if _, ok := index[key]; !ok {
			index[key] = len(sections)
			sections = append(sections, Section{Title: m.Section, Hidden: m.Hidden})
		}
	}

	for _, c := range history {
		key, ok := byType[c.Type]
		if !ok {
			continue
		}
		i := index[key]
		sections[i].Commits = append(sections[i].Commits, c)
	}

	out := sections[:0]
	for _, s := range sections {
		if len(s.Commits) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Visible returns the sections that are rendered.
func Visible(sections []Section) []Section {
	var out []Section
	for _, s := range sections {
		if !s.Hidden {
			out = append(out, s)
		}
	}
	return out
}
