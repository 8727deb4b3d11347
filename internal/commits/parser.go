package commits

import (
	"strings"
	"time"

	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
)

// Parser converts commit messages into Commit records.
// A Parser is not safe for concurrent use; the underlying machine keeps state.
type Parser struct {
	machine conventionalcommits.Machine
}

// NewParser returns a best-effort parser that accepts any type tag.
// Best effort keeps the header of messages whose body or footers do not
// parse cleanly.
func NewParser() *Parser {
	return &Parser{
		machine: parser.NewMachine(
			parser.WithTypes(conventionalcommits.TypesFreeForm),
			parser.WithBestEffort(),
		),
	}
}

// Parse builds a Commit from a raw message. Messages that are not
// conventional commits still produce a record with an empty Type.
func (p *Parser) Parse(hash, message, author string, when time.Time) Commit {
	message = strings.TrimSpace(strings.ReplaceAll(message, "\r\n", "\n"))
	subject, body := splitMessage(message)

	c := Commit{
		Hash:    hash,
		Subject: subject,
		Body:    body,
		Author:  author,
		When:    when,
	}

	msg, _ := p.machine.Parse([]byte(message))
	cc, ok := msg.(*conventionalcommits.ConventionalCommit)
	if !ok || cc == nil || cc.Type == "" {
		return c
	}

	c.Type = strings.ToLower(cc.Type)
	if cc.Scope != nil {
		c.Scope = strings.TrimSpace(*cc.Scope)
	}
	c.Description = strings.TrimSpace(cc.Description)
	c.Breaking = cc.IsBreakingChange()
	if c.Breaking {
		c.BreakingNote = breakingNote(cc.Footers, c.Description)
	}
	return c
}

// splitMessage separates the subject line from the rest of the message.
func splitMessage(message string) (string, string) {
	subject, body, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(subject), strings.TrimSpace(body)
}

// breakingNote returns the BREAKING CHANGE footer text, falling back to the
// description when the change was only marked with "!".
func breakingNote(footers map[string][]string, fallback string) string {
	for key, values := range footers {
		k := strings.ToLower(strings.ReplaceAll(key, "-", " "))
		if k != "breaking change" || len(values) == 0 {
			continue
		}
		if note := strings.TrimSpace(strings.Join(values, "\n")); note != "" {
			return note
		}
	}
	return fallback
}
