// Package publish announces a committed and tagged release on a hosting
// platform.
package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariel-frischer/shipver/internal/github"
)

// Supported targets.
const (
	TargetGitHub = "github"
	TargetNone   = "none"
)

// Release is what gets published. The tag must already exist on the remote.
type Release struct {
	Version    string
	Tag        string
	Name       string
	Notes      string
	Commitish  string
	Prerelease bool
	Draft      bool
}

// Published describes the hosting-side record.
type Published struct {
	Target string
	ID     int64
	URL    string
	// Updated is true when an existing release for the tag was rewritten.
	Updated bool
}

// Publisher creates or updates the release record for a tag. Implementations
// must be safe to call again for the same tag.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, r Release) (*Published, error)
}

// Options selects and configures a publisher.
type Options struct {
	Target     string
	Repository string
	APIURL     string
	Token      string
}

// New returns the publisher for opts.Target.
func New(opts Options) (Publisher, error) {
	switch strings.ToLower(opts.Target) {
	case TargetNone, "":
		return Noop{}, nil
	case TargetGitHub:
		repo, err := github.ParseRepository(opts.Repository)
		if err != nil {
			return nil, err
		}
		client, err := github.NewClient(github.Config{BaseURL: opts.APIURL, Token: opts.Token})
		if err != nil {
			return nil, err
		}
		return NewGitHub(client, repo), nil
	default:
		return nil, fmt.Errorf("unknown publish target %q (valid: %s, %s)", opts.Target, TargetGitHub, TargetNone)
	}
}

// Noop publishes nothing. Used when releases are recorded by tags alone.
type Noop struct{}

// Name returns "none".
func (Noop) Name() string { return TargetNone }

// Publish returns an empty record.
func (Noop) Publish(context.Context, Release) (*Published, error) {
	return &Published{Target: TargetNone}, nil
}
