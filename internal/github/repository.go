package github

import (
	"fmt"
	"net/url"
	"strings"
)

// Repository identifies a repository by owner and name.
type Repository struct {
	Owner string
	Name  string
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// URL returns the repository's web URL on github.com.
func (r Repository) URL() string {
	return "https://github.com/" + r.String()
}

func (r Repository) path() string {
	return "/repos/" + url.PathEscape(r.Owner) + "/" + url.PathEscape(r.Name)
}

// ParseRepository accepts "owner/name" or a git remote URL in HTTPS, SSH
// or SCP form.
func ParseRepository(s string) (Repository, error) {
	raw := strings.TrimSpace(s)
	path := raw

	switch {
	case strings.Contains(raw, "://"):
		u, err := url.Parse(raw)
		if err != nil {
			return Repository{}, fmt.Errorf("parsing repository URL %q: %w", s, err)
		}
		path = u.Path
	case strings.HasPrefix(raw, "git@"):
		_, after, ok := strings.Cut(raw, ":")
		if !ok {
			return Repository{}, fmt.Errorf("invalid repository %q", s)
		}
		path = after
	}

	path = strings.Trim(strings.TrimSuffix(strings.Trim(path, "/"), ".git"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("invalid repository %q: want owner/name", s)
	}
	return Repository{Owner: parts[0], Name: parts[1]}, nil
}
