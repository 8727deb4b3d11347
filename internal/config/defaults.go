package config

// GetDefaultConfigTemplate returns a fully commented config template
// written by 'shipver config init'.
func GetDefaultConfigTemplate() string {
	return `# shipver configuration
# Values here override ~/.config/shipver/config.yml; SHIPVER_* environment
# variables override both (use __ for nesting: SHIPVER_PUBLISH__TARGET=none).

branch: main                          # Branch releases are cut from
tag_format: v{{VERSION}}              # Release tag template, {{VERSION}} exactly once
initial_version: 1.0.0                # Version of the first release

# Ordered rules; the first match decides a commit's bump.
# release: major | minor | patch | none
release_rules:
  - breaking: true
    release: major
  - type: feat
    release: minor
  - type: fix
    release: patch
  - type: perf
    release: patch
  - type: revert
    release: patch
  - type: chore
    scope: release
    release: none
  - type: refactor
    release: patch
  - type: build
    release: patch

notes:
  repository_url: ""                  # Web URL for links (derived from the remote when empty)
  types:                              # Type to section mapping; same section merges
    - {type: feat, section: Features}
    - {type: fix, section: Bug Fixes}
    - {type: perf, section: Performance Improvements}
    - {type: revert, section: Reverts}
    - {type: docs, section: Documentation}
    - {type: refactor, section: Other changes}
    - {type: build, section: Other changes}
    - {type: chore, section: Miscellaneous Chores, hidden: true}
    - {type: style, section: Styles, hidden: true}
    - {type: test, section: Tests, hidden: true}
    - {type: ci, section: Continuous Integration, hidden: true}

prepare:
  command: ""                         # e.g. "npm version {{VERSION}} --no-git-tag-version"
  shell: ""                           # Run through "<shell> -c" instead of direct exec
  timeout: 10m

changelog:
  file: CHANGELOG.md                  # Empty disables the changelog file
  title: "# Changelog"

git:
  assets: [CHANGELOG.md]              # Globs staged into the release commit
  message: "chore(release): {{VERSION}} [skip ci]\n\n{{NOTES}}"
  skip_marker: "[skip ci]"            # Must appear in message
  push: true
  remote: origin
  annotated_tags: false
  author_name: shipver
  author_email: shipver@users.noreply.github.com

publish:
  target: github                      # github | none
  repository: ""                      # owner/name (derived from the remote when empty)
  api_url: https://api.github.com
  token_env: GITHUB_TOKEN             # GH_TOKEN is tried when this is unset
  draft: false
  prerelease: false

state_dir: ~/.shipver/state           # Release history location
max_history_entries: 100
log_level: info                       # trace | debug | info | warn | error
log_format: console                   # console | json
`
}

// defaultRules mirrors analyzer.DefaultRules in config form.
func defaultRules() []map[string]any {
	return []map[string]any{
		{"breaking": true, "release": "major"},
		{"type": "feat", "release": "minor"},
		{"type": "fix", "release": "patch"},
		{"type": "perf", "release": "patch"},
		{"type": "revert", "release": "patch"},
		{"type": "chore", "scope": "release", "release": "none"},
		{"type": "refactor", "release": "patch"},
		{"type": "build", "release": "patch"},
	}
}

// GetDefaults returns the default configuration values as a flat key map.
func GetDefaults() map[string]any {
	return map[string]any{
		"branch":          "main",
		"tag_format":      "v{{VERSION}}",
		"initial_version": "1.0.0",
		"release_rules":   defaultRules(),

		"notes.repository_url": "",

		"prepare.command": "",
		"prepare.shell":   "",
		"prepare.timeout": "10m",

		"changelog.file":  "CHANGELOG.md",
		"changelog.title": "# Changelog",

		"git.assets":         []string{"CHANGELOG.md"},
		"git.message":        "chore(release): {{VERSION}} [skip ci]\n\n{{NOTES}}",
		"git.skip_marker":    "[skip ci]",
		"git.push":           true,
		"git.remote":         "origin",
		"git.annotated_tags": false,
		"git.author_name":    "shipver",
		"git.author_email":   "shipver@users.noreply.github.com",

		"publish.target":     "github",
		"publish.repository": "",
		"publish.api_url":    "https://api.github.com",
		"publish.token_env":  "GITHUB_TOKEN",
		"publish.draft":      false,
		"publish.prerelease": false,

		"state_dir":           "~/.shipver/state",
		"max_history_entries": 100,
		"log_level":           "info",
		"log_format":          "console",
	}
}
