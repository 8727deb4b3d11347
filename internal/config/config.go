// Package config provides hierarchical configuration management for shipver using koanf.
// Configuration is loaded with priority: environment variables > --config file >
// project config (.shipver/config.yml or .shipver/config.json) > user config
// (~/.config/shipver/config.yml) > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SHIPVER_"

// ConfigSource tracks where a configuration value came from
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUser     ConfigSource = "user"
	SourceProject  ConfigSource = "project"
	SourceOverride ConfigSource = "override"
	SourceEnv      ConfigSource = "env"
)

// Configuration represents the shipver configuration.
type Configuration struct {
	// Branch is the branch releases are cut from. Can be set via SHIPVER_BRANCH.
	Branch string `koanf:"branch" validate:"required"`
	// TagFormat renders release tags; must contain {{VERSION}} exactly once.
	TagFormat string `koanf:"tag_format" validate:"required"`
	// InitialVersion is used for the first release of a repository.
	InitialVersion string `koanf:"initial_version" validate:"required"`
	// ReleaseRules is the ordered commit classification table.
	ReleaseRules []RuleConfig `koanf:"release_rules" validate:"required,min=1,dive"`

	Notes     NotesConfig     `koanf:"notes"`
	Prepare   PrepareConfig   `koanf:"prepare"`
	Changelog ChangelogConfig `koanf:"changelog"`
	Git       GitConfig       `koanf:"git"`
	Publish   PublishConfig   `koanf:"publish"`

	StateDir string `koanf:"state_dir"`
	// MaxHistoryEntries sets the maximum number of release history entries to retain.
	MaxHistoryEntries int    `koanf:"max_history_entries" validate:"min=0"`
	LogLevel          string `koanf:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat         string `koanf:"log_format" validate:"oneof=console json"`
}

// RuleConfig is one release rule. Empty fields match anything.
type RuleConfig struct {
	Type     string `koanf:"type" json:"type,omitempty" yaml:"type,omitempty"`
	Scope    string `koanf:"scope" json:"scope,omitempty" yaml:"scope,omitempty"`
	Breaking *bool  `koanf:"breaking" json:"breaking,omitempty" yaml:"breaking,omitempty"`
	Release  string `koanf:"release" json:"release" yaml:"release"`
}

// TypeConfig maps a commit type to a notes section.
type TypeConfig struct {
	Type    string `koanf:"type" json:"type" yaml:"type" validate:"required"`
	Section string `koanf:"section" json:"section" yaml:"section" validate:"required"`
	Hidden  bool   `koanf:"hidden" json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

type NotesConfig struct {
	// Types overrides the built-in type to section mapping when non-empty.
	Types         []TypeConfig `koanf:"types" validate:"dive"`
	RepositoryURL string       `koanf:"repository_url"`
}

type PrepareConfig struct {
	Command string        `koanf:"command"`
	Shell   string        `koanf:"shell"`
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`
}

type ChangelogConfig struct {
	File  string `koanf:"file"`
	Title string `koanf:"title"`
}

type GitConfig struct {
	Assets        []string `koanf:"assets"`
	Message       string   `koanf:"message" validate:"required"`
	SkipMarker    string   `koanf:"skip_marker" validate:"required"`
	Push          bool     `koanf:"push"`
	Remote        string   `koanf:"remote" validate:"required"`
	AnnotatedTags bool     `koanf:"annotated_tags"`
	AuthorName    string   `koanf:"author_name" validate:"required"`
	AuthorEmail   string   `koanf:"author_email" validate:"required,email"`
}

type PublishConfig struct {
	Target     string `koanf:"target" validate:"oneof=github none"`
	Repository string `koanf:"repository"`
	APIURL     string `koanf:"api_url" validate:"omitempty,url"`
	TokenEnv   string `koanf:"token_env"`
	Draft      bool   `koanf:"draft"`
	Prerelease bool   `koanf:"prerelease"`
}

// Token returns the API token from the configured environment variable,
// falling back to GITHUB_TOKEN and GH_TOKEN.
func (p PublishConfig) Token() string {
	for _, name := range []string{p.TokenEnv, "GITHUB_TOKEN", "GH_TOKEN"} {
		if name == "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// LoadOptions configures how configuration is loaded
type LoadOptions struct {
	// ProjectConfigPath overrides the project config path (default: .shipver/config.yml)
	ProjectConfigPath string
	// OverridePath is an explicit config file (--config) loaded after the
	// project config. It must exist.
	OverridePath string
	// SkipUserConfig ignores the user-level config file.
	SkipUserConfig bool
}

// Load loads configuration from user, project, and environment sources.
func Load(projectConfigPath string) (*Configuration, error) {
	return LoadWithOptions(LoadOptions{ProjectConfigPath: projectConfigPath})
}

// LoadWithOptions loads configuration with custom options
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	k, err := loadKoanf(opts)
	if err != nil {
		return nil, err
	}
	return finalizeConfig(k)
}

// Sources returns which layer supplied each top-level key, for 'config show'.
func Sources(opts LoadOptions) (map[string]ConfigSource, error) {
	sources := make(map[string]ConfigSource)
	mark := func(k *koanf.Koanf, src ConfigSource) {
		for _, key := range k.Keys() {
			sources[key] = src
		}
	}

	defaults := koanf.New(".")
	loadDefaults(defaults)
	mark(defaults, SourceDefault)

	if !opts.SkipUserConfig {
		if path, err := UserConfigPath(); err == nil && fileExists(path) {
			user := koanf.New(".")
			if err := loadFile(user, path, string(SourceUser)); err != nil {
				return nil, err
			}
			mark(user, SourceUser)
		}
	}

	if path := projectPath(opts.ProjectConfigPath); path != "" {
		project := koanf.New(".")
		if err := loadFile(project, path, string(SourceProject)); err != nil {
			return nil, err
		}
		mark(project, SourceProject)
	}

	if opts.OverridePath != "" {
		override := koanf.New(".")
		if err := loadFile(override, opts.OverridePath, string(SourceOverride)); err != nil {
			return nil, err
		}
		mark(override, SourceOverride)
	}

	envK := koanf.New(".")
	if err := loadEnvironmentConfig(envK); err != nil {
		return nil, err
	}
	mark(envK, SourceEnv)

	return sources, nil
}

// Flatten returns the merged configuration as a flat key map.
func Flatten(opts LoadOptions) (map[string]any, error) {
	k, err := loadKoanf(opts)
	if err != nil {
		return nil, err
	}
	return k.All(), nil
}

func loadKoanf(opts LoadOptions) (*koanf.Koanf, error) {
	k := koanf.New(".")

	loadDefaults(k)

	if !opts.SkipUserConfig {
		if err := loadUserConfig(k); err != nil {
			return nil, err
		}
	}

	if err := loadProjectConfig(k, opts.ProjectConfigPath); err != nil {
		return nil, err
	}

	if opts.OverridePath != "" {
		if !fileExists(opts.OverridePath) {
			return nil, fmt.Errorf("config file %s not found", opts.OverridePath)
		}
		if err := loadFile(k, opts.OverridePath, string(SourceOverride)); err != nil {
			return nil, err
		}
	}

	if err := loadEnvironmentConfig(k); err != nil {
		return nil, err
	}
	return k, nil
}

// loadDefaults applies default configuration values
func loadDefaults(k *koanf.Koanf) {
	for key, value := range GetDefaults() {
		k.Set(key, value)
	}
}

// loadUserConfig loads ~/.config/shipver/config.yml when present.
func loadUserConfig(k *koanf.Koanf) error {
	path, err := UserConfigPath()
	if err != nil || !fileExists(path) {
		return nil
	}
	if err := loadFile(k, path, string(SourceUser)); err != nil {
		return fmt.Errorf("loading user config: %w", err)
	}
	return nil
}

// projectPath picks the project config file: the custom path, the YAML
// file, or the JSON file, in that order. Empty when none exists.
func projectPath(customPath string) string {
	if customPath != "" {
		if fileExists(customPath) {
			return customPath
		}
		return ""
	}
	if p := ProjectConfigPath(); fileExists(p) {
		return p
	}
	if p := ProjectJSONConfigPath(); fileExists(p) {
		return p
	}
	return ""
}

func loadProjectConfig(k *koanf.Koanf, customPath string) error {
	path := projectPath(customPath)
	if path == "" {
		return nil
	}
	if err := loadFile(k, path, string(SourceProject)); err != nil {
		return fmt.Errorf("loading project config: %w", err)
	}
	return nil
}

// loadFile loads a YAML or JSON config file, chosen by extension.
func loadFile(k *koanf.Koanf, path, configType string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
		}
		return nil
	}
	if err := ValidateYAMLSyntax(path); err != nil {
		return fmt.Errorf("validating YAML syntax for %s config: %w", configType, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
	}
	return nil
}

// listKeys are split on commas when given through the environment.
var listKeys = map[string]bool{
	"git.assets": true,
}

// loadEnvironmentConfig loads environment variable overrides
func loadEnvironmentConfig(k *koanf.Koanf) error {
	provider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		name := envTransform(key)
		if listKeys[name] {
			return name, splitList(value)
		}
		return name, value
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}
	return nil
}

// envTransform converts environment variable names to config keys.
// A double underscore nests: SHIPVER_PUBLISH__TARGET -> publish.target.
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// finalizeConfig unmarshals, validates, and applies final transformations
func finalizeConfig(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfigValues(&cfg, "config"); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.StateDir = expandHomePath(cfg.StateDir)
	return &cfg, nil
}

// fileExists returns true if the file exists and is readable
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
