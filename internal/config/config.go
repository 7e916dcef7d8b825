// Package config decodes the YAML configuration schema (tag_pattern,
// commit_pattern, bump_rules, version_scopes, new_tag_message) into the
// shapes the engine package consumes, using viper for file discovery and
// environment overrides the way this pack's CLIs do.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dloez/tag-track/internal/engine"
	"github.com/dloez/tag-track/internal/rules"
	"github.com/dloez/tag-track/internal/version"
)

// fileRule mirrors the YAML shape of a single bump_rules entry. Tags are
// mapstructure, not yaml: viper decodes through its own map (populated from
// YAML, JSON, TOML, or env vars alike), not directly through yaml.v3.
type fileRule struct {
	Bump                  string   `mapstructure:"bump" yaml:"bump"`
	Types                 []string `mapstructure:"types" yaml:"types,omitempty"`
	Scopes                []string `mapstructure:"scopes" yaml:"scopes,omitempty"`
	IfBreakingType        *bool    `mapstructure:"if_breaking_type" yaml:"if_breaking_type,omitempty"`
	IfBreakingDescription *bool    `mapstructure:"if_breaking_description" yaml:"if_breaking_description,omitempty"`
}

// file mirrors the YAML shape of the whole configuration document, per §6.
type file struct {
	TagPattern    string     `mapstructure:"tag_pattern" yaml:"tag_pattern"`
	CommitPattern string     `mapstructure:"commit_pattern" yaml:"commit_pattern"`
	BumpRules     []fileRule `mapstructure:"bump_rules" yaml:"bump_rules"`
	VersionScopes []string   `mapstructure:"version_scopes" yaml:"version_scopes"`
	NewTagMessage string     `mapstructure:"new_tag_message" yaml:"new_tag_message"`
}

// Load reads path (when non-empty) or discovers a config file the way
// initConfig does, merges in TAGTRACK_-prefixed environment overrides, and
// decodes the result into an engine.Config. An empty path with no
// discoverable file yields engine.DefaultConfig().
func Load(path string) (engine.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("tagtrack")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".tag-track")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return engine.Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return engine.DefaultConfig(), nil
		}
		return engine.Config{}, fmt.Errorf("config: reading configuration: %w", err)
	}

	var raw file
	if err := v.Unmarshal(&raw); err != nil {
		return engine.Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	return toEngineConfig(raw)
}

func toEngineConfig(raw file) (engine.Config, error) {
	cfg := engine.DefaultConfig()

	if raw.TagPattern != "" {
		cfg.TagPattern = raw.TagPattern
	}
	if raw.CommitPattern != "" {
		cfg.CommitPattern = raw.CommitPattern
	}
	if len(raw.VersionScopes) > 0 {
		cfg.Scopes = raw.VersionScopes
	}
	if raw.NewTagMessage != "" {
		cfg.NewTagMessage = raw.NewTagMessage
	}

	if len(raw.BumpRules) > 0 {
		parsed := make([]rules.Rule, 0, len(raw.BumpRules))
		for i, fr := range raw.BumpRules {
			r, err := toRule(fr)
			if err != nil {
				return engine.Config{}, fmt.Errorf("config: bump_rules[%d]: %w", i, err)
			}
			parsed = append(parsed, r)
		}
		cfg.Rules = parsed
	}

	return cfg, nil
}

// WriteDefault marshals the documented default configuration to path using
// yaml.v3, for the `init` subcommand to scaffold a starter file a user can
// then edit by hand.
func WriteDefault(path string) error {
	def := file{
		TagPattern:    engine.DefaultConfig().TagPattern,
		CommitPattern: engine.DefaultConfig().CommitPattern,
		VersionScopes: engine.DefaultConfig().Scopes,
		NewTagMessage: engine.DefaultConfig().NewTagMessage,
		BumpRules: []fileRule{
			{Bump: "patch", Types: []string{"fix", "style"}},
			{Bump: "minor", Types: []string{"feat", "refactor", "perf"}},
			{Bump: "major", IfBreakingType: boolPtr(true), IfBreakingDescription: boolPtr(true)},
		},
	}

	out, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("config: marshaling default configuration: %w", err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

func toRule(fr fileRule) (rules.Rule, error) {
	kind, err := version.ParseBumpKind(fr.Bump)
	if err != nil {
		return rules.Rule{}, err
	}

	return rules.Rule{
		Bump:                  kind,
		Types:                 fr.Types,
		Scopes:                fr.Scopes,
		IfBreakingType:        fr.IfBreakingType,
		IfBreakingDescription: fr.IfBreakingDescription,
	}, nil
}
