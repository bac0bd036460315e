package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/fd0/affiliations/affiliation"
	"gopkg.in/yaml.v2"
)

//go:embed rules.yml
var defaultRules []byte

// Config holds the rules for finding affiliations.
type Config struct {
	Pages               int                       `yaml:"pages"`
	MaxAffiliationLines int                       `yaml:"max_affiliation_lines"`
	Replacements        []affiliation.Replacement `yaml:"replacements"`
	Aliases             []affiliation.Replacement `yaml:"aliases"`
}

// Cleaner returns the name cleaner configured by cfg.
func (cfg Config) Cleaner() *affiliation.Cleaner {
	return &affiliation.Cleaner{
		Replacements: cfg.Replacements,
		Aliases:      cfg.Aliases,
	}
}

// Matcher returns a matcher using the rules in cfg.
func (cfg Config) Matcher() *affiliation.Matcher {
	m := affiliation.NewMatcher(cfg.Cleaner())
	m.MaxLines = cfg.MaxAffiliationLines

	return m
}

func parse(buf []byte) (Config, error) {
	cfg := Config{
		Pages:               1,
		MaxAffiliationLines: affiliation.DefaultMaxLines,
	}

	err := yaml.UnmarshalStrict(buf, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config failed: %w", err)
	}

	if cfg.Pages < 1 {
		return Config{}, fmt.Errorf("invalid number of pages %d", cfg.Pages)
	}

	if cfg.MaxAffiliationLines < 1 {
		return Config{}, fmt.Errorf("invalid max_affiliation_lines %d", cfg.MaxAffiliationLines)
	}

	return cfg, nil
}

// Default returns the built-in rules.
func Default() (Config, error) {
	return parse(defaultRules)
}

// Load reads the rules from filename. An empty filename selects the
// built-in rules.
func Load(filename string) (Config, error) {
	if filename == "" {
		return Default()
	}

	buf, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("read config failed: %w", err)
	}

	return parse(buf)
}
