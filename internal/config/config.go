// Package config loads and validates guardlint rule configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/guardlint/guardlint/internal/model"
)

// DefaultFile is the config file name looked up in the project root.
const DefaultFile = "guardlint.yml"

// Rule is one enforcement rule as written in the config file.
type Rule struct {
	Name       string   `yaml:"name"`
	Calls      []string `yaml:"calls"`
	Functions  []string `yaml:"functions"`
	Enforce    []string `yaml:"enforce"`
	RequireAll bool     `yaml:"requireAll"`
}

// Config is the full guardlint.yml schema.
type Config struct {
	Rules []Rule `yaml:"rules"`
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects malformed configuration before any analysis starts.
func (c *Config) Validate() error {
	if len(c.Rules) == 0 {
		return fmt.Errorf("no rules configured")
	}
	for i, r := range c.Rules {
		label := r.Name
		if label == "" {
			label = fmt.Sprintf("rule %d", i+1)
		}
		if len(r.Enforce) == 0 {
			return fmt.Errorf("%s: enforce must list at least one name", label)
		}
		if len(r.Calls) == 0 && len(r.Functions) == 0 {
			return fmt.Errorf("%s: at least one of calls or functions must be set", label)
		}
		for _, names := range [][]string{r.Calls, r.Functions, r.Enforce} {
			for _, n := range names {
				if strings.TrimSpace(n) == "" {
					return fmt.Errorf("%s: empty name entry", label)
				}
			}
		}
	}
	return nil
}

// Policies compiles the rules into immutable analysis policies. Unnamed
// rules get a positional name for reporting.
func (c *Config) Policies() []model.Policy {
	policies := make([]model.Policy, 0, len(c.Rules))
	for i, r := range c.Rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}
		policies = append(policies, model.Policy{
			Rule:               name,
			MonitoredCalls:     r.Calls,
			MonitoredFunctions: r.Functions,
			Enforced:           r.Enforce,
			RequireAll:         r.RequireAll,
		})
	}
	return policies
}
