package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const DefaultRoleName = "user"

// Role holds the per-role token quotas.
type Role struct {
	Name                     string `yaml:"-"`
	DailyCommunalLimitTokens int64  `yaml:"daily_communal_limit_tokens"`
	MaxRequestTokens         int64  `yaml:"max_request_tokens"`
	DefaultBalance           int64  `yaml:"default_balance"`
}

type Roles map[string]Role

type rolesFile struct {
	Roles map[string]Role `yaml:"roles"`
}

func DefaultRoles() Roles {
	return Roles{
		"anonymous": {Name: "anonymous", DailyCommunalLimitTokens: 5000, MaxRequestTokens: 2000, DefaultBalance: 50000},
		"user":      {Name: "user", DailyCommunalLimitTokens: 20000, MaxRequestTokens: 4000, DefaultBalance: 50000},
		"admin":     {Name: "admin", DailyCommunalLimitTokens: 100000, MaxRequestTokens: 8000, DefaultBalance: 100000},
	}
}

// Get returns the named role, falling back to the default role for unknown names.
func (r Roles) Get(name string) Role {
	if role, ok := r[name]; ok {
		return role
	}
	return r[DefaultRoleName]
}

// LoadFile merges role settings from a YAML file. Zero values keep the current setting.
func (r Roles) LoadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read roles file %s: %w", path, err)
	}
	return r.merge(data)
}

func (r Roles) merge(data []byte) error {
	var f rolesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse roles file: %w", err)
	}

	for name, override := range f.Roles {
		role := r[name]
		role.Name = name
		if override.DailyCommunalLimitTokens != 0 {
			role.DailyCommunalLimitTokens = override.DailyCommunalLimitTokens
		}
		if override.MaxRequestTokens != 0 {
			role.MaxRequestTokens = override.MaxRequestTokens
		}
		if override.DefaultBalance != 0 {
			role.DefaultBalance = override.DefaultBalance
		}
		if role.DailyCommunalLimitTokens < 0 || role.MaxRequestTokens < 0 || role.DefaultBalance < 0 {
			return fmt.Errorf("role %q: limits must not be negative", name)
		}
		r[name] = role
	}
	return nil
}
