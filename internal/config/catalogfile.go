package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SkillCatalogFile is the on-disk shape of a skill catalog override.
//
//	version: "2024.1"
//	categories:
//	  programming_languages: [python, go]
//	aliases:
//	  golang: go
type SkillCatalogFile struct {
	Version    string              `yaml:"version"`
	Categories map[string][]string `yaml:"categories"`
	Aliases    map[string]string   `yaml:"aliases"`
}

// LoadSkillCatalogFile reads and validates a catalog override from YAML.
func LoadSkillCatalogFile(filePath string) (*SkillCatalogFile, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadSkillCatalogFile: failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("op=config.LoadSkillCatalogFile: config file not found: %s", absPath)
	}
	// #nosec G304 -- path comes from operator configuration
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadSkillCatalogFile: failed to read config file: %w", err)
	}

	var f SkillCatalogFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("op=config.LoadSkillCatalogFile: failed to parse YAML: %w", err)
	}
	f.Version = strings.TrimSpace(f.Version)
	if f.Version == "" {
		return nil, fmt.Errorf("op=config.LoadSkillCatalogFile: version is required")
	}
	total := 0
	for _, skills := range f.Categories {
		total += len(skills)
	}
	if total == 0 {
		return nil, fmt.Errorf("op=config.LoadSkillCatalogFile: catalog has no skills")
	}
	return &f, nil
}
