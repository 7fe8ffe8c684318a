package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CategoriesFile is the on-disk category definition:
//
//	categories:
//	  - groceries
//	  - dining
//	synonyms:
//	  dining: [restaurant, takeout]
type CategoriesFile struct {
	Synonyms   map[string][]string `yaml:"synonyms"`
	Categories []string            `yaml:"categories"`
}

// LoadCategoriesFile reads and parses a categories YAML file.
func LoadCategoriesFile(path string) (CategoriesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CategoriesFile{}, fmt.Errorf("%w: categories file %s not found", common.ErrMissingConfig, path)
		}
		return CategoriesFile{}, fmt.Errorf("failed to read categories file: %w", err)
	}

	var file CategoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return CategoriesFile{}, fmt.Errorf("%w: could not parse categories file %s: %w", common.ErrInvalidConfig, path, err)
	}

	names := make([]string, 0, len(file.Categories))
	for _, name := range file.Categories {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return CategoriesFile{}, fmt.Errorf("%w: categories file %s lists no categories", common.ErrInvalidConfig, path)
	}
	file.Categories = names

	return file, nil
}

// WriteCategoriesFile writes file as YAML to path.
func WriteCategoriesFile(path string, file CategoriesFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write categories file: %w", err)
	}
	return nil
}

// LoadEnvFiles loads KEY=value pairs from each existing file without
// overriding variables already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		path = ExpandPath(path)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}
