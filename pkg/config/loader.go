// Package config loads named rule sets from files, in the shape accepted
// by the registry's bulk registration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stubwire/stubwire/pkg/rule"
)

// Common errors for rule-set loading.
var (
	ErrFileNotFound     = errors.New("rule set file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("rule set file is empty")
)

// RuleSet is a named collection of rule specs, the document format of a
// rule-set file.
type RuleSet struct {
	// Rules maps a human-readable name to a rule spec. Names are load
	// order only; the registry key still comes from the spec itself.
	Rules map[string]rule.Spec `json:"rules" yaml:"rules"`
}

// LoadFromFile reads a RuleSet from a JSON or YAML file. The format is
// chosen by extension (.yaml/.yml for YAML, otherwise JSON).
func LoadFromFile(path string) (*RuleSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

// ParseJSON decodes a RuleSet from JSON bytes.
func ParseJSON(data []byte) (*RuleSet, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	var set RuleSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, err)
	}
	return &set, nil
}

// ParseYAML decodes a RuleSet from YAML bytes.
func ParseYAML(data []byte) (*RuleSet, error) {
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidYAML, err)
	}
	return &set, nil
}
