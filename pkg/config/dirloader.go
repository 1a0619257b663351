package config

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/stubwire/stubwire/pkg/rule"
)

// DefaultDirPattern matches the rule-set files LoadDir picks up by
// default, any depth below the root.
const DefaultDirPattern = "**/*.{yaml,yml,json}"

// LoadDir loads every rule-set file under dir matching pattern (doublestar
// syntax, DefaultDirPattern when empty) and merges them into one RuleSet.
// Files are merged in lexical path order; a later file wins when two files
// name the same rule.
func LoadDir(dir, pattern string) (*RuleSet, error) {
	if pattern == "" {
		pattern = DefaultDirPattern
	}

	paths, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad rule set glob %q: %w", pattern, err)
	}
	sort.Strings(paths)

	merged := &RuleSet{Rules: make(map[string]rule.Spec)}
	for _, path := range paths {
		set, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		for name, spec := range set.Rules {
			merged.Rules[name] = spec
		}
	}
	return merged, nil
}
