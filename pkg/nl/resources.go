// Package nl implements the deterministic natural-language front end: shared
// alias resources, utterance normalization, the priority-ordered intent
// registry and the closed set of slot extractors.
package nl

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"
)

// SharedResources holds the static alias lookups loaded once at startup:
// meal-name aliases, relative-date-range aliases and token synonyms. All maps
// are read-only after construction.
type SharedResources struct {
	mealLookup    map[string]string
	rangeLookup   map[string]string
	defaultRange  string
	synonymLookup map[string]string

	// rangeAliases is the alias list sorted longest-first so that phrase
	// scanning never lets a short alias shadow a longer one ("this month"
	// must win over "month").
	rangeAliases []string
}

type mealMapFile struct {
	Meals map[string]struct {
		Aliases []string `yaml:"aliases"`
	} `yaml:"meals"`
}

type dateRulesFile struct {
	Ranges map[string]struct {
		Aliases []string `yaml:"aliases"`
		Default bool     `yaml:"default"`
	} `yaml:"ranges"`
}

type synonymsFile struct {
	Synonyms map[string]struct {
		Aliases []string `yaml:"aliases"`
	} `yaml:"synonyms"`
}

// LoadSharedResources reads meal_map.yaml, date_rules.yaml and synonyms.yaml
// from dir/shared. meal_map.yaml and date_rules.yaml are required; a missing
// synonyms.yaml yields an empty synonym table.
func LoadSharedResources(dir string) (*SharedResources, error) {
	sharedDir := filepath.Join(dir, "shared")

	var meals mealMapFile
	if err := readYAML(filepath.Join(sharedDir, "meal_map.yaml"), &meals); err != nil {
		return nil, err
	}

	var rules dateRulesFile
	if err := readYAML(filepath.Join(sharedDir, "date_rules.yaml"), &rules); err != nil {
		return nil, err
	}

	var synonyms synonymsFile
	synPath := filepath.Join(sharedDir, "synonyms.yaml")
	if _, err := os.Stat(synPath); err == nil {
		if err := readYAML(synPath, &synonyms); err != nil {
			return nil, err
		}
	}

	r := &SharedResources{
		mealLookup:    make(map[string]string),
		rangeLookup:   make(map[string]string),
		defaultRange:  "today",
		synonymLookup: make(map[string]string),
	}

	for canonical, entry := range meals.Meals {
		r.mealLookup[strings.ToLower(canonical)] = canonical
		for _, alias := range entry.Aliases {
			r.mealLookup[strings.ToLower(alias)] = canonical
		}
	}

	for key, entry := range rules.Ranges {
		if entry.Default {
			r.defaultRange = key
		}
		r.rangeLookup[strings.ToLower(key)] = key
		for _, alias := range entry.Aliases {
			r.rangeLookup[strings.ToLower(alias)] = key
		}
	}

	for canonical, entry := range synonyms.Synonyms {
		lower := strings.ToLower(canonical)
		r.synonymLookup[lower] = lower
		for _, alias := range entry.Aliases {
			r.synonymLookup[strings.ToLower(alias)] = lower
		}
	}

	r.rangeAliases = make([]string, 0, len(r.rangeLookup))
	for alias := range r.rangeLookup {
		r.rangeAliases = append(r.rangeAliases, alias)
	}
	sort.Slice(r.rangeAliases, func(i, j int) bool {
		if len(r.rangeAliases[i]) != len(r.rangeAliases[j]) {
			return len(r.rangeAliases[i]) > len(r.rangeAliases[j])
		}
		return r.rangeAliases[i] < r.rangeAliases[j]
	})

	return r, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("missing shared configuration %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// NormalizeToken maps a token onto its canonical synonym. Tokens with no
// configured synonym fall back to their singular form, so plural spellings
// match without every plural being listed as an alias.
func (r *SharedResources) NormalizeToken(token string) string {
	if canonical, ok := r.synonymLookup[token]; ok {
		return canonical
	}
	if singular := inflection.Singular(token); singular != "" && singular != token {
		if canonical, ok := r.synonymLookup[singular]; ok {
			return canonical
		}
		return singular
	}
	return token
}

// MealFromToken resolves a token to a canonical meal name, or "" when the
// token is not a meal alias.
func (r *SharedResources) MealFromToken(token string) string {
	return r.mealLookup[token]
}

// RangeFromAlias resolves an alias phrase to a canonical range key, or ""
// when unknown.
func (r *SharedResources) RangeFromAlias(text string) string {
	return r.rangeLookup[strings.ToLower(strings.TrimSpace(text))]
}

// RangeAliases returns all range alias phrases, longest first.
func (r *SharedResources) RangeAliases() []string {
	return r.rangeAliases
}

// DefaultRange returns the configured default range key.
func (r *SharedResources) DefaultRange() string {
	return r.defaultRange
}
