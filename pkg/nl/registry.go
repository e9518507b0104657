package nl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// PatternSpec is the on-disk form of a single intent pattern. Either the
// keyword fields or Regex is set, not both.
type PatternSpec struct {
	AllOf  []string `yaml:"all_of"`
	AnyOf  []string `yaml:"any_of"`
	NoneOf []string `yaml:"none_of"`
	Regex  string   `yaml:"regex"`
}

// IntentPattern is a compiled PatternSpec.
type IntentPattern struct {
	AllOf  []string
	AnyOf  []string
	NoneOf []string
	Regex  *regexp.Regexp
}

// Matches tests the pattern against a normalized utterance. Keyword terms
// containing a space or slash are tested as substrings of the normalized
// text; single tokens are tested against the synonym-expanded token set.
func (p IntentPattern) Matches(u Utterance) bool {
	if p.Regex != nil {
		return p.Regex.MatchString(u.Text)
	}
	for _, term := range p.AllOf {
		if !u.HasToken(term) {
			return false
		}
	}
	if len(p.AnyOf) > 0 {
		found := false
		for _, term := range p.AnyOf {
			if u.HasToken(term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, term := range p.NoneOf {
		if u.HasToken(term) {
			return false
		}
	}
	return true
}

// SlotSpec declares one extractable parameter of an intent.
type SlotSpec struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Default    any               `yaml:"default"`
	Required   bool              `yaml:"required"`
	Validators []string          `yaml:"validators"`
	Meta       map[string]string `yaml:"meta"`
	Extractor  string            `yaml:"extractor"`
}

// Kind resolves the extractor kind for the slot: explicit override first,
// then the declared type.
func (s SlotSpec) Kind() SlotKind {
	if s.Extractor != "" {
		return SlotKind(s.Extractor)
	}
	return SlotKind(s.Type)
}

// SQLTemplate bundles an intent's statements. Params names the extracted
// slot values bound, in order, as $1..$n. Range slots may be addressed as
// "<slot>.start_date" / "<slot>.end_date".
type SQLTemplate struct {
	Query          string   `yaml:"query"`
	Params         []string `yaml:"params"`
	FollowUp       string   `yaml:"follow_up"`
	FollowUpParams []string `yaml:"follow_up_params"`
	DefaultLimit   int      `yaml:"default_limit"`
}

// Responses carries an intent's configured message templates.
type Responses struct {
	NotFound       string `yaml:"not_found"`
	SuccessNote    string `yaml:"success_note"`
	Disambiguation string `yaml:"disambiguation"`
}

// IntentDefinition is one entry of the catalogue, loaded once and never
// mutated afterwards.
type IntentDefinition struct {
	ID        string        `yaml:"id"`
	Priority  int           `yaml:"priority"`
	Enabled   bool          `yaml:"enabled"`
	Patterns  []PatternSpec `yaml:"patterns"`
	Slots     []SlotSpec    `yaml:"slots"`
	SQL       SQLTemplate   `yaml:"sql"`
	Responses Responses     `yaml:"responses"`
	Examples  []string      `yaml:"examples"`

	compiled []IntentPattern
}

// IntentMatch is the result of one successful match attempt.
type IntentMatch struct {
	Intent    *IntentDefinition
	Slots     map[string]any
	Utterance Utterance
}

type indexFile struct {
	Intents []string `json:"intents"`
}

// Registry holds the ordered intent catalogue plus the resources matching
// needs at request time.
type Registry struct {
	defs   []*IntentDefinition
	shared *SharedResources
	clock  Clock
	logger *zap.Logger
}

// NewRegistry builds a registry from in-memory definitions. Definitions are
// compiled, validated, and sorted by (priority, id); disabled intents are
// dropped.
func NewRegistry(defs []*IntentDefinition, shared *SharedResources, clock Clock, logger *zap.Logger) (*Registry, error) {
	kept := make([]*IntentDefinition, 0, len(defs))
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		if err := compileIntent(def); err != nil {
			return nil, fmt.Errorf("intent %s: %w", def.ID, err)
		}
		kept = append(kept, def)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Priority != kept[j].Priority {
			return kept[i].Priority < kept[j].Priority
		}
		return kept[i].ID < kept[j].ID
	})
	return &Registry{defs: kept, shared: shared, clock: clock, logger: logger}, nil
}

// LoadRegistry reads the catalogue from dir/intents: an index.json naming
// the intent files in no particular order, then one YAML file per intent.
func LoadRegistry(dir string, shared *SharedResources, clock Clock, logger *zap.Logger) (*Registry, error) {
	indexPath := filepath.Join(dir, "intents", "index.json")
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent index %s: %w", indexPath, err)
	}
	var index indexFile
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("failed to parse intent index %s: %w", indexPath, err)
	}
	if len(index.Intents) == 0 {
		return nil, fmt.Errorf("intent index %s lists no intents", indexPath)
	}

	defs := make([]*IntentDefinition, 0, len(index.Intents))
	for _, name := range index.Intents {
		path := filepath.Join(dir, "intents", name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read intent file %s: %w", path, err)
		}
		def := &IntentDefinition{Enabled: true}
		if err := yaml.Unmarshal(data, def); err != nil {
			return nil, fmt.Errorf("failed to parse intent file %s: %w", path, err)
		}
		if def.ID == "" {
			return nil, fmt.Errorf("intent file %s has no id", path)
		}
		defs = append(defs, def)
	}
	reg, err := NewRegistry(defs, shared, clock, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("intent catalogue loaded", zap.Int("intents", len(reg.defs)))
	return reg, nil
}

// compileIntent compiles patterns and verifies every slot resolves to a
// known extractor and parseable validators. Catalogue gaps are startup
// errors, never request-time surprises.
func compileIntent(def *IntentDefinition) error {
	if len(def.Patterns) == 0 {
		return fmt.Errorf("no patterns defined")
	}
	def.compiled = make([]IntentPattern, 0, len(def.Patterns))
	for i, ps := range def.Patterns {
		var pattern IntentPattern
		if ps.Regex != "" {
			re, err := regexp.Compile(ps.Regex)
			if err != nil {
				return fmt.Errorf("pattern %d: invalid regex: %w", i, err)
			}
			pattern.Regex = re
		} else {
			if len(ps.AllOf) == 0 && len(ps.AnyOf) == 0 {
				return fmt.Errorf("pattern %d: empty keyword pattern", i)
			}
			pattern.AllOf = lowerAll(ps.AllOf)
			pattern.AnyOf = lowerAll(ps.AnyOf)
			pattern.NoneOf = lowerAll(ps.NoneOf)
		}
		def.compiled = append(def.compiled, pattern)
	}
	for _, slot := range def.Slots {
		if !KnownSlotKind(slot.Kind()) {
			return fmt.Errorf("slot %s: unknown extractor %q", slot.Name, slot.Kind())
		}
		for _, rule := range slot.Validators {
			if err := checkValidatorRule(rule); err != nil {
				return fmt.Errorf("slot %s: %w", slot.Name, err)
			}
		}
	}
	return nil
}

// Intents returns the catalogue in match order.
func (r *Registry) Intents() []*IntentDefinition {
	return r.defs
}

// Lookup returns the definition for an intent id.
func (r *Registry) Lookup(id string) (*IntentDefinition, bool) {
	for _, def := range r.defs {
		if def.ID == id {
			return def, true
		}
	}
	return nil, false
}

// Examples returns up to max example phrases in catalogue order, used to
// build the UNKNOWN guidance response.
func (r *Registry) Examples(max int) []string {
	out := make([]string, 0, max)
	for _, def := range r.defs {
		for _, ex := range def.Examples {
			if len(out) >= max {
				return out
			}
			out = append(out, ex)
		}
	}
	return out
}

// Match selects at most one intent for the query. Intents are scanned in
// (priority, id) order; a pattern miss, an extraction failure, or a slot
// validation failure skips to the next intent rather than aborting the
// scan.
func (r *Registry) Match(query string) (*IntentMatch, bool) {
	u := Normalize(query, r.shared)
	today := r.clock.Today()
	for _, def := range r.defs {
		matched := false
		for _, p := range def.compiled {
			if p.Matches(u) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		slots, err := extractSlots(def, u, r.shared, today)
		if err != nil {
			r.logger.Debug("intent skipped",
				zap.String("intent", def.ID),
				zap.String("reason", err.Error()))
			continue
		}
		return &IntentMatch{Intent: def, Slots: slots, Utterance: u}, true
	}
	return nil, false
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(strings.TrimSpace(t))
	}
	return out
}
