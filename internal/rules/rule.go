package rules

import (
	"errors"
	"fmt"

	"github.com/adeptex/whispers/internal/types"
	"github.com/adeptex/whispers/internal/validate"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRule is returned for rule records that cannot be compiled.
var ErrInvalidRule = errors.New("invalid rule")

// RuleRecord is the YAML schema of a rule, shared by the built-in catalog
// and inline rules in user configuration.
type RuleRecord struct {
	ID       string     `yaml:"id"`
	Group    string     `yaml:"group"`
	Message  string     `yaml:"message"`
	Severity string     `yaml:"severity"`
	Key      yaml.Node  `yaml:"key,omitempty"`
	Value    yaml.Node  `yaml:"value,omitempty"`
	Similar  *float64   `yaml:"similar,omitempty"`
}

// Rule is a compiled detection policy.
type Rule struct {
	ID       string
	Group    string
	Message  string
	Severity types.Severity
	Key      *Specification
	Value    *Specification
	// Similar suppresses the rule when key/value similarity reaches it.
	Similar float64
}

// Parse compiles a record. Missing metadata, an unknown severity, a bad
// regex or a non-mapping key/value specification yield ErrInvalidRule.
func Parse(rec RuleRecord) (Rule, error) {
	for _, f := range []struct{ name, val string }{
		{"id", rec.ID}, {"group", rec.Group}, {"message", rec.Message}, {"severity", rec.Severity},
	} {
		if f.val == "" {
			return Rule{}, fmt.Errorf("%w %q: missing %s", ErrInvalidRule, rec.ID, f.name)
		}
	}
	sev, err := types.ParseSeverity(rec.Severity)
	if err != nil {
		return Rule{}, fmt.Errorf("%w %q: %v", ErrInvalidRule, rec.ID, err)
	}
	r := Rule{
		ID:       rec.ID,
		Group:    rec.Group,
		Message:  rec.Message,
		Severity: sev,
		Similar:  1,
	}
	if rec.Similar != nil {
		r.Similar = *rec.Similar
	}
	if r.Key, err = parseSpec(&rec.Key); err != nil {
		return Rule{}, fmt.Errorf("%w %q: key: %v", ErrInvalidRule, rec.ID, err)
	}
	if r.Value, err = parseSpec(&rec.Value); err != nil {
		return Rule{}, fmt.Errorf("%w %q: value: %v", ErrInvalidRule, rec.ID, err)
	}
	return r, nil
}

func parseSpec(n *yaml.Node) (*Specification, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind == 0 || n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected mapping, got %q", n.Value)
	}
	if len(n.Content) == 0 {
		return nil, nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if name := n.Content[i].Value; !specFields[name] {
			return nil, fmt.Errorf("unknown field %q", name)
		}
	}
	var rec SpecRecord
	if err := n.Decode(&rec); err != nil {
		return nil, err
	}
	return rec.Compile()
}

// Matches reports whether pair satisfies the key and value specifications
// and is not suppressed as a key/value look-alike.
func (r Rule) Matches(pair types.KeyValuePair) bool {
	if r.Key != nil && !r.Key.Matches(pair.Key) {
		return false
	}
	if r.Value != nil && !r.Value.Matches(pair.Value) {
		return false
	}
	return !validate.IsSimilar(pair.Key, pair.Value, r.Similar)
}

// Ref returns the metadata attached to pairs the rule detects.
func (r Rule) Ref() types.RuleRef {
	return types.RuleRef{ID: r.ID, Group: r.Group, Message: r.Message, Severity: r.Severity}
}
