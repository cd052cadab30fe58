package types

import (
	"fmt"
	"slices"
	"strings"
)

// Severity is an ordered risk level for a rule and the findings it produces.
type Severity string

const (
	SevCritical Severity = "Critical"
	SevHigh     Severity = "High"
	SevMedium   Severity = "Medium"
	SevLow      Severity = "Low"
	SevInfo     Severity = "Info"
)

var severities = []Severity{SevCritical, SevHigh, SevMedium, SevLow, SevInfo}

// AllSeverities returns every severity, most severe first.
func AllSeverities() []Severity {
	return slices.Clone(severities)
}

// ParseSeverity resolves s case-insensitively against the severity vocabulary.
func ParseSeverity(s string) (Severity, error) {
	s = strings.TrimSpace(s)
	for _, sev := range severities {
		if strings.EqualFold(s, string(sev)) {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q (expected one of %s)", s, strings.Join(SeverityNames(), ", "))
}

// SeverityNames returns the vocabulary as plain strings.
func SeverityNames() []string {
	out := make([]string, len(severities))
	for i, s := range severities {
		out[i] = string(s)
	}
	return out
}

// Rank orders severities: Critical is 5, Info is 1, unknown values are 0.
func (s Severity) Rank() int {
	i := slices.Index(severities, s)
	if i < 0 {
		return 0
	}
	return len(severities) - i
}

// RuleRef is the rule metadata attached to a detected pair.
type RuleRef struct {
	ID       string   `json:"id"`
	Group    string   `json:"group"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// KeyValuePair is a detection candidate extracted from a file.
// Stages never mutate a pair they receive; the With* helpers return copies.
type KeyValuePair struct {
	Key     string   `json:"key"`
	Value   string   `json:"value"`
	Keypath []string `json:"keypath"`
	File    string   `json:"file"`
	Line    int      `json:"line"`
	Rule    *RuleRef `json:"rule,omitempty"`
}

// NewPair builds a pair whose keypath defaults to [key].
func NewPair(key, value string, keypath ...string) KeyValuePair {
	p := KeyValuePair{Key: key, Value: value}
	if len(keypath) == 0 {
		p.Keypath = []string{key}
	} else {
		p.Keypath = slices.Clone(keypath)
	}
	return p
}

func (p KeyValuePair) String() string {
	return p.Key + " = " + p.Value
}

func (p KeyValuePair) WithFile(file string) KeyValuePair {
	p.File = file
	return p
}

func (p KeyValuePair) WithLine(line int) KeyValuePair {
	p.Line = line
	return p
}

func (p KeyValuePair) WithKeypath(keypath []string) KeyValuePair {
	if len(keypath) == 0 {
		return p
	}
	p.Keypath = slices.Clone(keypath)
	return p
}

func (p KeyValuePair) WithKeyValue(key, value string) KeyValuePair {
	p.Key = key
	p.Value = value
	return p
}

func (p KeyValuePair) WithRule(r RuleRef) KeyValuePair {
	p.Rule = &r
	return p
}

// Finding is the externally visible record of a detected secret.
type Finding struct {
	Key         string   `json:"key"`
	Value       string   `json:"value"`
	File        string   `json:"file"`
	Line        int      `json:"line"`
	RuleID      string   `json:"rule_id"`
	Group       string   `json:"group"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Fingerprint string   `json:"fingerprint,omitempty"`
}
