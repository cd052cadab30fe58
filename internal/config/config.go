package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/adeptex/whispers/internal/rules"
	"github.com/adeptex/whispers/internal/types"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig marks configuration that cannot be parsed or resolved.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrNotFound is returned when no config file exists at a searched location.
	ErrNotFound = errors.New("config not found")
)

// DefaultIncludeFiles is used when no include globs are configured.
var DefaultIncludeFiles = []string{"**/*"}

// FileConfig is the on-disk YAML configuration shape for whispers.
type FileConfig struct {
	Include *Section `yaml:"include,omitempty"`
	Exclude *Section `yaml:"exclude,omitempty"`
	// Rules holds inline rule records; plain ids are added to include.rules.
	Rules        RuleList `yaml:"rules,omitempty"`
	ASCIIDefault *bool    `yaml:"ascii_default,omitempty"`
}

// Section is an include or exclude block. Include files are globs; exclude
// files, keys and values are regex fragments joined by alternation.
type Section struct {
	Files    []string `yaml:"files,omitempty"`
	Keys     []string `yaml:"keys,omitempty"`
	Values   []string `yaml:"values,omitempty"`
	Rules    RuleList `yaml:"rules,omitempty"`
	Groups   []string `yaml:"groups,omitempty"`
	Severity []string `yaml:"severity,omitempty"`
}

// RuleList accepts a mix of rule ids and inline rule records.
type RuleList struct {
	IDs    []string
	Inline []rules.RuleRecord
}

func (l RuleList) IsZero() bool {
	return len(l.IDs) == 0 && len(l.Inline) == 0
}

func (l *RuleList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode && n.Tag != "!!null" {
		// a single id or a comma separated list
		l.IDs = append(l.IDs, SplitList(n.Value)...)
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		if n.Tag == "!!null" {
			return nil
		}
		return fmt.Errorf("line %d: rules must be a list", n.Line)
	}
	for _, item := range n.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			l.IDs = append(l.IDs, item.Value)
		case yaml.MappingNode:
			var rec rules.RuleRecord
			if err := item.Decode(&rec); err != nil {
				return err
			}
			l.Inline = append(l.Inline, rec)
		default:
			return fmt.Errorf("line %d: rule must be an id or a mapping", item.Line)
		}
	}
	return nil
}

func (l RuleList) MarshalYAML() (any, error) {
	out := make([]any, 0, len(l.IDs)+len(l.Inline))
	for _, id := range l.IDs {
		out = append(out, id)
	}
	for _, rec := range l.Inline {
		out = append(out, rec)
	}
	return out, nil
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return cfg, err
	}
	return Parse(b)
}

// Parse decodes YAML config bytes. An empty document is a valid empty config.
func Parse(b []byte) (FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// LoadLocal searches for a project-local config file in the given root.
// It supports .whispers.yml/.yaml and whispers.yml/.yaml.
func LoadLocal(root string) (FileConfig, error) {
	for _, name := range []string{".whispers.yml", ".whispers.yaml", "whispers.yml", "whispers.yaml"} {
		p := filepath.Join(root, name)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return LoadFile(p)
		}
	}
	return FileConfig{}, fmt.Errorf("%w: no local config in %s", ErrNotFound, root)
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return FileConfig{}, fmt.Errorf("%w: no config dir", ErrNotFound)
	}
	p := filepath.Join(base, "whispers", "config.yml")
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return FileConfig{}, fmt.Errorf("%w: no global config", ErrNotFound)
}

// Merge overlays every non-empty field of over onto fc.
func (fc FileConfig) Merge(over FileConfig) FileConfig {
	out := fc
	out.Include = mergeSection(fc.Include, over.Include)
	out.Exclude = mergeSection(fc.Exclude, over.Exclude)
	if !over.Rules.IsZero() {
		out.Rules = over.Rules
	}
	if over.ASCIIDefault != nil {
		out.ASCIIDefault = over.ASCIIDefault
	}
	return out
}

func mergeSection(base, over *Section) *Section {
	if over == nil {
		return base
	}
	if base == nil {
		cp := *over
		return &cp
	}
	out := *base
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	pick(&out.Files, over.Files)
	pick(&out.Keys, over.Keys)
	pick(&out.Values, over.Values)
	pick(&out.Groups, over.Groups)
	pick(&out.Severity, over.Severity)
	if !over.Rules.IsZero() {
		out.Rules = over.Rules
	}
	return &out
}

// AppConfig is the resolved run configuration. It is not modified after Resolve.
type AppConfig struct {
	IncludeFiles  []string
	ExcludeFiles  *regexp.Regexp
	ExcludeKeys   *regexp.Regexp
	ExcludeValues *regexp.Regexp
	Rules         rules.Filter
	InlineRules   []rules.RuleRecord
	DefaultASCII  rules.TriState
}

// Resolve compiles a FileConfig into an AppConfig.
func Resolve(fc FileConfig) (AppConfig, error) {
	inc, exc := Section{}, Section{}
	if fc.Include != nil {
		inc = *fc.Include
	}
	if fc.Exclude != nil {
		exc = *fc.Exclude
	}
	app := AppConfig{
		IncludeFiles: slices.Clone(inc.Files),
		InlineRules:  slices.Concat(inc.Rules.Inline, fc.Rules.Inline),
	}
	if len(app.IncludeFiles) == 0 {
		app.IncludeFiles = slices.Clone(DefaultIncludeFiles)
	}
	var err error
	if app.ExcludeFiles, err = unify("exclude.files", exc.Files); err != nil {
		return AppConfig{}, err
	}
	if app.ExcludeKeys, err = unify("exclude.keys", exc.Keys); err != nil {
		return AppConfig{}, err
	}
	if app.ExcludeValues, err = unify("exclude.values", exc.Values); err != nil {
		return AppConfig{}, err
	}
	if len(exc.Rules.Inline) > 0 {
		return AppConfig{}, fmt.Errorf("%w: exclude.rules accepts rule ids only", ErrInvalidConfig)
	}
	app.Rules = rules.Filter{
		IncludeIDs:    slices.Concat(inc.Rules.IDs, fc.Rules.IDs),
		ExcludeIDs:    slices.Clone(exc.Rules.IDs),
		IncludeGroups: slices.Clone(inc.Groups),
		ExcludeGroups: slices.Clone(exc.Groups),
	}
	if app.Rules.IncludeSeverities, err = severities("include.severity", inc.Severity); err != nil {
		return AppConfig{}, err
	}
	if len(app.Rules.IncludeSeverities) == 0 {
		app.Rules.IncludeSeverities = types.AllSeverities()
	}
	if app.Rules.ExcludeSeverities, err = severities("exclude.severity", exc.Severity); err != nil {
		return AppConfig{}, err
	}
	if fc.ASCIIDefault != nil {
		app.DefaultASCII = rules.Of(*fc.ASCIIDefault)
	}
	return app, nil
}

func unify(field string, fragments []string) (*regexp.Regexp, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + strings.Join(fragments, "|") + ")")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
	}
	return re, nil
}

func severities(field string, names []string) ([]types.Severity, error) {
	var out []types.Severity
	for _, n := range names {
		sev, err := types.ParseSeverity(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
		}
		out = append(out, sev)
	}
	return out, nil
}

// ExcludedKey reports whether any keypath segment matches the exclude-keys pattern.
func (c AppConfig) ExcludedKey(keypath []string) bool {
	if c.ExcludeKeys == nil {
		return false
	}
	return slices.ContainsFunc(keypath, c.ExcludeKeys.MatchString)
}

// ExcludedValue reports whether value matches the exclude-values pattern.
func (c AppConfig) ExcludedValue(value string) bool {
	return c.ExcludeValues != nil && c.ExcludeValues.MatchString(value)
}

// ExcludedFile reports whether path matches the exclude-files pattern.
func (c AppConfig) ExcludedFile(path string) bool {
	return c.ExcludeFiles != nil && c.ExcludeFiles.MatchString(filepath.ToSlash(path))
}

// SplitList splits a comma separated flag or config value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
