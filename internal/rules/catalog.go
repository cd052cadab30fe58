package rules

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/adeptex/whispers/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yml
var builtinFS embed.FS

// Catalog returns the built-in rule records in catalog order: files sorted
// by name, documents and records in file order.
var Catalog = sync.OnceValues(func() ([]RuleRecord, error) {
	return readCatalog(builtinFS, "builtin")
})

func readCatalog(fsys fs.FS, dir string) ([]RuleRecord, error) {
	names, err := fs.Glob(fsys, dir+"/*.yml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	var out []RuleRecord
	for _, name := range names {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, err
		}
		recs, err := DecodeRecords(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

// DecodeRecords reads every YAML document in r as a list of rule records.
func DecodeRecords(r io.Reader) ([]RuleRecord, error) {
	dec := yaml.NewDecoder(r)
	var out []RuleRecord
	for {
		var doc []RuleRecord
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, doc...)
	}
}

// Filter selects built-in rules. Empty include lists mean "all".
type Filter struct {
	IncludeIDs        []string
	ExcludeIDs        []string
	IncludeGroups     []string
	ExcludeGroups     []string
	IncludeSeverities []types.Severity
	ExcludeSeverities []types.Severity
}

func (f Filter) allows(r Rule) bool {
	if slices.Contains(f.ExcludeIDs, r.ID) {
		return false
	}
	if len(f.IncludeIDs) > 0 && !slices.Contains(f.IncludeIDs, r.ID) {
		return false
	}
	if slices.Contains(f.ExcludeGroups, r.Group) {
		return false
	}
	if len(f.IncludeGroups) > 0 && !slices.Contains(f.IncludeGroups, r.Group) {
		return false
	}
	if slices.Contains(f.ExcludeSeverities, r.Severity) {
		return false
	}
	if len(f.IncludeSeverities) > 0 && !slices.Contains(f.IncludeSeverities, r.Severity) {
		return false
	}
	return true
}

// Options adjust compiled rules.
type Options struct {
	// DefaultASCII is applied to every specification that leaves isAscii unset.
	DefaultASCII TriState
}

// Load returns the built-in rules selected by filter followed by the inline
// rules, which bypass filtering. Rules sharing an id are all kept.
func Load(filter Filter, inline []RuleRecord) ([]Rule, error) {
	return LoadWithOptions(filter, inline, Options{})
}

func LoadWithOptions(filter Filter, inline []RuleRecord, opts Options) ([]Rule, error) {
	catalog, err := Catalog()
	if err != nil {
		return nil, fmt.Errorf("load builtin rules: %w", err)
	}
	return load(catalog, filter, inline, opts)
}

// load compiles every catalog record before filtering so a malformed record
// fails the load even when the filter would not select it.
func load(catalog []RuleRecord, filter Filter, inline []RuleRecord, opts Options) ([]Rule, error) {
	var out []Rule
	for _, rec := range catalog {
		r, err := Parse(rec)
		if err != nil {
			return nil, err
		}
		if filter.allows(r) {
			out = append(out, r.withDefaults(opts))
		}
	}
	for _, rec := range inline {
		r, err := Parse(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r.withDefaults(opts))
	}
	return out, nil
}

func (r Rule) withDefaults(opts Options) Rule {
	if opts.DefaultASCII == Unset {
		return r
	}
	for _, s := range []**Specification{&r.Key, &r.Value} {
		if *s == nil || (*s).IsASCII != Unset {
			continue
		}
		cp := **s
		cp.IsASCII = opts.DefaultASCII
		*s = &cp
	}
	return r
}

// IDs lists the unique built-in rule ids, sorted.
func IDs() ([]string, error) {
	return catalogProp(func(r RuleRecord) string { return r.ID })
}

// Groups lists the unique built-in rule groups, sorted.
func Groups() ([]string, error) {
	return catalogProp(func(r RuleRecord) string { return r.Group })
}

func catalogProp(prop func(RuleRecord) string) ([]string, error) {
	catalog, err := Catalog()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range catalog {
		v := strings.TrimSpace(prop(rec))
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
