package plugins

import (
	"bytes"
	"iter"
	"os"
	"strings"

	"github.com/adeptex/whispers/internal/types"
	"github.com/adeptex/whispers/internal/validate"
	"github.com/go-ini/ini"
	"github.com/pkg/errors"
)

var iniOptions = ini.LoadOptions{
	IgnoreInlineComment:        true,
	AllowPythonMultilineValues: true,
	SkipUnrecognizableLines:    true,
	AllowBooleanKeys:           true,
	UnescapeValueDoubleQuotes:  true,
}

// INI extracts every key of every section. Keys outside the default section
// carry the section name in their keypath. With Common set, values are also
// scanned for URI credentials, as pip index URLs often embed them.
type INI struct {
	Common bool
}

func (p INI) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	b, err := os.ReadFile(path)
	if err != nil {
		return fail(errors.Wrap(err, "read ini"))
	}
	return p.pairs(b)
}

func (p INI) pairs(b []byte) iter.Seq2[types.KeyValuePair, error] {
	f, err := ini.LoadSources(iniOptions, b)
	if err != nil {
		return fail(errors.Wrap(err, "parse ini"))
	}
	return lift(func(yield func(types.KeyValuePair) bool) {
		for _, sec := range f.Sections() {
			for _, key := range sec.Keys() {
				kp := []string{key.Name()}
				if sec.Name() != ini.DefaultSection {
					kp = []string{sec.Name(), key.Name()}
				}
				if !yield(types.NewPair(key.Name(), key.Value(), kp...)) {
					return
				}
				if !p.Common {
					continue
				}
				for c := range CommonPairs(key.Value(), kp, 0) {
					if !yield(c) {
						return
					}
				}
			}
		}
	})
}

// Config handles generic configuration files: XML when the first line is an
// XML declaration, INI when the content starts with a section header, and
// key=value lines otherwise.
type Config struct{}

func (Config) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	b, err := os.ReadFile(path)
	if err != nil {
		return fail(errors.Wrap(err, "read config"))
	}
	first, _, _ := bytes.Cut(b, []byte("\n"))
	switch {
	case bytes.Contains(first, []byte("<?xml ")):
		return XML{}.Pairs(path)
	case hasSectionHeader(b):
		return INI{}.pairs(b)
	}
	return lift(keyValueLines(b))
}

// hasSectionHeader reports whether the first significant line is [section].
func hasSectionHeader(b []byte) bool {
	sc := newLineScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		return strings.HasPrefix(line, "[") && strings.Contains(line, "]")
	}
	return false
}

func keyValueLines(b []byte) iter.Seq[types.KeyValuePair] {
	return func(yield func(types.KeyValuePair) bool) {
		sc := newLineScanner(bytes.NewReader(b))
		for lineno := 1; sc.Scan(); lineno++ {
			k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
			if !ok {
				continue
			}
			k, v = validate.StripString(k), validate.StripString(v)
			if v == "" {
				continue
			}
			if !yield(types.NewPair(k, v).WithLine(lineno)) {
				return
			}
		}
	}
}
