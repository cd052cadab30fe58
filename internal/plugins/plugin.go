package plugins

import (
	"errors"
	"iter"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/adeptex/whispers/internal/types"
	"github.com/go-logr/logr"
)

// ErrUnsupported is returned by New for KindNone.
var ErrUnsupported = errors.New("unsupported file type")

// Plugin extracts raw candidate pairs from one file. The sequence is lazy and
// finite; a non-nil error is yielded at most once and ends it.
type Plugin interface {
	Pairs(path string) iter.Seq2[types.KeyValuePair, error]
}

// Kind identifies a file format handler.
type Kind int

const (
	KindNone Kind = iota
	KindYAML
	KindJSON
	KindXML
	KindNPMRC
	KindPyPIRC
	KindPip
	KindGradle
	KindConfig
	KindProperties
	KindShell
	KindDockerfile
	KindDockercfg
	KindHtpasswd
	KindPlaintext
	KindHTML
	KindTOML
	KindHCL
	KindElixir
)

var kindNames = [...]string{
	KindNone:       "none",
	KindYAML:       "yaml",
	KindJSON:       "json",
	KindXML:        "xml",
	KindNPMRC:      "npmrc",
	KindPyPIRC:     "pypirc",
	KindPip:        "pip",
	KindGradle:     "gradle",
	KindConfig:     "config",
	KindProperties: "properties",
	KindShell:      "shell",
	KindDockerfile: "dockerfile",
	KindDockercfg:  "dockercfg",
	KindHtpasswd:   "htpasswd",
	KindPlaintext:  "plaintext",
	KindHTML:       "html",
	KindTOML:       "toml",
	KindHCL:        "hcl",
	KindElixir:     "elixir",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

var rePrivKeyFile = regexp.MustCompile(`^(rsa|dsa|ed25519|ecdsa|pem|crt|cer|ca-bundle|p7b|p7c|p7s|ppk|pkcs12|pfx|p12)`)

type selector struct {
	kind  Kind
	match func(name, filetype string) bool
}

func oneOf(types ...string) func(string, string) bool {
	return func(_, ft string) bool { return slices.Contains(types, ft) }
}

func prefixed(prefixes ...string) func(string, string) bool {
	return func(_, ft string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(ft, p) {
				return true
			}
		}
		return false
	}
}

func named(n string) func(string, string) bool {
	return func(name, _ string) bool { return name == n }
}

// selectors is evaluated top to bottom; the first match wins.
var selectors = []selector{
	{KindYAML, oneOf("yaml", "yml")},
	{KindJSON, oneOf("json")},
	{KindXML, oneOf("xml")},
	{KindNPMRC, prefixed("npmrc")},
	{KindPyPIRC, prefixed("pypirc")},
	{KindPip, named("pip.conf")},
	{KindGradle, named("build.gradle")},
	{KindConfig, oneOf("conf", "cfg", "cnf", "config", "ini", "env", "credentials", "s3cfg")},
	{KindProperties, oneOf("properties")},
	{KindShell, prefixed("sh", "bash", "zsh", "env")},
	{KindDockerfile, func(name, _ string) bool { return strings.Contains(strings.ToLower(name), "dockerfile") }},
	{KindDockercfg, oneOf("dockercfg")},
	{KindHtpasswd, prefixed("htpasswd")},
	{KindPlaintext, oneOf("txt")},
	{KindHTML, prefixed("htm")},
	{KindTOML, oneOf("toml")},
	{KindHCL, oneOf("hcl", "tf", "tfvars")},
	{KindElixir, oneOf("ex", "exs")},
	{KindPlaintext, func(_, ft string) bool { return rePrivKeyFile.MatchString(ft) }},
}

// FileType returns the part of the base name after the last dot, ignoring a
// trailing .dist or .template suffix. Names without a dot are returned whole.
func FileType(path string) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext == ".dist" || ext == ".template" {
		name = strings.TrimSuffix(name, ext)
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Select picks the handler for path, or KindNone.
func Select(path string) Kind {
	name := filepath.Base(path)
	ft := FileType(path)
	for _, s := range selectors {
		if s.match(name, ft) {
			return s.kind
		}
	}
	return KindNone
}

// New returns the plugin for kind. log receives per-line parse problems that
// do not end the file's sequence.
func New(kind Kind, log logr.Logger) (Plugin, error) {
	switch kind {
	case KindYAML:
		return YAML{}, nil
	case KindJSON:
		return JSON{}, nil
	case KindXML:
		return XML{}, nil
	case KindNPMRC:
		return NPMRC{}, nil
	case KindPyPIRC:
		return INI{}, nil
	case KindPip:
		return INI{Common: true}, nil
	case KindGradle:
		return Gradle{}, nil
	case KindConfig:
		return Config{}, nil
	case KindProperties:
		return Properties{}, nil
	case KindShell:
		return Shell{Log: log}, nil
	case KindDockerfile:
		return Dockerfile{Log: log}, nil
	case KindDockercfg:
		return JSON{}, nil
	case KindHtpasswd:
		return Htpasswd{}, nil
	case KindPlaintext:
		return Plaintext{}, nil
	case KindHTML:
		return HTML{}, nil
	case KindTOML:
		return TOML{}, nil
	case KindHCL:
		return HCL{}, nil
	case KindElixir:
		return Elixir{}, nil
	}
	return nil, ErrUnsupported
}

// fail yields a single error.
func fail(err error) iter.Seq2[types.KeyValuePair, error] {
	return func(yield func(types.KeyValuePair, error) bool) {
		yield(types.KeyValuePair{}, err)
	}
}

// lift adapts an error-free sequence to the plugin contract.
func lift(seq iter.Seq[types.KeyValuePair]) iter.Seq2[types.KeyValuePair, error] {
	return func(yield func(types.KeyValuePair, error) bool) {
		for p := range seq {
			if !yield(p, nil) {
				return
			}
		}
	}
}
