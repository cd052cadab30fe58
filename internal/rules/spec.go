package rules

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/adeptex/whispers/internal/validate"
	"gopkg.in/yaml.v3"
)

// TriState is an optional boolean predicate: Unset means "do not check".
type TriState int

const (
	Unset TriState = iota
	Required
	Forbidden
)

// Of converts a plain boolean into Required or Forbidden.
func Of(b bool) TriState {
	if b {
		return Required
	}
	return Forbidden
}

// Allows reports whether an observed predicate result satisfies t.
func (t TriState) Allows(observed bool) bool {
	switch t {
	case Required:
		return observed
	case Forbidden:
		return !observed
	}
	return true
}

func (t TriState) String() string {
	switch t {
	case Required:
		return "true"
	case Forbidden:
		return "false"
	}
	return "unset"
}

func (t *TriState) UnmarshalYAML(n *yaml.Node) error {
	if n.Tag == "!!null" {
		*t = Unset
		return nil
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return fmt.Errorf("line %d: expected boolean, got %q", n.Line, n.Value)
	}
	*t = Of(b)
	return nil
}

func (t TriState) MarshalYAML() (any, error) {
	switch t {
	case Required:
		return true, nil
	case Forbidden:
		return false, nil
	}
	return nil, nil
}

// SpecRecord is the YAML form of a key or value specification.
type SpecRecord struct {
	Regex      string   `yaml:"regex,omitempty"`
	IgnoreCase bool     `yaml:"ignorecase,omitempty"`
	MinLen     int      `yaml:"minlen,omitempty"`
	IsBase64   TriState `yaml:"isBase64,omitempty"`
	IsASCII    TriState `yaml:"isAscii,omitempty"`
	IsURI      TriState `yaml:"isUri,omitempty"`
	IsLuhn     TriState `yaml:"isLuhn,omitempty"`
	IsSemver   TriState `yaml:"isSemver,omitempty"`
}

var specFields = map[string]bool{
	"regex": true, "ignorecase": true, "minlen": true,
	"isBase64": true, "isAscii": true, "isUri": true, "isLuhn": true, "isSemver": true,
}

// Specification is a compiled predicate over a single pair field.
// The zero value matches every target.
type Specification struct {
	Regex    *regexp.Regexp
	MinLen   int
	IsBase64 TriState
	IsASCII  TriState
	IsURI    TriState
	IsLuhn   TriState
	IsSemver TriState
}

// Compile validates r and anchors its regex at the start of the target.
func (r SpecRecord) Compile() (*Specification, error) {
	s := &Specification{
		MinLen:   r.MinLen,
		IsBase64: r.IsBase64,
		IsASCII:  r.IsASCII,
		IsURI:    r.IsURI,
		IsLuhn:   r.IsLuhn,
		IsSemver: r.IsSemver,
	}
	if r.MinLen < 0 {
		return nil, fmt.Errorf("minlen must not be negative: %d", r.MinLen)
	}
	if r.Regex != "" {
		expr := "^(?:" + r.Regex + ")"
		if r.IgnoreCase {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("regex %q: %w", r.Regex, err)
		}
		s.Regex = re
	}
	return s, nil
}

// Matches applies length, regex, base64 gate and tri-state predicates in order.
func (s *Specification) Matches(target string) bool {
	if utf8.RuneCountInString(target) < s.MinLen {
		return false
	}
	if s.Regex != nil && !s.Regex.MatchString(target) {
		return false
	}
	var subject any = target
	switch s.IsBase64 {
	case Required:
		decoded, ok := s.decode(target)
		if !ok {
			return false
		}
		subject = decoded
	case Forbidden:
		if _, ok := s.decode(target); ok {
			return false
		}
	}
	if !s.IsASCII.Allows(validate.IsASCII(subject)) {
		return false
	}
	if !s.IsURI.Allows(validate.IsURI(subject)) {
		return false
	}
	if !s.IsLuhn.Allows(validate.IsLuhn(subject)) {
		return false
	}
	if s.IsSemver != Unset {
		str, _ := subject.(string)
		if !s.IsSemver.Allows(validate.IsSemver(str)) {
			return false
		}
	}
	return true
}

// decode yields text unless isAscii is explicitly forbidden, in which case
// the raw bytes are kept.
func (s *Specification) decode(target string) (any, bool) {
	if s.IsASCII != Forbidden {
		if !validate.IsBase64(target) {
			return nil, false
		}
		out, _ := validate.DecodeBase64(target)
		return string(out), true
	}
	if !validate.IsBase64Bytes(target) {
		return nil, false
	}
	out, _ := validate.DecodeBase64(target)
	return out, true
}
