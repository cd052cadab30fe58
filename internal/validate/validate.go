package validate

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/blang/semver/v4"
	"github.com/xrash/smetrics"
)

var (
	reURI    = regexp.MustCompile(`(?i)^[:\w]+://.+`)
	rePath   = regexp.MustCompile(`(?i)^((([A-Z]|file|root):)?(\.+)?[/\\]+).*$`)
	reIaC    = regexp.MustCompile(`^![A-Za-z]+ .+`)
	reSemver = regexp.MustCompile(`^[\^~\-=vV<>]{0,3}([0-9]+\.){1,2}[0-9]+(\-.*)?$`)
	reSpaces = regexp.MustCompile(`\s+`)
	reNonAln = regexp.MustCompile(`[^a-z0-9]`)
)

const (
	printableWhitespace = " \t\n\r\x0b\x0c"
	stripChars          = " '\"\n\r\t"
	base64Alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="
)

// text converts supported inputs to a string. Integers are formatted,
// byte slices must hold valid UTF-8.
func text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		if !utf8.Valid(t) {
			return "", false
		}
		return string(t), true
	case int, int64, int32, uint, uint64, uint32:
		return fmt.Sprint(t), true
	}
	return "", false
}

// IsASCII reports whether every character of v is printable ASCII or whitespace.
func IsASCII(v any) bool {
	s, ok := text(v)
	if !ok {
		return false
	}
	for _, r := range s {
		if r >= 0x20 && r <= 0x7e {
			continue
		}
		if strings.ContainsRune(printableWhitespace, r) {
			continue
		}
		return false
	}
	return true
}

// DecodeBase64 decodes s leniently: characters outside the standard
// alphabet are discarded, padding is required.
func DecodeBase64(s string) ([]byte, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return nil, false
		}
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(base64Alphabet, s[i]) >= 0 {
			b.WriteByte(s[i])
		}
	}
	out, err := base64.StdEncoding.DecodeString(b.String())
	if err != nil {
		return nil, false
	}
	return out, true
}

func decodeAny(v any) ([]byte, bool) {
	switch t := v.(type) {
	case string:
		return DecodeBase64(t)
	case []byte:
		return DecodeBase64(string(t))
	}
	return nil, false
}

// IsBase64 reports whether v decodes to UTF-8 text.
func IsBase64(v any) bool {
	s, ok := v.(string)
	if !ok || s == "" {
		return false
	}
	out, ok := DecodeBase64(s)
	return ok && utf8.Valid(out)
}

// IsBase64Bytes reports whether v decodes to a non-empty byte sequence.
func IsBase64Bytes(v any) bool {
	out, ok := decodeAny(v)
	return ok && len(out) > 0
}

// IsURI reports whether v looks like scheme://rest with no whitespace.
func IsURI(v any) bool {
	s, ok := v.(string)
	if !ok || !IsASCII(s) {
		return false
	}
	if strings.ContainsAny(s, printableWhitespace) {
		return false
	}
	return reURI.MatchString(s)
}

// IsPath reports whether v looks like an absolute, relative or drive path.
func IsPath(v any) bool {
	s, ok := v.(string)
	if !ok || !IsASCII(s) {
		return false
	}
	return rePath.MatchString(s)
}

// IsIaC reports whether v looks like an intrinsic function reference such as "!Ref Name".
func IsIaC(v any) bool {
	s, ok := v.(string)
	if !ok || !IsASCII(s) {
		return false
	}
	return reIaC.MatchString(s)
}

// IsLuhn reports whether v is all digits and passes the mod-10 checksum.
func IsLuhn(v any) bool {
	s, ok := text(v)
	if !ok || s == "" || !IsASCII(s) {
		return false
	}
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// IsSemver reports whether s looks like a version, optionally prefixed by
// up to three range operators (^ ~ - = v < >).
func IsSemver(s string) bool {
	if !reSemver.MatchString(s) {
		return false
	}
	core := strings.TrimLeft(s, "^~-=vV<>")
	_, err := semver.ParseTolerant(core)
	return err == nil
}

// StripString trims surrounding whitespace and quotes.
func StripString(s string) string {
	return strings.Trim(s, stripChars)
}

// SimpleString lowercases s and replaces every non-alphanumeric character with "_".
func SimpleString(s string) string {
	s = StripString(s)
	s = strings.TrimRight(s, `\`)
	s = strings.ToLower(s)
	return reNonAln.ReplaceAllString(strings.TrimSpace(s), "_")
}

// TruncateAllSpace collapses whitespace runs into single spaces.
func TruncateAllSpace(s string) string {
	return reSpaces.ReplaceAllString(s, " ")
}

// SimilarStrings returns the Jaro-Winkler similarity of the simplified inputs.
func SimilarStrings(a, b string) float64 {
	a = strings.ReplaceAll(SimpleString(a), "_", "")
	b = strings.ReplaceAll(SimpleString(b), "_", "")
	if a == "" || b == "" {
		return 0
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

// IsSimilar reports whether a and b score at least threshold.
func IsSimilar(a, b string, threshold float64) bool {
	return SimilarStrings(a, b) >= threshold
}
