package validate

import (
	"regexp"
	"strings"
)

var reEnvVar = regexp.MustCompile(`^\$\$?\{?[A-Z0-9_]+\}?$`)

// IsStatic reports whether value looks like a hardcoded literal rather than a
// variable reference, template placeholder, path or self-referencing dummy.
func IsStatic(key string, value any) bool {
	s, ok := value.(string)
	if !ok || s == "" {
		return false
	}
	if strings.EqualFold(s, "null") {
		return false
	}
	if reEnvVar.MatchString(s) {
		return false
	}
	if wrapped(s, "%", "%") || wrapped(s, "${", "}") {
		return false
	}
	if wrapped(s, "{", "}") {
		// long braced base64 is a token, anything else a placeholder
		return len(s) > 50 && IsBase64Bytes(s[1:len(s)-1])
	}
	if strings.Contains(s, "{{") && strings.Contains(s, "}}") {
		return false
	}
	if wrapped(s, "<", ">") {
		return false
	}
	sk, sv := SimpleString(key), SimpleString(s)
	if sk == sv || strings.HasSuffix(sv, sk) {
		return false
	}
	if IsIaC(s) || IsPath(s) {
		return false
	}
	return true
}

func wrapped(s, prefix, suffix string) bool {
	return strings.HasPrefix(s, prefix) && strings.HasSuffix(s, suffix)
}
