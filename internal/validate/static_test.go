package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsStatic(t *testing.T) {
	cases := []struct {
		key   string
		value any
		want  bool
	}{
		{"", nil, false},
		{"key", 1234, false},
		{"key", "", false},
		{"key", "$value", true},
		{"key", "$$Value", true},
		{"key", "$VALUE", false},
		{"key", "$$VALUE", false},
		{"key", "${value}", false},
		{"key", "${VALUE}", false},
		{"key", "{{value}}", false},
		{"key", "prefix {{value}} suffix", false},
		{"key", "{value}", false},
		{"key", "{whispers~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~}", false},
		{"key", "{d2hpc3BlcnN+fn5+fn5+fn5+fn5+fn5+fn5+fn5+fn5+fn5+fn5+fn5+fn5+}", true},
		{"key", "${value$}", false},
		{"key", "%APPDATA%", false},
		{"key", "<value>", false},
		{"key", "null", false},
		{"key", "NULL", false},
		{"key", "!Ref Value", false},
		{"key", "/system/path/value", false},
		{"thesame", "THESAME", false},
		{"label", "WhispersLabel", false},
		{"_key", "-key", false},
		{"_secret_value_placeholder_", "----SECRET-VALUE-PLACEHOLDER-", false},
		{"_secret_value_placeholder_", "----SECRET-VALUE-PLACEHOLDER--", true},
		{"SECRET_VALUE_KEY", "whispers", true},
		{"whispers", "SECRET_VALUE_PLACEHOLDER", true},
		{"secret", "whispers", true},
		{"secret", "password123", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsStatic(tc.key, tc.value), "IsStatic(%q, %#v)", tc.key, tc.value)
	}
}

func TestIsStatic_PlaceholderShapesIgnoreKey(t *testing.T) {
	for _, key := range []string{"password", "token", "x", ""} {
		for _, v := range []string{"${anything}", "{{ .Values.secret }}", "<changeme>"} {
			assert.False(t, IsStatic(key, v), "IsStatic(%q, %q)", key, v)
		}
	}
}
