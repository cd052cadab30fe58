package report

import (
	"encoding/json"
	"io"

	"github.com/adeptex/whispers/internal/types"
)

// WriteJSON writes findings as an indented JSON array. An empty scan
// produces [] rather than null.
func WriteJSON(w io.Writer, findings []types.Finding) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// WritePairs writes candidate pairs one JSON object per line.
func WritePairs(w io.Writer, p types.KeyValuePair) error {
	return json.NewEncoder(w).Encode(p)
}

// ShouldFail reports whether any finding is at or above threshold.
// An empty threshold never fails.
func ShouldFail(findings []types.Finding, threshold types.Severity) bool {
	if threshold == "" {
		return false
	}
	limit := threshold.Rank()
	for _, f := range findings {
		if f.Severity.Rank() >= limit {
			return true
		}
	}
	return false
}
