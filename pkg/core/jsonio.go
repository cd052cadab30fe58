package core

import (
	"encoding/json"
	"io"

	"github.com/adeptex/whispers/internal/report"
)

// MarshalFindings pretty-prints findings as JSON for humans or pipelines.
func MarshalFindings(w io.Writer, findings []Finding) error {
	return report.WriteJSON(w, findings)
}

// UnmarshalFindings decodes findings JSON, useful for ingestion tests.
func UnmarshalFindings(r io.Reader) ([]Finding, error) {
	var fs []Finding
	if err := json.NewDecoder(r).Decode(&fs); err != nil {
		return nil, err
	}
	return fs, nil
}
