package report

import (
	"encoding/json"
	"io"
	"slices"

	"github.com/adeptex/whispers/internal/types"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
	Properties       sarifProps   `json:"properties"`
}

type sarifProps struct {
	Group    string `json:"group"`
	Severity string `json:"severity"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLoc        `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevCritical, types.SevHigh:
		return "error"
	case types.SevMedium:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes findings as SARIF 2.1.0 to the provided writer.
// Values are never included; results carry the key and the rule message.
func WriteSARIF(w io.Writer, findings []types.Finding, version string) error {
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: "whispers", Version: version, Rules: []sarifRule{}}},
		Results: []sarifResult{},
	}
	var ids []string
	for _, f := range findings {
		idx := slices.Index(ids, f.RuleID)
		if idx < 0 {
			idx = len(ids)
			ids = append(ids, f.RuleID)
			run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
				ID:               f.RuleID,
				ShortDescription: sarifMessage{Text: f.Message},
				Properties:       sarifProps{Group: f.Group, Severity: string(f.Severity)},
			})
		}
		res := sarifResult{
			RuleID:    f.RuleID,
			RuleIndex: idx,
			Level:     sevToLevel(f.Severity),
			Message:   sarifMessage{Text: f.Message + ": " + f.Key},
			Locations: []sarifLoc{{
				PhysicalLocation: sarifPhys{
					ArtifactLocation: sarifArt{URI: f.File},
					Region:           sarifRegion{StartLine: f.Line},
				},
			}},
		}
		if f.Fingerprint != "" {
			res.PartialFingerprints = map[string]string{"whispers/v1": f.Fingerprint}
		}
		run.Results = append(run.Results, res)
	}
	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
