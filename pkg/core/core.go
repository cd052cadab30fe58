package core

import (
	"github.com/adeptex/whispers/internal/config"
	"github.com/adeptex/whispers/internal/engine"
	"github.com/adeptex/whispers/internal/rules"
	"github.com/adeptex/whispers/internal/types"
)

// Re-export selected internal types as a stable public API surface.
type Config = engine.Config
type Result = engine.Result
type Finding = types.Finding
type FileConfig = config.FileConfig
type Section = config.Section

// Resolve compiles a file-shaped configuration into the scan filters.
func Resolve(fc FileConfig) (config.AppConfig, error) {
	return config.Resolve(fc)
}

// Scan is the stable entrypoint for other programs.
func Scan(cfg Config) ([]Finding, error) {
	res, err := engine.Scan(cfg)
	if err != nil {
		return nil, err
	}
	return res.Findings, nil
}

// ScanWithStats returns findings along with timing and file counts.
func ScanWithStats(cfg Config) (Result, error) {
	return engine.Scan(cfg)
}

// RuleIDs returns the ids of the built-in rules.
func RuleIDs() []string {
	ids, _ := rules.IDs()
	return ids
}
