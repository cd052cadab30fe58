package core_test

import (
	"fmt"
	"os"

	"github.com/adeptex/whispers/pkg/core"
)

// ExampleScan demonstrates a scan restricted to critical YAML findings.
func ExampleScan() {
	app, err := core.Resolve(core.FileConfig{
		Include: &core.Section{Files: []string{"*.yml"}, Severity: []string{"Critical"}},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return
	}

	findings, err := core.Scan(core.Config{Root: ".", App: app, DefaultExcludes: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		return
	}

	if len(findings) == 0 {
		fmt.Println("No secrets found.")
	} else {
		fmt.Printf("Found %d secrets.\n", len(findings))
		_ = core.MarshalFindings(os.Stdout, findings)
	}
}

// ExampleScanWithStats shows how to retrieve execution statistics.
func ExampleScanWithStats() {
	app, _ := core.Resolve(core.FileConfig{})
	result, err := core.ScanWithStats(core.Config{Root: ".", App: app, MaxBytes: 1 << 20})
	if err != nil {
		panic(err)
	}
	fmt.Printf("Scanned %d files in %s\n", result.FilesScanned, result.Duration)
	fmt.Printf("Found %d secrets\n", len(result.Findings))
}
