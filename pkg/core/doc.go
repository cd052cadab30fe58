// Package core provides a small, stable facade over the whispers engine for
// programs that embed the scanner. It re-exports a narrow API surface so
// callers can depend on a stable import path without importing internal
// packages.
//
// Example:
//
//	app, _ := core.Resolve(core.FileConfig{})
//	findings, err := core.Scan(core.Config{Root: ".", App: app})
//	if err != nil { /* handle */ }
//	_ = core.MarshalFindings(os.Stdout, findings)
package core
