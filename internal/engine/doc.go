// Package engine wires scope enumeration, the per-file pair pipeline and rule
// matching into a single lazy scan. This package is internal; external
// consumers should use the stable facade in pkg/core.
package engine
