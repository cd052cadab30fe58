package engine

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adeptex/whispers/internal/config"
	"github.com/adeptex/whispers/internal/pairs"
	"github.com/adeptex/whispers/internal/rules"
	"github.com/adeptex/whispers/internal/types"
	xxhash "github.com/cespare/xxhash/v2"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// Config controls scan scope and filters.
type Config struct {
	// Root is a file or directory to scan.
	Root string
	App  config.AppConfig
	// DefaultExcludes skips dependency, build and VCS directories plus
	// lockfiles and generated artifacts.
	DefaultExcludes bool
	// MaxBytes skips larger files when positive.
	MaxBytes int64
	Log      logr.Logger
	Progress func()
}

// Result contains findings and basic scan statistics.
type Result struct {
	Findings     []types.Finding
	FilesScanned int
	Duration     time.Duration
}

// LoadRules compiles the rule set selected by the resolved configuration.
func LoadRules(app config.AppConfig) ([]rules.Rule, error) {
	return rules.LoadWithOptions(app.Rules, app.InlineRules, rules.Options{DefaultASCII: app.DefaultASCII})
}

// ScanSeq validates cfg, compiles rules and returns the lazy stream of
// detected pairs. Only configuration problems are returned as errors; files
// that fail to parse are logged and skipped.
func ScanSeq(cfg Config) (iter.Seq[types.KeyValuePair], error) {
	if cfg.Log.GetSink() == nil {
		cfg.Log = logr.Discard()
	}
	if _, err := os.Stat(cfg.Root); err != nil {
		return nil, errors.Wrap(err, "scan root")
	}
	rs, err := LoadRules(cfg.App)
	if err != nil {
		return nil, err
	}
	cfg.Log.V(1).Info("loaded rules", "count", len(rs))
	opts := pairs.Options{Log: cfg.Log}
	return func(yield func(types.KeyValuePair) bool) {
		for path := range Scope(cfg) {
			if cfg.Progress != nil {
				cfg.Progress()
			}
			for p := range DetectSecrets(rs, pairs.MakePairs(cfg.App, path, opts)) {
				if !yield(p) {
					return
				}
			}
		}
	}, nil
}

// PairsSeq streams the candidate pairs of every file in scope without
// running detection.
func PairsSeq(cfg Config) (iter.Seq[types.KeyValuePair], error) {
	if cfg.Log.GetSink() == nil {
		cfg.Log = logr.Discard()
	}
	if _, err := os.Stat(cfg.Root); err != nil {
		return nil, errors.Wrap(err, "scan root")
	}
	opts := pairs.Options{Log: cfg.Log}
	return func(yield func(types.KeyValuePair) bool) {
		for path := range Scope(cfg) {
			for p := range pairs.MakePairs(cfg.App, path, opts) {
				if !yield(p) {
					return
				}
			}
		}
	}, nil
}

// Scan runs a scan and returns findings along with timing and counts.
func Scan(cfg Config) (Result, error) {
	var result Result
	progress := cfg.Progress
	cfg.Progress = func() {
		result.FilesScanned++
		if progress != nil {
			progress()
		}
	}
	seq, err := ScanSeq(cfg)
	if err != nil {
		return result, err
	}
	started := time.Now()
	for p := range seq {
		result.Findings = append(result.Findings, ToFinding(p))
	}
	result.Duration = time.Since(started)
	return result, nil
}

// DetectSecrets tests every candidate against every rule in order and yields
// the candidate once per matching rule, with the rule attached and the line
// number resolved.
func DetectSecrets(rs []rules.Rule, candidates iter.Seq[types.KeyValuePair]) iter.Seq[types.KeyValuePair] {
	return func(yield func(types.KeyValuePair) bool) {
		for p := range candidates {
			for _, r := range rs {
				if !r.Matches(p) {
					continue
				}
				hit := p.WithRule(r.Ref())
				hit = hit.WithLine(FindLineNumber(hit))
				if !yield(hit) {
					return
				}
			}
		}
	}
}

// valuePrefixLen bounds the part of the value searched for on a line.
const valuePrefixLen = 16

// FindLineNumber returns pair.Line when set. Otherwise it re-reads pair.File
// and looks for the keypath segments followed by the start of the value,
// consuming as many of them as appear on each line in turn. It returns the
// line where the last item was found, or 0 when the sequence is not fully
// found.
func FindLineNumber(pair types.KeyValuePair) int {
	if pair.Line != 0 {
		return pair.Line
	}
	if pair.File == "" {
		return 0
	}
	f, err := os.Open(pair.File)
	if err != nil {
		return 0
	}
	defer f.Close()

	value, _, _ := strings.Cut(pair.Value, "\n")
	if r := []rune(value); len(r) > valuePrefixLen {
		value = string(r[:valuePrefixLen])
	}
	find := append(append([]string(nil), pair.Keypath...), value)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	found := 0
	for lineno := 1; sc.Scan(); lineno++ {
		line := sc.Text()
		n := 0
		for _, item := range find {
			if !strings.Contains(line, item) {
				break
			}
			n++
			found = lineno
		}
		find = find[n:]
		if len(find) == 0 {
			return found
		}
	}
	return 0
}

// ToFinding converts a detected pair into the output record.
func ToFinding(p types.KeyValuePair) types.Finding {
	f := types.Finding{
		Key:   p.Key,
		Value: p.Value,
		File:  p.File,
		Line:  p.Line,
	}
	if p.Rule != nil {
		f.RuleID = p.Rule.ID
		f.Group = p.Rule.Group
		f.Message = p.Rule.Message
		f.Severity = p.Rule.Severity
	}
	f.Fingerprint = Fingerprint(f)
	return f
}

// Fingerprint is a stable hash of where and what was found.
func Fingerprint(f types.Finding) string {
	d := xxhash.New()
	for _, s := range []string{f.File, strconv.Itoa(f.Line), f.RuleID, f.Key, f.Value} {
		_, _ = d.WriteString(s)
		_, _ = d.WriteString("\x00")
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
