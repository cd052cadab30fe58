package whispers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adeptex/whispers/internal/config"
	"github.com/adeptex/whispers/internal/engine"
	"github.com/adeptex/whispers/internal/logging"
	"github.com/adeptex/whispers/internal/report"
	"github.com/adeptex/whispers/internal/types"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

type scanOptions struct {
	configPath string
	output     string
	logLevel   string
	logFile    string

	rules, xrules       string
	groups, xgroups     string
	severity, xseverity string
	files, xfiles       string
	xkeys, xvalues      string
	asciiDefault        bool

	json, sarif, table bool
	showValues         bool
	noColor            bool
	dump               bool
	failOn             string
	exitCode           int

	defaultExcludes bool
	maxBytes        int64
}

func newScanCmd() *cobra.Command {
	o := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a file or directory for secrets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return o.run(cmd, root)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", "", "config file (merged over global and project configs)")
	f.StringVarP(&o.output, "output", "o", "", "write results to this file instead of stdout")
	f.StringVar(&o.logLevel, "log-level", "error", "log level: debug|info|warn|error")
	f.StringVar(&o.logFile, "log-file", "", "write logs to this file instead of stderr")

	f.StringVarP(&o.rules, "rules", "r", "", "csv of rule IDs to report")
	f.StringVarP(&o.xrules, "xrules", "R", "", "csv of rule IDs to exclude")
	f.StringVarP(&o.groups, "groups", "g", "", "csv of rule groups to report")
	f.StringVarP(&o.xgroups, "xgroups", "G", "", "csv of rule groups to exclude")
	f.StringVarP(&o.severity, "severity", "s", "", "csv of severity levels to report")
	f.StringVarP(&o.xseverity, "xseverity", "S", "", "csv of severity levels to exclude")
	f.StringVarP(&o.files, "files", "f", "", "csv of file globs to include")
	f.StringVarP(&o.xfiles, "xfiles", "F", "", "regex of file paths to exclude")
	f.StringVarP(&o.xkeys, "xkeys", "k", "", "regex of keys to exclude")
	f.StringVarP(&o.xvalues, "xvalues", "v", "", "regex of values to exclude")
	f.BoolVar(&o.asciiDefault, "ascii-default", false, "require (true) or forbid (false) ASCII for rules that do not say")

	f.BoolVar(&o.json, "json", false, "emit JSON")
	f.BoolVar(&o.sarif, "sarif", false, "emit SARIF 2.1.0")
	f.BoolVar(&o.table, "table", false, "output in table format with borders")
	f.BoolVar(&o.showValues, "show-values", false, "print secret values instead of masking them")
	f.BoolVar(&o.noColor, "no-color", false, "disable colorized output")
	f.BoolVar(&o.dump, "dump", false, "print candidate pairs as JSON lines without running rules")
	f.StringVar(&o.failOn, "fail-on", "", "exit non-zero when a finding has at least this severity")
	f.IntVarP(&o.exitCode, "exitcode", "e", 1, "exit code used when --fail-on is reached")

	f.BoolVar(&o.defaultExcludes, "default-excludes", true, "skip dependency and build directories, lockfiles and binary artifacts")
	f.Int64Var(&o.maxBytes, "max-bytes", 0, "skip files larger than this (0 = no limit)")
	return cmd
}

func (o *scanOptions) run(cmd *cobra.Command, root string) error {
	var failOn types.Severity
	if o.failOn != "" {
		sev, err := types.ParseSeverity(o.failOn)
		if err != nil {
			return fmt.Errorf("--fail-on: %w", err)
		}
		failOn = sev
	}

	logOut := cmd.ErrOrStderr()
	if o.logFile != "" {
		f, err := os.Create(o.logFile)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	log, err := logging.New(o.logLevel, logOut)
	if err != nil {
		return err
	}

	fc, err := o.fileConfig(cmd, root, log)
	if err != nil {
		return err
	}
	app, err := config.Resolve(fc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	cfg := engine.Config{
		Root:            root,
		App:             app,
		DefaultExcludes: o.defaultExcludes,
		MaxBytes:        o.maxBytes,
		Log:             log,
	}

	if o.dump {
		seq, err := engine.PairsSeq(cfg)
		if err != nil {
			return err
		}
		for p := range seq {
			if err := report.WritePairs(out, p); err != nil {
				return err
			}
		}
		return nil
	}

	machine := o.json || o.sarif
	progress := !machine && report.ColorEnabled(cmd.ErrOrStderr())
	if progress {
		scanned := 0
		cfg.Progress = func() {
			scanned++
			if scanned%10 == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r[%d files]", scanned)
			}
		}
	}
	res, err := engine.Scan(cfg)
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	if progress && res.FilesScanned >= 10 {
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	opts := report.PrintOptions{
		NoColor:      o.noColor || !report.ColorEnabled(out),
		ShowValues:   o.showValues,
		Duration:     res.Duration,
		FilesScanned: res.FilesScanned,
	}
	switch {
	case o.sarif:
		if err := report.WriteSARIF(out, res.Findings, version); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case o.json:
		if err := report.WriteJSON(out, res.Findings); err != nil {
			return err
		}
	case o.table:
		report.PrintTable(out, res.Findings, opts)
	default:
		report.PrintText(out, res.Findings, opts)
	}

	if report.ShouldFail(res.Findings, failOn) {
		return errFailThreshold{code: o.exitCode}
	}
	return nil
}

// fileConfig merges, in increasing precedence, the global config, the
// project config next to the scan root, the --config file and the flags.
func (o *scanOptions) fileConfig(cmd *cobra.Command, root string, log logr.Logger) (config.FileConfig, error) {
	var fc config.FileConfig
	if g, err := config.LoadGlobal(); err == nil {
		fc = fc.Merge(g)
	} else if !errors.Is(err, config.ErrNotFound) {
		return fc, err
	}

	dir := root
	if st, err := os.Stat(root); err == nil && !st.IsDir() {
		dir = filepath.Dir(root)
	}
	if l, err := config.LoadLocal(dir); err == nil {
		log.V(1).Info("using project config", "dir", dir)
		fc = fc.Merge(l)
	} else if !errors.Is(err, config.ErrNotFound) {
		return fc, err
	}

	if o.configPath != "" {
		c, err := config.LoadFile(o.configPath)
		if err != nil {
			return fc, err
		}
		fc = fc.Merge(c)
	}
	return fc.Merge(o.flagConfig(cmd)), nil
}

// flagConfig expresses the filter flags as a config overlay.
func (o *scanOptions) flagConfig(cmd *cobra.Command) config.FileConfig {
	inc := &config.Section{
		Files:    config.SplitList(o.files),
		Rules:    config.RuleList{IDs: config.SplitList(o.rules)},
		Groups:   config.SplitList(o.groups),
		Severity: config.SplitList(o.severity),
	}
	exc := &config.Section{
		Files:    regexFlag(o.xfiles),
		Keys:     regexFlag(o.xkeys),
		Values:   regexFlag(o.xvalues),
		Rules:    config.RuleList{IDs: config.SplitList(o.xrules)},
		Groups:   config.SplitList(o.xgroups),
		Severity: config.SplitList(o.xseverity),
	}
	var fc config.FileConfig
	if !emptySection(inc) {
		fc.Include = inc
	}
	if !emptySection(exc) {
		fc.Exclude = exc
	}
	if cmd.Flags().Changed("ascii-default") {
		v := o.asciiDefault
		fc.ASCIIDefault = &v
	}
	return fc
}

func regexFlag(s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return []string{s}
}

func emptySection(s *config.Section) bool {
	return len(s.Files) == 0 && len(s.Keys) == 0 && len(s.Values) == 0 &&
		s.Rules.IsZero() && len(s.Groups) == 0 && len(s.Severity) == 0
}
