package report

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adeptex/whispers/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

type PrintOptions struct {
	NoColor      bool
	ShowValues   bool
	Duration     time.Duration
	FilesScanned int
}

// ColorEnabled reports whether w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var (
	styleCritical = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	styleHigh     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleMedium   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	styleLow      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleInfo     = lipgloss.NewStyle().Faint(true)
)

func colorSeverity(s types.Severity) string {
	switch s {
	case types.SevCritical:
		return styleCritical.Render(string(s))
	case types.SevHigh:
		return styleHigh.Render(string(s))
	case types.SevMedium:
		return styleMedium.Render(string(s))
	case types.SevLow:
		return styleLow.Render(string(s))
	default:
		return styleInfo.Render(string(s))
	}
}

func severityLabel(s types.Severity, opts PrintOptions) string {
	if opts.NoColor {
		return string(s)
	}
	return colorSeverity(s)
}

// sorted orders findings by file and line without touching the caller's slice.
func sorted(findings []types.Finding) []types.Finding {
	out := slices.Clone(findings)
	slices.SortStableFunc(out, func(a, b types.Finding) int {
		if c := strings.Compare(a.File, b.File); c != 0 {
			return c
		}
		return a.Line - b.Line
	})
	return out
}

func PrintText(w io.Writer, findings []types.Finding, opts PrintOptions) {
	findings = sorted(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No secrets found ✅")
	} else {
		maxRule := 8
		for _, f := range findings {
			if l := len(f.RuleID); l > maxRule {
				maxRule = l
			}
		}
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, f := range findings {
			fmt.Fprintf(w, "%-8s %-*s %s:%d  %s = %s\n",
				severityLabel(f.Severity, opts), maxRule, f.RuleID, f.File, f.Line, f.Key, displayValue(f.Value, opts))
		}
	}
	printFooter(w, findings, opts)
}

func PrintTable(w io.Writer, findings []types.Finding, opts PrintOptions) {
	findings = sorted(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No secrets found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("SEVERITY", "RULE", "FILE", "LINE", "KEY", "VALUE")
		for _, f := range findings {
			_ = table.Append([]string{
				severityLabel(f.Severity, opts),
				f.RuleID,
				f.File,
				strconv.Itoa(f.Line),
				f.Key,
				displayValue(f.Value, opts),
			})
		}
		_ = table.Render()
	}
	printFooter(w, findings, opts)
}

func printFooter(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if opts.Duration <= 0 && opts.FilesScanned <= 0 {
		return
	}
	counts := map[types.Severity]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}
	var parts []string
	for _, s := range types.AllSeverities() {
		parts = append(parts, fmt.Sprintf("%s: %d", strings.ToLower(string(s)), counts[s]))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %d (%s)\n", len(findings), strings.Join(parts, ", "))
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
	}
	if opts.FilesScanned > 0 {
		fmt.Fprintf(w, "Files scanned: %d\n", opts.FilesScanned)
	}
}

func displayValue(s string, opts PrintOptions) string {
	if opts.ShowValues {
		return s
	}
	return maskValue(s)
}

func maskValue(s string) string {
	r := []rune(s)
	if len(r) <= 8 {
		return "********"
	}
	return string(r[:4]) + "…" + string(r[len(r)-4:])
}
