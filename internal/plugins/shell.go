package plugins

import (
	"iter"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/adeptex/whispers/internal/types"
	"github.com/adeptex/whispers/internal/validate"
	"github.com/go-logr/logr"
	shellwords "github.com/mattn/go-shellwords"
)

var (
	curlCombined = []string{"-u", "--user", "-U", "--proxy-user", "-E", "--cert"}
	curlSingle   = []string{"--tlspassword", "--proxy-tlspassword"}
	quoteEscaper = strings.NewReplacer(`'`, `\'`, `"`, `\"`)
)

// Shell extracts variable assignments, default values of parameter
// expansions and curl credentials from shell scripts. Commented out commands
// are scanned too. Lines that fail to split are logged and skipped.
type Shell struct {
	Log logr.Logger
}

func (s Shell) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	var pending []string
	return scanLines(path, func(line string, lineno int, yield func(types.KeyValuePair) bool) bool {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#"):
			line = quoteEscaper.Replace(strings.TrimSpace(strings.TrimLeft(line, "#")))
		case strings.HasSuffix(line, `\`):
			pending = append(pending, strings.TrimSuffix(line, `\`))
			return true
		}
		cmdline := strings.Join(append(pending, line), " ")
		pending = pending[:0]
		return s.command(cmdline, lineno, yield)
	})
}

func (s Shell) command(cmdline string, lineno int, yield func(types.KeyValuePair) bool) bool {
	cmds, err := splitCommands(cmdline)
	if err != nil {
		s.Log.V(1).Info("skipping unparsable shell line", "line", lineno, "error", err.Error())
		return true
	}
	for _, words := range cmds {
		for p := range ShellVariables(words, lineno) {
			if !yield(p) {
				return false
			}
		}
		if strings.EqualFold(words[0], "curl") {
			for p := range curlCredentials(words, lineno) {
				if !yield(p) {
					return false
				}
			}
		}
	}
	return true
}

// splitCommands splits a command line into words, one slice per command of a
// list or pipeline.
func splitCommands(line string) ([][]string, error) {
	var out [][]string
	for line != "" {
		p := shellwords.NewParser()
		words, err := p.Parse(line)
		if err != nil {
			return nil, err
		}
		if len(words) > 0 {
			out = append(out, words)
		}
		if p.Position < 0 {
			break
		}
		// Position counts runes.
		off := byteOffset(line, p.Position)
		if off >= len(line) {
			break
		}
		_, size := utf8.DecodeRuneInString(line[off:])
		line = line[off+size:]
	}
	return out, nil
}

func byteOffset(s string, runes int) int {
	off := 0
	for ; runes > 0 && off < len(s); runes-- {
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return off
}

func curlCredentials(words []string, lineno int) iter.Seq[types.KeyValuePair] {
	const key = "password"
	return func(yield func(types.KeyValuePair) bool) {
		for _, ind := range slices.Concat(curlCombined, curlSingle) {
			idx := slices.Index(words, ind)
			if idx < 0 || idx+1 == len(words) {
				continue
			}
			creds := validate.StripString(words[idx+1])
			if !slices.Contains(curlSingle, ind) {
				_, pass, ok := strings.Cut(creds, ":")
				if !ok {
					continue
				}
				pass, _, _ = strings.Cut(pass, ":")
				creds = pass
			}
			if !yield(types.NewPair(key, creds, key).WithLine(lineno)) {
				return
			}
		}
	}
}

// Dockerfile extracts ENV and ARG values and scans RUN instructions like
// shell commands.
type Dockerfile struct {
	Log logr.Logger
}

func (d Dockerfile) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	sh := Shell{Log: d.Log}
	var pending []string
	return scanLines(path, func(line string, lineno int, yield func(types.KeyValuePair) bool) bool {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return true
		}
		if strings.HasSuffix(line, `\`) {
			pending = append(pending, strings.TrimSuffix(line, `\`))
			return true
		}
		full := strings.TrimSpace(strings.Join(append(pending, line), " "))
		pending = pending[:0]
		instr, rest, _ := strings.Cut(full, " ")
		rest = strings.TrimSpace(rest)
		switch strings.ToUpper(instr) {
		case "ENV", "ARG":
			name, val, _ := strings.Cut(rest, " ")
			if !strings.Contains(name, "=") && val != "" {
				// legacy ENV name value
				return yield(types.NewPair(name, strings.TrimSpace(val)).WithLine(lineno))
			}
			return sh.command(rest, lineno, yield)
		case "RUN":
			return sh.command(rest, lineno, yield)
		}
		return true
	})
}
