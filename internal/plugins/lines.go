package plugins

import (
	"bufio"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/adeptex/whispers/internal/types"
	"github.com/adeptex/whispers/internal/validate"
	"github.com/pkg/errors"
)

const maxLineSize = 1024 * 1024

func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}

// lineFunc turns one line into candidates. lineno is 1-based.
type lineFunc func(line string, lineno int, yield func(types.KeyValuePair) bool) bool

// scanLines runs fn over every line of path.
func scanLines(path string, fn lineFunc) iter.Seq2[types.KeyValuePair, error] {
	return func(yield func(types.KeyValuePair, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(types.KeyValuePair{}, errors.Wrap(err, "open"))
			return
		}
		defer f.Close()
		stopped := false
		emit := func(p types.KeyValuePair) bool {
			if !yield(p, nil) {
				stopped = true
			}
			return !stopped
		}
		sc := newLineScanner(f)
		for lineno := 1; sc.Scan(); lineno++ {
			if !fn(sc.Text(), lineno, emit) || stopped {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(types.KeyValuePair{}, errors.Wrapf(err, "read %s", path))
		}
	}
}

// Htpasswd yields the hash of every user:hash line.
type Htpasswd struct{}

func (Htpasswd) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	return scanLines(path, func(line string, lineno int, yield func(types.KeyValuePair) bool) bool {
		creds := strings.Split(strings.TrimSpace(line), ":")
		if len(creds) < 2 {
			return true
		}
		v := validate.StripString(creds[1])
		if v == "" {
			return true
		}
		return yield(types.NewPair("htpasswd hash", v).WithLine(lineno))
	})
}

// NPMRC yields registry auth tokens.
type NPMRC struct{}

func (NPMRC) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	const marker = ":_authToken="
	return scanLines(path, func(line string, lineno int, yield func(types.KeyValuePair) bool) bool {
		i := strings.LastIndex(line, marker)
		if i < 0 {
			return true
		}
		v := strings.TrimSpace(line[i+len(marker):])
		if v == "" {
			return true
		}
		return yield(types.NewPair("npm authToken", v).WithLine(lineno))
	})
}

// Gradle yields repository passwords from authentication(...) blocks
// written on one line.
type Gradle struct{}

func (Gradle) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	return scanLines(path, func(line string, lineno int, yield func(types.KeyValuePair) bool) bool {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "authentication(") {
			return true
		}
		i := strings.LastIndex(line, "password:")
		if i < 0 {
			return true
		}
		v := strings.Trim(line[i+len("password:"):], ") ")
		if v == "" {
			return true
		}
		return yield(types.NewPair("password", v, "authentication", "password").WithLine(lineno))
	})
}

// Plaintext scans each line for common patterns and private key markers.
type Plaintext struct{}

func (Plaintext) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	return scanLines(path, func(line string, lineno int, yield func(types.KeyValuePair) bool) bool {
		line = validate.StripString(line)
		if line == "" {
			return true
		}
		for p := range CommonPairs(line, nil, lineno) {
			if !yield(p) {
				return false
			}
		}
		if p, ok := PrivateKeyPair(line); ok {
			return yield(p.WithLine(lineno))
		}
		return true
	})
}

// Elixir yields `key: value` statements of keyword lists.
type Elixir struct{}

func (Elixir) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	return scanLines(path, func(line string, lineno int, yield func(types.KeyValuePair) bool) bool {
		for _, stmt := range strings.Split(line, ",") {
			parts := strings.Split(stmt, ": ")
			if len(parts) != 2 {
				continue
			}
			if !yield(types.NewPair(strings.TrimSpace(parts[0]), parts[1]).WithLine(lineno)) {
				return false
			}
		}
		return true
	})
}
