// Package ignore reads .whispersignore files: one gitignore-style pattern
// per line, blank lines and # comments skipped.
package ignore

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is looked up in the scan root.
const FileName = ".whispersignore"

// Matcher holds compiled ignore patterns. The zero value matches nothing.
type Matcher struct {
	patterns []pattern
}

type pattern struct {
	glob string
	// dir patterns end in "/" and match everything below the directory
	dir bool
	// anchored patterns contain a "/" and match from the root only
	anchored bool
}

// Load reads patterns from path. A missing file yields an empty Matcher.
func Load(p string) (Matcher, error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Matcher{}, nil
		}
		return Matcher{}, err
	}
	defer f.Close()

	var m Matcher
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pt := pattern{}
		if strings.HasSuffix(line, "/") {
			pt.dir = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.Contains(line, "/") {
			pt.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if !doublestar.ValidatePattern(line) {
			continue
		}
		pt.glob = line
		m.patterns = append(m.patterns, pt)
	}
	return m, sc.Err()
}

// Match reports whether the slash-separated file path relative to the root
// is ignored, either itself or through one of its parent directories.
func (m Matcher) Match(rel string) bool {
	return m.match(rel, false)
}

// MatchDir is Match for a directory, so directory patterns apply to rel itself.
func (m Matcher) MatchDir(rel string) bool {
	return m.match(rel, true)
}

func (m Matcher) match(rel string, isDir bool) bool {
	if len(m.patterns) == 0 {
		return false
	}
	rel = strings.TrimPrefix(path.Clean(rel), "./")
	parts := strings.Split(rel, "/")
	for _, pt := range m.patterns {
		for i := range parts {
			if pt.dir && i == len(parts)-1 && !isDir {
				break
			}
			var ok bool
			if pt.anchored {
				ok, _ = doublestar.Match(pt.glob, strings.Join(parts[:i+1], "/"))
			} else {
				ok, _ = doublestar.Match(pt.glob, parts[i])
			}
			if ok {
				return true
			}
		}
	}
	return false
}

// Append adds pattern to the ignore file in root, creating it when missing.
// A pattern already present is not added again.
func Append(root, pattern string) error {
	p := filepath.Join(root, FileName)
	b, err := os.ReadFile(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for _, line := range strings.Split(string(b), "\n") {
		if strings.TrimSpace(line) == pattern {
			return nil
		}
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if len(b) > 0 && b[len(b)-1] != '\n' {
		pattern = "\n" + pattern
	}
	_, err = f.WriteString(pattern + "\n")
	return err
}
