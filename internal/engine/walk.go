package engine

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/adeptex/whispers/internal/ignore"
	doublestar "github.com/bmatcuk/doublestar/v4"
)

// Scope enumerates the files to scan. A file root yields itself. A directory
// root is walked in lexical order and each regular file is kept when its
// slash-separated path relative to the root matches an include glob and
// neither that path nor the joined path matches the exclude-files pattern.
// Paths listed in the root's .whispersignore are skipped.
func Scope(cfg Config) iter.Seq[string] {
	return func(yield func(string) bool) {
		st, err := os.Stat(cfg.Root)
		if err != nil {
			return
		}
		if !st.IsDir() {
			yield(cfg.Root)
			return
		}
		ig, err := ignore.Load(filepath.Join(cfg.Root, ignore.FileName))
		if err != nil {
			cfg.Log.Error(err, "failed reading ignore file", "root", cfg.Root)
		}
		_ = filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				cfg.Log.V(1).Info("skipping unreadable path", "path", p, "error", err.Error())
				return nil
			}
			rel, _ := filepath.Rel(cfg.Root, p)
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if p != cfg.Root && (isDirExcluded(d.Name(), cfg.DefaultExcludes) || ig.MatchDir(rel)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || ig.Match(rel) {
				return nil
			}
			if !matchAnyGlob(rel, cfg.App.IncludeFiles) {
				return nil
			}
			if cfg.App.ExcludedFile(p) || cfg.App.ExcludedFile(rel) {
				return nil
			}
			if cfg.DefaultExcludes && isDefaultFileExcluded(strings.ToLower(rel)) {
				return nil
			}
			if cfg.MaxBytes > 0 {
				if info, _ := d.Info(); info != nil && info.Size() > cfg.MaxBytes {
					return nil
				}
			}
			if !yield(p) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// matchAnyGlob matches the relative path, or its base name, against globs.
// A glob therefore applies at any depth, the way a recursive glob would.
func matchAnyGlob(rel string, globs []string) bool {
	for _, g := range globs {
		g = strings.TrimPrefix(g, "./")
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}
