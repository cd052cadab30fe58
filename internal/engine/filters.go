package engine

import "strings"

// vcsDirs are never scanned.
var vcsDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

var defaultExcludeDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"coverage":     true,
	".terraform":   true,
	".tox":         true,
}

// suffixes treated as non-text or generated artifacts when default excludes enabled
var defaultExcludeFileSuffixes = []string{
	".min.js", ".map",
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg",
	".pdf", ".zip", ".gz", ".tar", ".tgz", ".7z",
	".jar", ".class", ".exe", ".dll", ".so",
	".wasm", ".pyc",
}

// exact filenames commonly safe to exclude when default excludes enabled
var defaultExcludeFileNames = map[string]bool{
	"yarn.lock":         true,
	"package-lock.json": true,
	"pnpm-lock.yaml":    true,
	"composer.lock":     true,
	"poetry.lock":       true,
	".ds_store":         true,
}

func isDirExcluded(name string, defaults bool) bool {
	return vcsDirs[name] || (defaults && defaultExcludeDirs[name])
}

func isDefaultFileExcluded(lowerRel string) bool {
	if strings.HasSuffix(lowerRel, ".lock") {
		return true
	}
	for _, s := range defaultExcludeFileSuffixes {
		if strings.HasSuffix(lowerRel, s) {
			return true
		}
	}
	base := lowerRel
	if i := strings.LastIndexByte(lowerRel, '/'); i >= 0 {
		base = lowerRel[i+1:]
	}
	return defaultExcludeFileNames[base]
}
