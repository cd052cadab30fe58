// Package pairs turns one file into the stream of static, non-excluded
// candidate pairs that the detection engine consumes.
package pairs

import (
	"iter"
	"os"

	"github.com/adeptex/whispers/internal/config"
	"github.com/adeptex/whispers/internal/plugins"
	"github.com/adeptex/whispers/internal/types"
	"github.com/adeptex/whispers/internal/validate"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// Options carries per-run collaborators of the pipeline.
type Options struct {
	Log logr.Logger
}

// MakePairs yields the candidates of a single file: first the ("file", path)
// pseudo-pair, then the static values extracted by the file's plugin. A
// plugin error is logged and ends the file's stream; it never surfaces to
// the caller.
func MakePairs(cfg config.AppConfig, path string, opts Options) iter.Seq[types.KeyValuePair] {
	log := opts.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return func(yield func(types.KeyValuePair) bool) {
		st, err := os.Stat(path)
		if err != nil || !st.Mode().IsRegular() {
			return
		}

		if file := types.NewPair("file", path); FilterIncluded(cfg, file) {
			if !yield(TagFile(path, file)) {
				return
			}
		}

		kind := plugins.Select(path)
		log.V(1).Info("make pairs", "file", path, "plugin", kind.String())
		if kind == plugins.KindNone {
			return
		}
		if !isText(path) {
			log.V(1).Info("skipping non-text content", "file", path)
			return
		}
		plugin, err := plugins.New(kind, log.WithValues("file", path))
		if err != nil {
			log.Error(err, "failed loading plugin", "file", path, "plugin", kind.String())
			return
		}

		for raw, err := range recoverPairs(plugin.Pairs(path)) {
			if err != nil {
				log.Error(err, "failed making pairs", "file", path, "plugin", kind.String())
				return
			}
			p, ok := FilterStatic(raw)
			if !ok {
				log.V(1).Info("filter static excluded value", "file", path, "key", raw.Key)
				continue
			}
			if !FilterIncluded(cfg, p) {
				log.V(1).Info("filter included excluded pair", "file", path, "key", p.Key)
				continue
			}
			if !yield(TagFile(path, p)) {
				return
			}
		}
	}
}

// recoverPairs turns a panic inside seq into a final error so one broken
// file cannot abort the run. Panics raised by the consumer propagate.
func recoverPairs(seq iter.Seq2[types.KeyValuePair, error]) iter.Seq2[types.KeyValuePair, error] {
	return func(yield func(types.KeyValuePair, error) bool) {
		inConsumer, stopped := false, false
		defer func() {
			if inConsumer {
				return
			}
			if r := recover(); r != nil && !stopped {
				yield(types.KeyValuePair{}, errors.Errorf("plugin panic: %v", r))
			}
		}()
		seq(func(p types.KeyValuePair, err error) bool {
			inConsumer = true
			ok := yield(p, err)
			inConsumer = false
			stopped = !ok
			return ok
		})
	}
}

// FilterStatic strips quoting from the key and value and keeps the pair only
// when the value is a hardcoded literal.
func FilterStatic(p types.KeyValuePair) (types.KeyValuePair, bool) {
	key, value := validate.StripString(p.Key), validate.StripString(p.Value)
	if !validate.IsStatic(key, value) {
		return types.KeyValuePair{}, false
	}
	return p.WithKeyValue(key, value), true
}

// FilterIncluded reports whether the pair survives the configured key and
// value exclusions.
func FilterIncluded(cfg config.AppConfig, p types.KeyValuePair) bool {
	return !cfg.ExcludedKey(p.Keypath) && !cfg.ExcludedValue(p.Value)
}

// TagFile records the source path on the pair.
func TagFile(path string, p types.KeyValuePair) types.KeyValuePair {
	return p.WithFile(path)
}

// isText reports whether the content sniffs as text. Undetectable files are
// passed on so the plugin can report the read error.
func isText(path string) bool {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return true
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
