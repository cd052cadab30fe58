package plugins

import (
	"fmt"
	"iter"
	"maps"
	"os"
	"slices"

	"github.com/adeptex/whispers/internal/types"
	"github.com/hashicorp/hcl"
	"github.com/magiconair/properties"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Properties yields every key of a Java properties file. Variable
// expansion is disabled so ${refs} reach the static filter as written.
type Properties struct{}

func (Properties) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	props, err := l.LoadFile(path)
	if err != nil {
		return fail(errors.Wrap(err, "parse properties"))
	}
	return lift(func(yield func(types.KeyValuePair) bool) {
		for _, k := range props.Keys() {
			v, _ := props.Get(k)
			if !yield(types.NewPair(k, v)) {
				return
			}
		}
	})
}

// TOML traverses a TOML document. Table keys are visited in sorted order.
type TOML struct{}

func (TOML) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	b, err := os.ReadFile(path)
	if err != nil {
		return fail(errors.Wrap(err, "read toml"))
	}
	var doc map[string]any
	if err := toml.Unmarshal(b, &doc); err != nil {
		return fail(errors.Wrap(err, "parse toml"))
	}
	return lift(Traverse(fromAny(doc)))
}

// HCL traverses an HCL (v1) document such as a tfvars file.
type HCL struct{}

func (HCL) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	b, err := os.ReadFile(path)
	if err != nil {
		return fail(errors.Wrap(err, "read hcl"))
	}
	var doc map[string]any
	if err := hcl.Unmarshal(b, &doc); err != nil {
		return fail(errors.Wrap(err, "parse hcl"))
	}
	return lift(Traverse(fromAny(doc)))
}

// fromAny converts generically decoded data into a Node.
func fromAny(v any) Node {
	switch v := v.(type) {
	case nil:
		return nil
	case map[string]any:
		m := &Mapping{}
		for _, k := range slices.Sorted(maps.Keys(v)) {
			m.Add(k, fromAny(v[k]))
		}
		return m
	case []map[string]any:
		seq := make(Sequence, 0, len(v))
		for _, item := range v {
			seq = append(seq, fromAny(item))
		}
		return seq
	case []any:
		seq := make(Sequence, 0, len(v))
		for _, item := range v {
			seq = append(seq, fromAny(item))
		}
		return seq
	case string:
		return Str(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return &Scalar{Value: fmt.Sprint(v), Kind: ScalarInt}
	}
	return &Scalar{Value: fmt.Sprint(v), Kind: ScalarOther}
}
