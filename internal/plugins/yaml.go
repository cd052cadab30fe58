package plugins

import (
	"bytes"
	"io"
	"iter"
	"os"
	"regexp"
	"strings"

	"github.com/adeptex/whispers/internal/types"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v3"
)

var (
	reTemplateExpr  = regexp.MustCompile(`^.+(\[)?\{\{.*\}\}(\])?`)
	reTemplateBlock = regexp.MustCompile(`(?s)[<{]%.*?%[}>]`)
)

// YAML extracts pairs from every document of a YAML file. Template
// expressions are quoted and template blocks removed before parsing so that
// Helm, Jinja and ERB sources still load.
type YAML struct{}

func (YAML) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	return func(yield func(types.KeyValuePair, error) bool) {
		b, err := os.ReadFile(path)
		if err != nil {
			yield(types.KeyValuePair{}, errors.Wrap(err, "read yaml"))
			return
		}
		dec := yaml.NewDecoder(bytes.NewReader(preprocessYAML(b)))
		for {
			var doc yaml.Node
			if err := dec.Decode(&doc); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(types.KeyValuePair{}, errors.Wrap(err, "parse yaml"))
				return
			}
			for p := range Traverse(newYAMLTree().convert(&doc, 0)) {
				if !yield(p, nil) {
					return
				}
			}
		}
	}
}

func preprocessYAML(b []byte) []byte {
	lines := strings.SplitAfter(string(b), "\n")
	for i, line := range lines {
		if reTemplateExpr.MatchString(line) {
			line = strings.ReplaceAll(line, "{{", "'{{")
			lines[i] = strings.ReplaceAll(line, "}}", "}}'")
		}
	}
	return reTemplateBlock.ReplaceAll([]byte(strings.Join(lines, "")), nil)
}

const (
	// maxAliasDepth bounds alias nesting.
	maxAliasDepth = 64
	// maxAliasNodes bounds the nodes produced by alias and merge expansion
	// in one document.
	maxAliasNodes = 100_000
)

// yamlTree converts one YAML document into the neutral tree.
type yamlTree struct {
	expanded int
}

func newYAMLTree() *yamlTree { return &yamlTree{} }

func (c *yamlTree) convert(n *yaml.Node, depth int) Node {
	if n == nil || depth > maxAliasDepth {
		return nil
	}
	if depth > 0 {
		if c.expanded++; c.expanded > maxAliasNodes {
			return nil
		}
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return c.convert(n.Content[0], depth)
	case yaml.AliasNode:
		return c.convert(n.Alias, depth+1)
	case yaml.MappingNode:
		m := &Mapping{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.ShortTag() == "!!merge" {
				if src, ok := c.convert(v, depth+1).(*Mapping); ok && src != nil {
					for j, mk := range src.Keys {
						m.Add(mk, src.Values[j])
					}
				}
				continue
			}
			m.Add(k.Value, c.convert(v, depth))
		}
		return m
	case yaml.SequenceNode:
		seq := make(Sequence, 0, len(n.Content))
		for _, child := range n.Content {
			seq = append(seq, c.convert(child, depth))
		}
		return seq
	case yaml.ScalarNode:
		if isCustomTag(n.Tag) {
			return Str(n.Tag + " " + n.Value)
		}
		switch n.ShortTag() {
		case "!!null":
			return nil
		case "!!str", "!!binary":
			return Str(n.Value)
		case "!!int":
			return &Scalar{Value: n.Value, Kind: ScalarInt}
		default:
			return &Scalar{Value: n.Value, Kind: ScalarOther}
		}
	}
	return nil
}

// isCustomTag matches local tags such as !Ref or !Sub.
func isCustomTag(tag string) bool {
	return strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!")
}
