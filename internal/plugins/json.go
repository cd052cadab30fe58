package plugins

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"regexp"
	"strings"

	"github.com/adeptex/whispers/internal/types"
	"github.com/pkg/errors"
)

var reTrailingComment = regexp.MustCompile(`(?m) // ?.*$`)

// JSON extracts pairs from a JSON document, retrying with // comments
// stripped when strict parsing fails.
type JSON struct{}

func (JSON) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	b, err := os.ReadFile(path)
	if err != nil {
		return fail(errors.Wrap(err, "read json"))
	}
	doc, err := parseJSON(b)
	if err != nil {
		if doc, err = parseJSON(stripJSONComments(b)); err != nil {
			return fail(errors.Wrap(err, "parse json"))
		}
	}
	return lift(Traverse(doc))
}

func stripJSONComments(b []byte) []byte {
	var out []string
	for _, line := range strings.SplitAfter(string(b), "\n") {
		if strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, line)
	}
	return reTrailingComment.ReplaceAll([]byte(strings.Join(out, "")), nil)
}

// parseJSON decodes a single JSON value keeping object key order.
func parseJSON(b []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	n, err := jsonValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return n, nil
}

func jsonValue(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := &Mapping{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T", kt)
				}
				v, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				m.Add(key, v)
			}
			_, err := dec.Token()
			return m, err
		case '[':
			seq := Sequence{}
			for dec.More() {
				v, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, v)
			}
			_, err := dec.Token()
			return seq, err
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return Str(t), nil
	case json.Number:
		if strings.ContainsAny(string(t), ".eE") {
			return &Scalar{Value: string(t), Kind: ScalarOther}, nil
		}
		return &Scalar{Value: string(t), Kind: ScalarInt}, nil
	case bool:
		return &Scalar{Value: fmt.Sprint(t), Kind: ScalarOther}, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
