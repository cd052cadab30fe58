package plugins

import (
	"encoding/xml"
	"io"
	"iter"
	"os"
	"slices"
	"strings"

	"github.com/adeptex/whispers/internal/types"
	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// XML extracts pairs from element attributes and text. Parsing is lenient:
// whatever was read before a syntax error is still scanned.
type XML struct{}

type xmlElem struct {
	tag      string
	attrs    []xml.Attr
	text     strings.Builder
	children []*xmlElem
}

func (e *xmlElem) attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (XML) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	return func(yield func(types.KeyValuePair, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(types.KeyValuePair{}, errors.Wrap(err, "read xml"))
			return
		}
		defer f.Close()
		root, perr := parseXML(f)
		if root != nil {
			for p := range walkXML(root, nil) {
				if !yield(p, nil) {
					return
				}
			}
		}
		if perr != nil {
			yield(types.KeyValuePair{}, errors.Wrap(perr, "parse xml"))
		}
	}
}

func parseXML(r io.Reader) (*xmlElem, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charset.NewReaderLabel
	var root *xmlElem
	var stack []*xmlElem
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return root, nil
		}
		if err != nil {
			return root, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			e := &xmlElem{tag: t.Name.Local, attrs: slices.Clone(t.Attr)}
			if len(stack) == 0 {
				if root != nil {
					return root, errors.New("multiple root elements")
				}
				root = e
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
			}
			stack = append(stack, e)
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				// only text before the first child counts
				if len(top.children) == 0 {
					top.text.Write(t)
				}
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
}

func walkXML(e *xmlElem, parent []string) iter.Seq[types.KeyValuePair] {
	return func(yield func(types.KeyValuePair) bool) {
		kp := append(slices.Clip(parent), e.tag)
		// <elem key="value">
		for _, a := range e.attrs {
			akp := append(slices.Clip(kp), a.Name.Local)
			if !yield(types.NewPair(a.Name.Local, a.Value, akp...)) {
				return
			}
			for p := range CommonPairs(a.Value, akp, 0) {
				if !yield(p) {
					return
				}
			}
		}
		// <elem key="name" value="secret">
		if k, ok := e.attr("key"); ok {
			if v, ok := e.attr("value"); ok {
				if !yield(types.NewPair(k, v, kp...)) {
					return
				}
			}
		}
		if text := e.text.String(); text != "" {
			// <key>value</key>
			if !yield(types.NewPair(e.tag, text, kp...)) {
				return
			}
			for p := range CommonPairs(text, kp, 0) {
				if !yield(p) {
					return
				}
			}
			// <elem>key=value</elem>
			if parts := strings.Split(text, "="); len(parts) == 2 {
				if !yield(types.NewPair(parts[0], parts[1], append(slices.Clip(kp), parts[0])...)) {
					return
				}
			}
			// <elem><key>name</key><value>secret</value></elem>
			var foundKey, foundValue string
			for _, c := range e.children {
				switch strings.ToLower(c.tag) {
				case "key":
					foundKey = c.text.String()
				case "value":
					foundValue = c.text.String()
				}
			}
			if foundKey != "" && foundValue != "" {
				fkp := append(slices.Clip(kp), foundKey)
				if !yield(types.NewPair(foundKey, foundValue, fkp...)) {
					return
				}
				for p := range CommonPairs(foundValue, fkp, 0) {
					if !yield(p) {
						return
					}
				}
			}
		}
		for _, c := range e.children {
			for p := range walkXML(c, kp) {
				if !yield(p) {
					return
				}
			}
		}
	}
}
