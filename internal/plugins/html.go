package plugins

import (
	"bytes"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/adeptex/whispers/internal/types"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// HTML yields comments and credentials embedded in attribute URLs.
type HTML struct{}

func (HTML) Pairs(path string) iter.Seq2[types.KeyValuePair, error] {
	return func(yield func(types.KeyValuePair, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(types.KeyValuePair{}, errors.Wrap(err, "read html"))
			return
		}
		defer f.Close()
		z := html.NewTokenizer(f)
		line := 1
		for {
			tt := z.Next()
			if tt == html.ErrorToken {
				if err := z.Err(); err != io.EOF {
					yield(types.KeyValuePair{}, errors.Wrap(err, "parse html"))
				}
				return
			}
			start := line
			line += bytes.Count(z.Raw(), []byte("\n"))
			tok := z.Token()
			switch tt {
			case html.CommentToken:
				text := strings.TrimSpace(tok.Data)
				if text == "" {
					continue
				}
				if !yield(types.NewPair("comment", text).WithLine(start), nil) {
					return
				}
			case html.StartTagToken, html.SelfClosingTagToken:
				for _, a := range tok.Attr {
					if !strings.Contains(a.Val, "://") {
						continue
					}
					for p := range CommonPairs(a.Val, []string{tok.Data, a.Key}, start) {
						if !yield(p, nil) {
							return
						}
					}
				}
			}
		}
	}
}
