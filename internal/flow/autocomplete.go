package flow

import (
	"strings"

	"github.com/tidwall/gjson"

	"flowbridge/internal/errors"
)

// Completion is one autocomplete suggestion
type Completion struct {
	Text              string `json:"text" yaml:"text"`
	Type              string `json:"type" yaml:"type"`
	ReplacementPrefix string `json:"replacementPrefix" yaml:"replacementPrefix"`
}

func autocompleteRequest(sentinel string) requestSpec[[]Completion] {
	return requestSpec[[]Completion]{
		kind: KindAutocomplete,
		build: func(q Query) ([]string, *string) {
			var buf string
			if q.Contents != nil {
				buf = *q.Contents
			}
			marked := InsertSentinel(buf, q.Line, q.Col, sentinel)
			return []string{"autocomplete", "--json", q.File}, &marked
		},
		decode: func(q Query, out *Output, err error) ([]Completion, error) {
			if err != nil {
				return nil, err
			}
			return decodeCompletions(out, q.Prefix)
		},
		empty: []Completion{},
	}
}

// decodeCompletions accepts either a bare array of {name, type} or an object
// wrapping it under "result".
func decodeCompletions(out *Output, prefix string) ([]Completion, error) {
	if !gjson.Valid(out.Stdout) {
		return nil, decodeError(KindAutocomplete, errors.New("invalid JSON"))
	}
	res := gjson.Parse(out.Stdout)
	if res.IsObject() {
		res = res.Get("result")
	}
	if !res.IsArray() {
		return nil, decodeError(KindAutocomplete, errors.New("expected an array of suggestions"))
	}

	replacement := prefix
	if strings.TrimSpace(prefix) == "" {
		replacement = ""
	}

	items := res.Array()
	completions := make([]Completion, 0, len(items))
	for _, item := range items {
		completions = append(completions, Completion{
			Text:              item.Get("name").String(),
			Type:              item.Get("type").String(),
			ReplacementPrefix: replacement,
		})
	}
	return completions, nil
}
