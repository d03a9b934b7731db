package flow

import (
	"strconv"

	"github.com/tidwall/gjson"

	"flowbridge/internal/errors"
)

// Definition is a jump target. Line and Column are 0-based.
type Definition struct {
	File   string `json:"file" yaml:"file"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
}

var definitionRequest = requestSpec[*Definition]{
	kind: KindDefinition,
	build: func(q Query) ([]string, *string) {
		return []string{
			"get-def", "--json", "--path", q.File,
			strconv.Itoa(q.Line), strconv.Itoa(q.Col),
		}, q.Contents
	},
	decode: decodeDefinition,
	empty:  nil,
}

// decodeDefinition reads {path, line, start}; the worker reports 1-based
// positions. A result without a path means there is no definition.
func decodeDefinition(_ Query, out *Output, err error) (*Definition, error) {
	if err != nil {
		return nil, err
	}
	if !gjson.Valid(out.Stdout) {
		return nil, decodeError(KindDefinition, errors.New("invalid JSON"))
	}
	res := gjson.Parse(out.Stdout)
	path := res.Get("path").String()
	if path == "" {
		return nil, nil
	}
	return &Definition{
		File:   path,
		Line:   int(res.Get("line").Int()) - 1,
		Column: int(res.Get("start").Int()) - 1,
	}, nil
}
