package flow

import (
	"strconv"
	"strings"
)

// unknownType is what the worker prints when it cannot infer a type
const unknownType = "(unknown)"

var typeAtPosRequest = requestSpec[string]{
	kind: KindTypeAtPos,
	build: func(q Query) ([]string, *string) {
		return []string{
			"type-at-pos",
			strconv.Itoa(q.Line + 1), strconv.Itoa(q.Col + 1),
		}, q.Contents
	},
	decode: decodeTypeAtPos,
	empty:  "",
}

// decodeTypeAtPos takes the first output line as the type. A second line
// starting with "Failure" voids the result.
func decodeTypeAtPos(_ Query, out *Output, err error) (string, error) {
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.ReplaceAll(out.Stdout, "\r\n", "\n"), "\n")
	if len(lines) > 1 && strings.HasPrefix(lines[1], "Failure") {
		return "", nil
	}
	typ := lines[0]
	if typ == unknownType {
		return "", nil
	}
	return typ, nil
}
