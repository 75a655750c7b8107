package recordstore

import (
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errMalformedList = errors.New("malformed list literal")

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	s, err := json.MarshalToString(items)
	if err != nil {
		return "[]"
	}
	return s
}

// decodeList accepts a JSON array of strings or the single-quoted list
// literal older account files were written with, e.g. ['Dune', "Emma"].
func decodeList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var items []string
	if err := json.UnmarshalFromString(s, &items); err == nil {
		return items, nil
	}
	return parseListLiteral(s)
}

func parseListLiteral(s string) ([]string, error) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, errMalformedList
	}
	body := []rune(strings.TrimSpace(s[1 : len(s)-1]))
	var items []string
	for i := 0; i < len(body); {
		switch r := body[i]; {
		case r == ' ' || r == '\t' || r == ',':
			i++
		case r == '\'' || r == '"':
			var sb strings.Builder
			j := i + 1
			for ; j < len(body) && body[j] != r; j++ {
				if body[j] == '\\' && j+1 < len(body) {
					j++
				}
				sb.WriteRune(body[j])
			}
			if j >= len(body) {
				return nil, errMalformedList
			}
			items = append(items, sb.String())
			i = j + 1
		default:
			j := i
			for j < len(body) && body[j] != ',' {
				j++
			}
			items = append(items, strings.TrimSpace(string(body[i:j])))
			i = j
		}
	}
	return items, nil
}
