package recordstore

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind selects how the raw text of a column is normalized on load.
type Kind int

const (
	// Text columns are trimmed; empty cells take the column default.
	Text Kind = iota
	// Number columns are coerced to a decimal; invalid cells become zero.
	Number
	// List columns hold an ordered list of strings.
	List
	// Identifier columns are opaque keys. They are never parsed as numbers,
	// but spreadsheet damage (scientific notation, a trailing ".0") is undone.
	Identifier
)

// Column declares one column of a table.
type Column struct {
	Name    string
	Kind    Kind
	Default string
}

func (c Column) zero() string {
	if c.Default != "" {
		return c.Default
	}
	switch c.Kind {
	case Number:
		return "0"
	case List:
		return "[]"
	}
	return ""
}

// normalize turns a raw cell into its canonical text form.
func (c Column) normalize(raw string) string {
	v := strings.TrimSpace(raw)
	switch c.Kind {
	case Number:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c.zero()
		}
		return d.String()
	case List:
		items, err := decodeList(v)
		if err != nil || len(items) == 0 {
			return "[]"
		}
		return encodeList(items)
	case Identifier:
		v = normalizeIdentifier(v)
	}
	if v == "" {
		return c.zero()
	}
	return v
}

// Schema is the ordered list of columns a record set must carry.
type Schema []Column

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

func (s Schema) column(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func normalizeIdentifier(v string) string {
	if strings.ContainsAny(v, "eE") {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return strconv.FormatFloat(f, 'f', 0, 64)
		}
	}
	if head, ok := strings.CutSuffix(v, ".0"); ok && head != "" && isDigits(head) {
		return head
	}
	return v
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}
