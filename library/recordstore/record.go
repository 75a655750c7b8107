package recordstore

import (
	"github.com/shopspring/decimal"
)

// Record is one row of a record set keyed by lower-cased column name.
type Record map[string]string

// Text returns the raw cell value.
func (r Record) Text(col string) string { return r[col] }

// Decimal parses the cell as a decimal number, zero when it is not one.
func (r Record) Decimal(col string) decimal.Decimal {
	d, err := decimal.NewFromString(r[col])
	if err != nil {
		return decimal.Zero
	}
	return d
}

// List decodes a list cell. Malformed cells decode as an empty list.
func (r Record) List(col string) []string {
	items, err := decodeList(r[col])
	if err != nil {
		return nil
	}
	return items
}

// Set replaces the raw cell value.
func (r Record) Set(col, value string) { r[col] = value }

// SetDecimal stores d in its canonical decimal form.
func (r Record) SetDecimal(col string, d decimal.Decimal) { r[col] = d.String() }

// SetList encodes items as a JSON list cell.
func (r Record) SetList(col string, items []string) { r[col] = encodeList(items) }

// RecordSet is the decoded content of one flat-file table.
type RecordSet struct {
	Columns []string
	Records []Record

	schema Schema
}

// NewRecordSet returns an empty set carrying the schema's columns.
func NewRecordSet(schema Schema) *RecordSet {
	return &RecordSet{Columns: schema.Names(), schema: schema}
}

func (rs *RecordSet) Len() int { return len(rs.Records) }

// Append adds a record, backfilling every missing column with its default.
func (rs *RecordSet) Append(r Record) {
	for _, name := range rs.Columns {
		if _, ok := r[name]; ok {
			continue
		}
		if c, ok := rs.schema.column(name); ok {
			r[name] = c.zero()
		} else {
			r[name] = ""
		}
	}
	rs.Records = append(rs.Records, r)
}

// Find returns the index of the first record accepted by match, or -1.
func (rs *RecordSet) Find(match func(Record) bool) int {
	for i, r := range rs.Records {
		if match(r) {
			return i
		}
	}
	return -1
}

// Filter keeps only the records accepted by keep and reports how many were dropped.
func (rs *RecordSet) Filter(keep func(Record) bool) int {
	kept := rs.Records[:0]
	for _, r := range rs.Records {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	dropped := len(rs.Records) - len(kept)
	clear(rs.Records[len(kept):])
	rs.Records = kept
	return dropped
}
