package engine

// IndexName is the name given to the row key of the master table.
const IndexName = "SampleID"

// Kind is the native type of a column.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
)

func (k Kind) String() string {
	if k == KindNumber {
		return "number"
	}
	return "string"
}

// Column holds one column as flat arrays.
// Strings is populated for KindString, Numbers for KindNumber.
// Null[i] marks a missing cell; its slot holds the zero value.
type Column struct {
	Name    string
	Kind    Kind
	Strings []string
	Numbers []float64
	Null    []bool
}

// Text renders cell i. ok is false for a null cell.
func (c *Column) Text(i int) (s string, ok bool) {
	if c.Null[i] {
		return "", false
	}
	if c.Kind == KindNumber {
		return formatNumber(c.Numbers[i]), true
	}
	return c.Strings[i], true
}

func (c *Column) appendFrom(src *Column, i int) {
	c.Null = append(c.Null, src.Null[i])
	if c.Kind == KindNumber {
		c.Numbers = append(c.Numbers, src.Numbers[i])
	} else {
		c.Strings = append(c.Strings, src.Strings[i])
	}
}

// Table holds a keyed table in Struct-of-Arrays format.
// Keys[i] is the row key of row i; every column has len(Keys) cells.
type Table struct {
	IndexName string
	Keys      []string
	Columns   []Column
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Keys) }

// Column returns the column called name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ColumnNames lists the column names in table order, excluding the index.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	return names
}
