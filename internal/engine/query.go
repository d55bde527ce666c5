package engine

import (
	"strconv"

	"github.com/pkg/errors"

	"relab/internal/errs"
)

// Selection is a subset of a Table: row numbers into the parent, no data copy.
// A Selection is a value; queries return a new one and never modify another.
type Selection struct {
	Table *Table
	Rows  []int
}

// All selects every row of t.
func All(t *Table) Selection {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	return Selection{Table: t, Rows: rows}
}

// Len returns the number of selected rows.
func (s Selection) Len() int { return len(s.Rows) }

// Key returns the row key of the i-th selected row.
func (s Selection) Key(i int) string { return s.Table.Keys[s.Rows[i]] }

// Keys returns the row keys of all selected rows, in order.
func (s Selection) Keys() []string {
	keys := make([]string, len(s.Rows))
	for i, r := range s.Rows {
		keys[i] = s.Table.Keys[r]
	}
	return keys
}

// Cell renders column name of the i-th selected row. ok is false when the
// cell is null or the column does not exist.
func (s Selection) Cell(i int, name string) (string, bool) {
	c, found := s.Table.Column(name)
	if !found {
		return "", false
	}
	return c.Text(s.Rows[i])
}

// Filter selects the rows whose column field equals value. The comparison
// uses the column's native kind: string columns compare exactly, number
// columns compare after parsing value as a number; a value that does not
// parse matches nothing. Null cells never match.
//
// An unknown field is an error matching errs.ErrNotFound.
func Filter(t *Table, field, value string) (Selection, error) {
	c, ok := t.Column(field)
	if !ok {
		return Selection{}, errors.Wrapf(errs.ErrNotFound, "column %q", field)
	}

	rows := make([]int, 0)
	switch c.Kind {
	case KindNumber:
		want, err := strconv.ParseFloat(value, 64)
		if err != nil {
			break
		}
		for i, v := range c.Numbers {
			if !c.Null[i] && v == want {
				rows = append(rows, i)
			}
		}
	default:
		for i, v := range c.Strings {
			if !c.Null[i] && v == value {
				rows = append(rows, i)
			}
		}
	}
	return Selection{Table: t, Rows: rows}, nil
}

// Locate selects every row whose key equals id. An absent id is an error
// matching errs.ErrKey.
func Locate(t *Table, id string) (Selection, error) {
	var rows []int
	for i, k := range t.Keys {
		if k == id {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return Selection{}, errors.Wrapf(errs.ErrKey, "sample %q", id)
	}
	return Selection{Table: t, Rows: rows}, nil
}
