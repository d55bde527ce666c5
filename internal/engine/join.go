package engine

// InnerJoin merges left and right on their row keys. A key must be present
// in both tables for a row to appear; a key repeated on either side yields
// every pairing. Rows follow left order, then right order within a key.
//
// Columns are left's followed by right's. A name present on both sides is
// suffixed "_x" (left) and "_y" (right).
func InnerJoin(left, right *Table, indexName string) *Table {
	// 1. Right-side lookup: key -> row numbers, in table order
	rightRows := make(map[string][]int, right.Len())
	for i, k := range right.Keys {
		rightRows[k] = append(rightRows[k], i)
	}

	// 2. Output schema
	leftNames := make(map[string]bool, len(left.Columns))
	for _, c := range left.Columns {
		leftNames[c.Name] = true
	}
	shared := make(map[string]bool)
	for _, c := range right.Columns {
		if leftNames[c.Name] {
			shared[c.Name] = true
		}
	}

	out := &Table{IndexName: indexName}
	for _, c := range left.Columns {
		out.Columns = append(out.Columns, Column{Name: joinedName(c.Name, "_x", shared), Kind: c.Kind})
	}
	for _, c := range right.Columns {
		out.Columns = append(out.Columns, Column{Name: joinedName(c.Name, "_y", shared), Kind: c.Kind})
	}

	// 3. Merge phase
	nl := len(left.Columns)
	for i, k := range left.Keys {
		for _, j := range rightRows[k] {
			out.Keys = append(out.Keys, k)
			for c := range left.Columns {
				out.Columns[c].appendFrom(&left.Columns[c], i)
			}
			for c := range right.Columns {
				out.Columns[nl+c].appendFrom(&right.Columns[c], j)
			}
		}
	}
	return out
}

func joinedName(name, suffix string, shared map[string]bool) string {
	if shared[name] {
		return name + suffix
	}
	return name
}
