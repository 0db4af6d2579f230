package engine

import (
	"pngdb/db/parser"
	"pngdb/db/storage"
)

// ScanNode is a full table scan with an optional predicate. There are no
// indexes, so it is the only plan.
type ScanNode struct {
	Table     *storage.Table
	Predicate func(storage.Row) bool
}

// Execute returns matching rows in insertion order.
func (n *ScanNode) Execute() []storage.Row {
	results := []storage.Row{}
	n.Table.Scan(func(_ int, row storage.Row) bool {
		if n.Predicate != nil && !n.Predicate(row) {
			return true // Continue
		}
		results = append(results, row.Clone())
		return true
	})
	return results
}

// CreatePlan binds a parsed WHERE clause to the table's schema.
// A nil expression scans every row.
func CreatePlan(t *storage.Table, where parser.Expression) (*ScanNode, error) {
	if where == nil {
		return &ScanNode{Table: t}, nil
	}
	pred, err := bind(where, t.Def)
	if err != nil {
		return nil, err
	}
	return &ScanNode{Table: t, Predicate: pred}, nil
}
