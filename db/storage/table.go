package storage

import (
	"errors"
	"fmt"

	"pngdb/db/schema"
	"pngdb/db/types"
)

// ErrOutOfBounds matches every *BoundsError via errors.Is.
var ErrOutOfBounds = errors.New("coordinates out of bounds")

// BoundsError reports coordinates outside the image.
type BoundsError struct {
	X, Y          uint32
	Width, Height uint32
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("coordinates (%d, %d) out of bounds for %dx%d image", e.X, e.Y, e.Width, e.Height)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// Table is the ordered row store of a database. Insertion order is kept
// and is the order of Rows and Scan.
// Not safe for concurrent use.
type Table struct {
	Width  uint32
	Height uint32
	Def    *schema.Schema
	rows   []Row
}

// NewTable creates a new empty table bound to the image dimensions.
func NewTable(width, height uint32, def *schema.Schema) *Table {
	return &Table{
		Width:  width,
		Height: height,
		Def:    def,
	}
}

// CheckBounds returns a *BoundsError unless x < Width and y < Height.
func (t *Table) CheckBounds(x, y uint32) error {
	if x >= t.Width || y >= t.Height {
		return &BoundsError{X: x, Y: y, Width: t.Width, Height: t.Height}
	}
	return nil
}

// Insert appends a row after checking bounds and schema conformance.
// On error the table is unchanged.
func (t *Table) Insert(x, y uint32, data map[string]types.Value) error {
	if err := t.CheckBounds(x, y); err != nil {
		return err
	}
	if err := t.Def.Validate(data); err != nil {
		return err
	}
	t.rows = append(t.rows, Row{X: x, Y: y, Data: data}.Clone())
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Scan iterates over rows in insertion order. Stops if yield returns false.
// The row passed to yield must not be modified.
func (t *Table) Scan(yield func(i int, row Row) bool) {
	for i, r := range t.rows {
		if !yield(i, r) {
			break
		}
	}
}

// Rows returns a copy of all rows in insertion order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Clone()
	}
	return out
}
