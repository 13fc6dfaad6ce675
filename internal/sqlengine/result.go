package sqlengine

import (
	"fmt"
	"time"
)

// Column is one output column: name plus the declared database type. The type
// is diagnostic only; equality is decided over names and normalized cells.
type Column struct {
	Name string
	Type string
}

// ResultSet is the structured output of a query: ordered columns, ordered
// rows. Cells hold only nil, int64, float64, bool, or string after
// normalization, so they compare with plain equality.
type ResultSet struct {
	Columns []Column
	Rows    [][]any
}

// Equal reports structural equality: column names in order, row count, row
// order, and every cell. Cells of different dynamic types are never coerced;
// integer 1 and string "1" are unequal.
func (r ResultSet) Equal(other ResultSet) bool {
	if len(r.Columns) != len(other.Columns) {
		return false
	}
	for idx := range r.Columns {
		if r.Columns[idx].Name != other.Columns[idx].Name {
			return false
		}
	}

	if len(r.Rows) != len(other.Rows) {
		return false
	}
	for rowIdx := range r.Rows {
		left, right := r.Rows[rowIdx], other.Rows[rowIdx]
		if len(left) != len(right) {
			return false
		}
		for cellIdx := range left {
			if !cellsEqual(left[cellIdx], right[cellIdx]) {
				return false
			}
		}
	}

	return true
}

func cellsEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch left := a.(type) {
	case int64:
		right, ok := b.(int64)
		return ok && left == right
	case float64:
		right, ok := b.(float64)
		return ok && left == right
	case bool:
		right, ok := b.(bool)
		return ok && left == right
	case string:
		right, ok := b.(string)
		return ok && left == right
	default:
		// normalizeCell keeps this unreachable; refuse equality rather than
		// guess about an unknown driver type.
		return false
	}
}

// normalizeCell maps driver values onto the small set of comparable cell
// types. Blobs become strings (SQLite text columns frequently scan as []byte)
// and times render in RFC 3339, matching how the engine serializes them.
func normalizeCell(value any) any {
	switch v := value.(type) {
	case nil, int64, float64, bool, string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
