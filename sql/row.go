package sql

import (
	"fmt"
	"sort"
	"strings"
)

// Row maps column names to values; the order of the columns is not significant.
type Row map[Identifier]Value

type Rows []Row

// Matches reports whether every column of where is present in r with an equal value.
func (r Row) Matches(where Row) bool {
	for col, wv := range where {
		v, ok := r[col]
		if !ok || !Equal(v, wv) {
			return false
		}
	}
	return true
}

func (r Row) Copy() Row {
	c := make(Row, len(r))
	for col, v := range r {
		c[col] = v
	}
	return c
}

func (r Row) Columns() []Identifier {
	cols := make([]Identifier, 0, len(r))
	for col := range r {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return cols
}

func (r Row) String() string {
	var b strings.Builder
	b.WriteRune('{')
	for i, col := range r.Columns() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", col, Format(r[col]))
	}
	b.WriteRune('}')
	return b.String()
}
