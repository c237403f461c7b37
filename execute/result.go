package execute

import (
	"fmt"
	"strings"

	"github.com/klundeen/5300-Antelope/sql"
)

// Result is the outcome of a statement. Only statements that return rows set ColumnNames,
// ColumnAttributes and Rows.
type Result struct {
	ColumnNames      []sql.Identifier
	ColumnAttributes []sql.ColumnAttribute
	Rows             sql.Rows
	Message          string
}

func (res *Result) String() string {
	var b strings.Builder

	if res.ColumnNames != nil {
		for _, col := range res.ColumnNames {
			fmt.Fprintf(&b, "%s ", col)
		}
		b.WriteString("\n+")
		for range res.ColumnNames {
			b.WriteString("----------+")
		}
		b.WriteString("\n")

		for _, row := range res.Rows {
			for _, col := range res.ColumnNames {
				fmt.Fprintf(&b, "%s ", sql.Format(row[col]))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(res.Message)
	return b.String()
}

func rowsMessage(n int) string {
	return fmt.Sprintf("successfully returned %d rows", n)
}
