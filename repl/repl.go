package repl

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/klundeen/5300-Antelope/execute"
	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/sql/parser"
	"github.com/klundeen/5300-Antelope/sql/stmt"
)

type Executor interface {
	Execute(ctx context.Context, s stmt.Stmt) (*execute.Result, error)
}

type SessionHandler func(ctx context.Context, ex Executor)

type Format int

const (
	// PlainFormat echoes each statement and prints its result as header, separator, rows
	// and message.
	PlainFormat Format = iota
	TableFormat
)

func ParseFormat(s string) (Format, error) {
	switch s {
	case "plain":
		return PlainFormat, nil
	case "table":
		return TableFormat, nil
	}
	return PlainFormat, fmt.Errorf("repl: got %s for format; want plain or table", s)
}

func ReplSQL(ctx context.Context, ex Executor, p parser.Parser, w io.Writer, f Format) {
	for {
		s, err := p.Parse()
		if err == io.EOF {
			return
		} else if err != nil {
			fmt.Fprintf(w, "Error: %s\n", err)
			continue
		}

		res, err := ex.Execute(ctx, s)
		if f == PlainFormat {
			fmt.Fprintln(w, s)
		}
		if err != nil {
			fmt.Fprintf(w, "Error: %s\n", err)
			continue
		}

		if f == TableFormat {
			writeTable(w, res)
		} else {
			fmt.Fprintln(w, res)
		}
	}
}

func writeTable(w io.Writer, res *execute.Result) {
	if res.ColumnNames == nil {
		fmt.Fprintln(w, res.Message)
		return
	}

	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)

	row := make([]string, len(res.ColumnNames))
	for cdx, col := range res.ColumnNames {
		row[cdx] = col.String()
	}
	tw.SetHeader(row)

	for _, r := range res.Rows {
		for cdx, col := range res.ColumnNames {
			if s, ok := r[col].(sql.StringValue); ok {
				row[cdx] = string(s)
			} else {
				row[cdx] = sql.Format(r[col])
			}
		}
		tw.Append(row)
	}
	tw.Render()
	fmt.Fprintf(w, "(%d rows)\n", tw.NumLines())
}

// Handler returns a session which runs the statements read from rr; src names the source in
// parse errors.
func Handler(rr io.RuneReader, w io.Writer, src string, f Format) SessionHandler {
	return func(ctx context.Context, ex Executor) {
		ReplSQL(ctx, ex, parser.NewParser(rr, src), w, f)
	}
}
