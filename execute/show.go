package execute

import (
	"context"

	"github.com/klundeen/5300-Antelope/catalog"
	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/storage"
)

var (
	showTablesColumns  = []sql.Identifier{catalog.TableNameColumn}
	showColumnsColumns = []sql.Identifier{catalog.TableNameColumn, catalog.ColumnNameColumn,
		catalog.DataTypeColumn}
	showIndexColumns = []sql.Identifier{catalog.TableNameColumn, catalog.IndexNameColumn,
		catalog.ColumnNameColumn, catalog.SeqInIndexColumn, catalog.IndexTypeColumn,
		catalog.IsUniqueColumn}
)

func textAttributes(n int) []sql.ColumnAttribute {
	attrs := make([]sql.ColumnAttribute, n)
	for i := range attrs {
		attrs[i] = sql.TextAttribute
	}
	return attrs
}

// project returns cols of every row of rel matching where; rows for which keep returns false
// are skipped.
func project(ctx context.Context, rel storage.Relation, where sql.Row, cols []sql.Identifier,
	keep func(row sql.Row) bool) (*Result, error) {

	handles, err := rel.Select(ctx, where)
	if err != nil {
		return nil, err
	}

	rows := sql.Rows{}
	for _, h := range handles {
		row, err := rel.Project(ctx, h, cols)
		if err != nil {
			return nil, err
		}
		if keep != nil && !keep(row) {
			continue
		}
		rows = append(rows, row)
	}

	return &Result{
		ColumnNames:      cols,
		ColumnAttributes: textAttributes(len(cols)),
		Rows:             rows,
		Message:          rowsMessage(len(rows)),
	}, nil
}

func (e *Executor) showTables(ctx context.Context) (*Result, error) {
	return project(ctx, e.tables, nil, showTablesColumns,
		func(row sql.Row) bool {
			s, ok := row[catalog.TableNameColumn].(sql.StringValue)
			return !ok || !catalog.IsBootstrap(sql.Identifier(s))
		})
}

func (e *Executor) showColumns(ctx context.Context, tbl sql.Identifier) (*Result, error) {
	columns, err := e.tables.GetTable(ctx, catalog.ColumnsName)
	if err != nil {
		return nil, err
	}
	return project(ctx, columns, sql.Row{catalog.TableNameColumn: sql.StringValue(tbl)},
		showColumnsColumns, nil)
}

func (e *Executor) showIndex(ctx context.Context, tbl sql.Identifier) (*Result, error) {
	indices, err := e.tables.GetTable(ctx, catalog.IndicesName)
	if err != nil {
		return nil, err
	}
	return project(ctx, indices, sql.Row{catalog.TableNameColumn: sql.StringValue(tbl)},
		showIndexColumns, nil)
}
