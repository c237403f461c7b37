package execute

import (
	"context"

	"github.com/klundeen/5300-Antelope/catalog"
	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/sql/stmt"
	"github.com/klundeen/5300-Antelope/storage"
)

// columnDefinition translates a declared column; only INT and TEXT columns can be created.
func columnDefinition(cd stmt.ColumnDef) (sql.Identifier, sql.ColumnAttribute, error) {
	switch cd.Type {
	case stmt.IntType:
		return cd.Name, sql.IntegerAttribute, nil
	case stmt.TextType:
		return cd.Name, sql.TextAttribute, nil
	}
	return "", sql.ColumnAttribute{}, newError(UnsupportedType, "unrecognized data type")
}

func (e *Executor) createTable(ctx context.Context, s *stmt.CreateTable) (res *Result,
	err error) {

	var cols []sql.Identifier
	var attrs []sql.ColumnAttribute
	for _, cd := range s.Columns {
		col, attr, err := columnDefinition(cd)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		attrs = append(attrs, attr)
	}

	if s.IfNotExists {
		exists, err := e.tables.Exists(ctx, s.Table)
		if err != nil {
			return nil, err
		}
		if exists {
			rel, err := e.tables.GetTable(ctx, s.Table)
			if err != nil {
				return nil, err
			}
			err = rel.CreateIfNotExists(ctx)
			if err != nil {
				return nil, err
			}
			return &Result{Message: "created " + s.Table.String()}, nil
		}
	}

	columns, err := e.tables.GetTable(ctx, catalog.ColumnsName)
	if err != nil {
		return nil, err
	}

	var ul undoLog
	defer ul.rollback(ctx, &err)

	err = ul.insert(ctx, e.tables, sql.Row{catalog.TableNameColumn: sql.StringValue(s.Table)})
	if err != nil {
		return nil, err
	}
	for cdx, col := range cols {
		var h storage.Handle
		h, err = e.tables.InsertColumn(ctx,
			catalog.ColumnRow{
				TableName:  s.Table.String(),
				ColumnName: col.String(),
				DataType:   attrs[cdx].Type.String(),
			})
		if err != nil {
			return nil, err
		}
		ul.add(columns, h)
	}

	rel, err := e.tables.GetTable(ctx, s.Table)
	if err != nil {
		return nil, err
	}
	if s.IfNotExists {
		err = rel.CreateIfNotExists(ctx)
	} else {
		err = rel.Create(ctx)
	}
	if err != nil {
		return nil, err
	}

	ul.commit()
	return &Result{Message: "created " + s.Table.String()}, nil
}

func (e *Executor) createIndex(ctx context.Context, s *stmt.CreateIndex) (res *Result,
	err error) {

	if catalog.IsBootstrap(s.Table) {
		return nil, newError(ProtectedObject, "cannot create index for schema table")
	}

	exists, err := e.tables.Exists(ctx, s.Table)
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, newError(NoSuchObject, "table %s does not exist", s.Table)
	}

	cols, _, err := e.tables.GetColumns(ctx, s.Table)
	if err != nil {
		return nil, err
	}
	for _, col := range s.Columns {
		found := false
		for _, c := range cols {
			if c == col {
				found = true
				break
			}
		}
		if !found {
			return nil, newError(NoSuchObject, "column %s does not exist in %s", col, s.Table)
		}
	}

	handles, _, err := e.tables.IndexRows(ctx,
		sql.Row{
			catalog.TableNameColumn: sql.StringValue(s.Table),
			catalog.IndexNameColumn: sql.StringValue(s.Index),
		})
	if err != nil {
		return nil, err
	} else if len(handles) > 0 {
		return nil, newError(DuplicateIndex, "duplicate index %s on %s", s.Index, s.Table)
	}

	indices, err := e.tables.GetTable(ctx, catalog.IndicesName)
	if err != nil {
		return nil, err
	}

	var ul undoLog
	defer ul.rollback(ctx, &err)

	for cdx, col := range s.Columns {
		var h storage.Handle
		h, err = e.tables.InsertIndex(ctx,
			catalog.IndexRow{
				TableName:  s.Table.String(),
				IndexName:  s.Index.String(),
				ColumnName: col.String(),
				SeqInIndex: int64(cdx + 1),
				IndexType:  s.IndexType,
				IsUnique:   s.IndexType == stmt.BTreeIndex,
			})
		if err != nil {
			return nil, err
		}
		ul.add(indices, h)
	}

	ul.commit()
	return &Result{Message: "created index " + s.Index.String()}, nil
}
