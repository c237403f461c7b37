package execute

import (
	"context"
	"errors"

	"github.com/klundeen/5300-Antelope/catalog"
	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/sql/stmt"
	"github.com/klundeen/5300-Antelope/storage"
)

func (e *Executor) dropTable(ctx context.Context, s *stmt.DropTable) (*Result, error) {
	// _indices is not protected here; see DROP INDEX.
	if s.Table == catalog.TablesName || s.Table == catalog.ColumnsName {
		return nil, newError(ProtectedObject, "cannot drop a schema table")
	}

	where := sql.Row{catalog.TableNameColumn: sql.StringValue(s.Table)}
	tableHandles, err := e.tables.Select(ctx, where)
	if err != nil {
		return nil, err
	} else if len(tableHandles) == 0 {
		return nil, newError(NoSuchObject, "table %s does not exist", s.Table)
	}

	// The schema must be read before its _columns rows are removed.
	rel, err := e.tables.GetTable(ctx, s.Table)
	if err != nil {
		return nil, err
	}

	columns, err := e.tables.GetTable(ctx, catalog.ColumnsName)
	if err != nil {
		return nil, err
	}
	err = deleteRows(ctx, columns, where)
	if err != nil {
		return nil, err
	}

	indices, err := e.tables.GetTable(ctx, catalog.IndicesName)
	if err != nil {
		return nil, err
	}
	// _indices may itself have been dropped.
	err = deleteRows(ctx, indices, where)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		return nil, err
	}

	err = rel.Drop(ctx)
	if err != nil {
		return nil, err
	}

	for _, h := range tableHandles {
		err = e.tables.Delete(ctx, h)
		if err != nil {
			return nil, err
		}
	}
	return &Result{Message: "dropped " + s.Table.String()}, nil
}

func (e *Executor) dropIndex(ctx context.Context, s *stmt.DropIndex) (*Result, error) {
	if catalog.IsBootstrap(s.Table) {
		return nil, newError(ProtectedObject, "cannot drop index for schema table")
	}

	handles, _, err := e.tables.IndexRows(ctx,
		sql.Row{
			catalog.TableNameColumn: sql.StringValue(s.Table),
			catalog.IndexNameColumn: sql.StringValue(s.Index),
		})
	if err != nil {
		return nil, err
	} else if len(handles) == 0 {
		return nil, newError(NoSuchObject, "index %s on %s does not exist", s.Index, s.Table)
	}

	indices, err := e.tables.GetTable(ctx, catalog.IndicesName)
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		err = indices.Delete(ctx, h)
		if err != nil {
			return nil, err
		}
	}
	return &Result{Message: "dropped index " + s.Index.String()}, nil
}

func deleteRows(ctx context.Context, rel storage.Relation, where sql.Row) error {
	handles, err := rel.Select(ctx, where)
	if err != nil {
		return err
	}
	for _, h := range handles {
		err = rel.Delete(ctx, h)
		if err != nil {
			return err
		}
	}
	return nil
}
