package catalog

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/storage"
	"github.com/klundeen/5300-Antelope/storage/util"
)

var (
	TablesName  = sql.ID("_tables")
	ColumnsName = sql.ID("_columns")
	IndicesName = sql.ID("_indices")

	TableNameColumn  = sql.ID("table_name")
	ColumnNameColumn = sql.ID("column_name")
	DataTypeColumn   = sql.ID("data_type")
	IndexNameColumn  = sql.ID("index_name")
	SeqInIndexColumn = sql.ID("seq_in_index")
	IndexTypeColumn  = sql.ID("index_type")
	IsUniqueColumn   = sql.ID("is_unique")
)

type TableRow struct {
	TableName string
}

type ColumnRow struct {
	TableName  string
	ColumnName string
	DataType   string
}

type IndexRow struct {
	TableName  string
	IndexName  string
	ColumnName string
	SeqInIndex int64
	IndexType  string
	IsUnique   bool
}

type bootstrapTable struct {
	name  sql.Identifier
	cols  []sql.Identifier
	attrs []sql.ColumnAttribute
}

var bootstrap = []bootstrapTable{
	{
		name:  TablesName,
		cols:  []sql.Identifier{TableNameColumn},
		attrs: []sql.ColumnAttribute{sql.TextAttribute},
	},
	{
		name:  ColumnsName,
		cols:  []sql.Identifier{TableNameColumn, ColumnNameColumn, DataTypeColumn},
		attrs: []sql.ColumnAttribute{sql.TextAttribute, sql.TextAttribute, sql.TextAttribute},
	},
	{
		name: IndicesName,
		cols: []sql.Identifier{TableNameColumn, IndexNameColumn, ColumnNameColumn,
			SeqInIndexColumn, IndexTypeColumn, IsUniqueColumn},
		attrs: []sql.ColumnAttribute{sql.TextAttribute, sql.TextAttribute, sql.TextAttribute,
			sql.IntegerAttribute, sql.TextAttribute, sql.BooleanAttribute},
	},
}

func IsBootstrap(name sql.Identifier) bool {
	return name == TablesName || name == ColumnsName || name == IndicesName
}

// Tables is the _tables relation together with lookup of every other relation by name.
type Tables struct {
	storage.Relation

	store   *storage.Store
	columns storage.Relation
	indices storage.Relation

	typedTables  *util.TypedRelation
	typedColumns *util.TypedRelation
	typedIndices *util.TypedRelation

	mutex sync.Mutex
	cache map[sql.Identifier]storage.Relation
}

// Open returns the catalog of st, creating the bootstrap relations and their catalog rows if
// they are missing.
func Open(ctx context.Context, st *storage.Store) (*Tables, error) {
	var rels []storage.Relation
	for _, bt := range bootstrap {
		rel := st.Relation(bt.name, bt.cols, bt.attrs)
		err := rel.CreateIfNotExists(ctx)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}

	tbls := &Tables{
		Relation:     rels[0],
		store:        st,
		columns:      rels[1],
		indices:      rels[2],
		typedTables:  util.MakeTypedRelation(rels[0]),
		typedColumns: util.MakeTypedRelation(rels[1]),
		typedIndices: util.MakeTypedRelation(rels[2]),
		cache:        map[sql.Identifier]storage.Relation{},
	}

	for _, bt := range bootstrap {
		err := tbls.bootstrapTable(ctx, bt)
		if err != nil {
			return nil, err
		}
	}
	return tbls, nil
}

func (tbls *Tables) bootstrapTable(ctx context.Context, bt bootstrapTable) error {
	handles, err := tbls.Relation.Select(ctx,
		sql.Row{TableNameColumn: sql.StringValue(bt.name)})
	if err != nil {
		return err
	} else if len(handles) > 0 {
		return nil
	}

	log.WithFields(log.Fields{
		"store": tbls.store.Name(),
		"table": bt.name,
	}).Info("catalog: bootstrapping")

	_, err = tbls.typedTables.Insert(ctx, TableRow{TableName: bt.name.String()})
	if err != nil {
		return err
	}
	for cdx, col := range bt.cols {
		_, err = tbls.typedColumns.Insert(ctx,
			ColumnRow{
				TableName:  bt.name.String(),
				ColumnName: col.String(),
				DataType:   bt.attrs[cdx].Type.String(),
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (tbls *Tables) Store() *storage.Store {
	return tbls.store
}

// Delete deletes a row of _tables and forgets any relation cached for the deleted name.
func (tbls *Tables) Delete(ctx context.Context, h storage.Handle) error {
	var tr TableRow
	err := tbls.typedTables.Scan(ctx, h, &tr)
	if err != nil {
		return err
	}

	err = tbls.Relation.Delete(ctx, h)
	if err != nil {
		return err
	}

	tbls.mutex.Lock()
	delete(tbls.cache, sql.Identifier(tr.TableName))
	tbls.mutex.Unlock()
	return nil
}

// Exists reports whether name has a row in _tables.
func (tbls *Tables) Exists(ctx context.Context, name sql.Identifier) (bool, error) {
	handles, err := tbls.Relation.Select(ctx, sql.Row{TableNameColumn: sql.StringValue(name)})
	if err != nil {
		return false, err
	}
	return len(handles) > 0, nil
}

// GetColumns returns the columns of name recorded in _columns, in the order they were
// recorded.
func (tbls *Tables) GetColumns(ctx context.Context, name sql.Identifier) ([]sql.Identifier,
	[]sql.ColumnAttribute, error) {

	var cols []sql.Identifier
	var attrs []sql.ColumnAttribute
	err := tbls.typedColumns.Rows(ctx, sql.Row{TableNameColumn: sql.StringValue(name)},
		ColumnRow{},
		func(h storage.Handle, obj interface{}) error {
			cr := obj.(*ColumnRow)
			dt, ok := sql.ParseDataType(cr.DataType)
			if !ok {
				return fmt.Errorf("catalog: %s: column %s: unexpected data type %s", name,
					cr.ColumnName, cr.DataType)
			}
			cols = append(cols, sql.Identifier(cr.ColumnName))
			attrs = append(attrs, sql.ColumnAttribute{Type: dt})
			return nil
		})
	if err != nil {
		return nil, nil, err
	}
	return cols, attrs, nil
}

// GetTable returns the relation for name. The schema of a relation other than the bootstrap
// relations is read from _columns; it is cached once name has a row in _tables.
func (tbls *Tables) GetTable(ctx context.Context, name sql.Identifier) (storage.Relation,
	error) {

	switch name {
	case TablesName:
		return tbls, nil
	case ColumnsName:
		return tbls.columns, nil
	case IndicesName:
		return tbls.indices, nil
	}

	tbls.mutex.Lock()
	rel, ok := tbls.cache[name]
	tbls.mutex.Unlock()
	if ok {
		return rel, nil
	}

	cols, attrs, err := tbls.GetColumns(ctx, name)
	if err != nil {
		return nil, err
	}
	rel = tbls.store.Relation(name, cols, attrs)

	exists, err := tbls.Exists(ctx, name)
	if err != nil {
		return nil, err
	} else if !exists {
		return rel, nil
	}

	tbls.mutex.Lock()
	tbls.cache[name] = rel
	tbls.mutex.Unlock()
	return rel, nil
}

// IndexRows returns the _indices rows matching where, with their handles.
func (tbls *Tables) IndexRows(ctx context.Context, where sql.Row) ([]storage.Handle,
	[]IndexRow, error) {

	var handles []storage.Handle
	var rows []IndexRow
	err := tbls.typedIndices.Rows(ctx, where, IndexRow{},
		func(h storage.Handle, obj interface{}) error {
			handles = append(handles, h)
			rows = append(rows, *obj.(*IndexRow))
			return nil
		})
	if err != nil {
		return nil, nil, err
	}
	return handles, rows, nil
}

// InsertIndex adds one row to _indices.
func (tbls *Tables) InsertIndex(ctx context.Context, ir IndexRow) (storage.Handle, error) {
	return tbls.typedIndices.Insert(ctx, ir)
}

// InsertColumn adds one row to _columns.
func (tbls *Tables) InsertColumn(ctx context.Context, cr ColumnRow) (storage.Handle, error) {
	return tbls.typedColumns.Insert(ctx, cr)
}
