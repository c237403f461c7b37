package util

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/storage"
)

type columnField struct {
	col      sql.Identifier
	dataType sql.DataType
	index    int
}

// TypedRelation maps the rows of a relation to and from structs. A struct field is matched to
// the column whose name, with underscores removed, equals the field name ignoring case; so
// field TableName holds column table_name. Every column must have a field.
type TypedRelation struct {
	rel       storage.Relation
	rowType   reflect.Type
	rowFields []columnField
}

func MakeTypedRelation(rel storage.Relation) *TypedRelation {
	return &TypedRelation{
		rel: rel,
	}
}

func (trel *TypedRelation) Relation() storage.Relation {
	return trel.rel
}

func (trel *TypedRelation) makeColumnField(col sql.Identifier, ca sql.ColumnAttribute,
	sf reflect.StructField) columnField {

	var kind reflect.Kind
	switch ca.Type {
	case sql.BooleanType:
		kind = reflect.Bool
	case sql.IntegerType:
		kind = reflect.Int64
	case sql.TextType:
		kind = reflect.String
	default:
		panic(fmt.Sprintf("typed relation: %s: column %s has unexpected type %s",
			trel.rel.Name(), col, ca))
	}
	if sf.Type.Kind() != kind {
		panic(fmt.Sprintf("typed relation: %s: column %s is %s; struct field %s is %s",
			trel.rel.Name(), col, kind, sf.Name, sf.Type.String()))
	}

	return columnField{
		col:      col,
		dataType: ca.Type,
		index:    sf.Index[0],
	}
}

func (trel *TypedRelation) makeRowFields(rowType reflect.Type) []columnField {
	fields := map[string]reflect.StructField{}
	nf := rowType.NumField()
	for fdx := 0; fdx < nf; fdx++ {
		sf := rowType.Field(fdx)
		fields[strings.ToLower(sf.Name)] = sf
	}

	var rowFields []columnField
	attrs := trel.rel.ColumnAttributes()
	for cdx, col := range trel.rel.Columns() {
		sf, ok := fields[strings.ReplaceAll(strings.ToLower(col.String()), "_", "")]
		if !ok {
			panic(fmt.Sprintf("typed relation: %s: column %s not found in %s", trel.rel.Name(),
				col, rowType))
		}
		rowFields = append(rowFields, trel.makeColumnField(col, attrs[cdx], sf))
	}
	return rowFields
}

func (trel *TypedRelation) structValue(nam string, obj interface{}, ptr bool) reflect.Value {
	rowType := reflect.TypeOf(obj)
	rowVal := reflect.ValueOf(obj)
	if rowType.Kind() == reflect.Ptr {
		rowType = rowType.Elem()
		rowVal = rowVal.Elem()
	} else if ptr {
		panic(fmt.Sprintf("typed relation: %s must be a pointer to a struct; got %v", nam, obj))
	}
	if rowType.Kind() != reflect.Struct {
		panic(fmt.Sprintf("typed relation: %s must be a struct or a pointer to a struct; got %v",
			nam, obj))
	}
	if rowType != trel.rowType {
		trel.rowFields = trel.makeRowFields(rowType)
		trel.rowType = rowType
	}
	return rowVal
}

// MakeRow converts rowObj, a struct or a pointer to a struct, to a row.
func (trel *TypedRelation) MakeRow(rowObj interface{}) sql.Row {
	rowVal := trel.structValue("rowObj", rowObj, false)

	row := sql.Row{}
	for _, cf := range trel.rowFields {
		v := rowVal.Field(cf.index)
		switch cf.dataType {
		case sql.BooleanType:
			row[cf.col] = sql.BoolValue(v.Bool())
		case sql.IntegerType:
			row[cf.col] = sql.Int64Value(v.Int())
		case sql.TextType:
			row[cf.col] = sql.StringValue(v.String())
		}
	}
	return row
}

func (trel *TypedRelation) Insert(ctx context.Context, rowObj interface{}) (storage.Handle,
	error) {

	return trel.rel.Insert(ctx, trel.MakeRow(rowObj))
}

// Scan projects the row identified by h into destObj, which must be a pointer to a struct.
func (trel *TypedRelation) Scan(ctx context.Context, h storage.Handle,
	destObj interface{}) error {

	rowVal := trel.structValue("destObj", destObj, true)

	row, err := trel.rel.Project(ctx, h, nil)
	if err != nil {
		return err
	}

	for _, cf := range trel.rowFields {
		v := rowVal.Field(cf.index)
		switch val := row[cf.col].(type) {
		case nil:
			v.Set(reflect.Zero(v.Type()))
		case sql.BoolValue:
			v.SetBool(bool(val))
		case sql.Int64Value:
			v.SetInt(int64(val))
		case sql.StringValue:
			v.SetString(string(val))
		}
	}
	return nil
}

// Rows selects the rows matching where and scans each into a new value of the type of
// rowObj, calling fn with the handle and a pointer to the value.
func (trel *TypedRelation) Rows(ctx context.Context, where sql.Row, rowObj interface{},
	fn func(h storage.Handle, obj interface{}) error) error {

	handles, err := trel.rel.Select(ctx, where)
	if err != nil {
		return err
	}

	rowType := reflect.TypeOf(rowObj)
	if rowType.Kind() == reflect.Ptr {
		rowType = rowType.Elem()
	}
	for _, h := range handles {
		obj := reflect.New(rowType).Interface()
		err = trel.Scan(ctx, h, obj)
		if err != nil {
			return err
		}
		err = fn(h, obj)
		if err != nil {
			return err
		}
	}
	return nil
}
