package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/storage/encode"
	"github.com/klundeen/5300-Antelope/storage/kv"
)

type heapRelation struct {
	kv    kv.KV
	name  sql.Identifier
	cols  []sql.Identifier
	attrs []sql.ColumnAttribute
	types map[sql.Identifier]sql.ColumnAttribute
}

func (hr *heapRelation) Name() sql.Identifier {
	return hr.name
}

func (hr *heapRelation) Columns() []sql.Identifier {
	return hr.cols
}

func (hr *heapRelation) ColumnAttributes() []sql.ColumnAttribute {
	return hr.attrs
}

func (hr *heapRelation) error(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RelationError{
		Relation: hr.name,
		Op:       op,
		Err:      err,
	}
}

type getter interface {
	Get(key []byte, fn func(val []byte) error) error
}

// header returns the next row id, or ErrNotExist if the relation has not been created.
func (hr *heapRelation) header(g getter) (uint64, error) {
	var next uint64
	err := g.Get(encode.HeaderKey(hr.name),
		func(val []byte) error {
			var err error
			next, err = encode.DecodeHeader(val)
			return err
		})
	if err == io.EOF {
		return 0, ErrNotExist
	}
	return next, err
}

func (hr *heapRelation) setHeader(u kv.Updater, next uint64) error {
	buf, err := encode.EncodeHeader(next)
	if err != nil {
		return err
	}
	return u.Set(encode.HeaderKey(hr.name), buf)
}

func (hr *heapRelation) update(fn func(u kv.Updater) error) error {
	u, err := hr.kv.Update()
	if err != nil {
		return err
	}

	err = fn(u)
	if err != nil {
		u.Rollback()
		return err
	}
	return u.Commit()
}

func (hr *heapRelation) create(ifNotExists bool) error {
	return hr.update(func(u kv.Updater) error {
		_, err := hr.header(u)
		if err == nil {
			if ifNotExists {
				return nil
			}
			return ErrExists
		} else if err != ErrNotExist {
			return err
		}
		return hr.setHeader(u, 1)
	})
}

func (hr *heapRelation) Create(ctx context.Context) error {
	return hr.error("create", hr.create(false))
}

func (hr *heapRelation) CreateIfNotExists(ctx context.Context) error {
	return hr.error("create if not exists", hr.create(true))
}

func (hr *heapRelation) Drop(ctx context.Context) error {
	err := hr.update(func(u kv.Updater) error {
		_, err := hr.header(u)
		if err != nil {
			return err
		}

		it, err := u.Iterate(encode.RowPrefix(hr.name))
		if err != nil {
			return err
		}
		var keys [][]byte
		for {
			err = it.Item(func(key, val []byte) error {
				keys = append(keys, append([]byte(nil), key...))
				return nil
			})
			if err != nil {
				break
			}
		}
		it.Close()
		if err != io.EOF {
			return err
		}

		for _, key := range keys {
			err = u.Delete(key)
			if err != nil {
				return err
			}
		}
		return u.Delete(encode.HeaderKey(hr.name))
	})
	return hr.error("drop", err)
}

func (hr *heapRelation) validate(row sql.Row) error {
	for col, val := range row {
		ca, ok := hr.types[col]
		if !ok {
			return fmt.Errorf("column %s not found", col)
		}
		if !ca.Accepts(val) {
			return fmt.Errorf("column %s: want %s got %s", col, ca, sql.Format(val))
		}
	}
	for _, col := range hr.cols {
		if _, ok := row[col]; !ok {
			return fmt.Errorf("column %s missing", col)
		}
	}
	return nil
}

func (hr *heapRelation) Insert(ctx context.Context, row sql.Row) (Handle, error) {
	err := hr.validate(row)
	if err != nil {
		return 0, hr.error("insert", err)
	}

	var id uint64
	err = hr.update(func(u kv.Updater) error {
		var err error
		id, err = hr.header(u)
		if err != nil {
			return err
		}

		err = u.Set(encode.RowKey(hr.name, id), encode.EncodeRow(row))
		if err != nil {
			return err
		}
		return hr.setHeader(u, id+1)
	})
	if err != nil {
		return 0, hr.error("insert", err)
	}
	return Handle(id), nil
}

func (hr *heapRelation) getRow(g getter, h Handle) (sql.Row, error) {
	var row sql.Row
	err := g.Get(encode.RowKey(hr.name, uint64(h)),
		func(val []byte) error {
			var err error
			row, err = encode.DecodeRow(val)
			return err
		})
	if err == io.EOF {
		return nil, ErrNoRow
	}
	return row, err
}

// Update sets the columns given in row; columns not given keep their values.
func (hr *heapRelation) Update(ctx context.Context, h Handle, row sql.Row) error {
	err := hr.update(func(u kv.Updater) error {
		_, err := hr.header(u)
		if err != nil {
			return err
		}

		cur, err := hr.getRow(u, h)
		if err != nil {
			return err
		}
		for col, val := range row {
			cur[col] = val
		}
		err = hr.validate(cur)
		if err != nil {
			return err
		}
		return u.Set(encode.RowKey(hr.name, uint64(h)), encode.EncodeRow(cur))
	})
	return hr.error("update", err)
}

func (hr *heapRelation) Delete(ctx context.Context, h Handle) error {
	err := hr.update(func(u kv.Updater) error {
		_, err := hr.header(u)
		if err != nil {
			return err
		}

		_, err = hr.getRow(u, h)
		if err != nil {
			return err
		}
		return u.Delete(encode.RowKey(hr.name, uint64(h)))
	})
	return hr.error("delete", err)
}

func (hr *heapRelation) Select(ctx context.Context, where sql.Row) ([]Handle, error) {
	for col := range where {
		if _, ok := hr.types[col]; !ok {
			return nil, hr.error("select", fmt.Errorf("column %s not found", col))
		}
	}

	_, err := hr.header(hr.kv)
	if err != nil {
		return nil, hr.error("select", err)
	}

	it, err := hr.kv.Iterate(encode.RowPrefix(hr.name))
	if err != nil {
		return nil, hr.error("select", err)
	}
	defer it.Close()

	var handles []Handle
	for {
		err = it.Item(func(key, val []byte) error {
			row, err := encode.DecodeRow(val)
			if err != nil {
				return err
			}
			if !row.Matches(where) {
				return nil
			}

			id, err := encode.RowID(hr.name, key)
			if err != nil {
				return err
			}
			handles = append(handles, Handle(id))
			return nil
		})
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, hr.error("select", err)
		}
	}
	return handles, nil
}

func (hr *heapRelation) Project(ctx context.Context, h Handle, cols []sql.Identifier) (sql.Row,
	error) {

	for _, col := range cols {
		if _, ok := hr.types[col]; !ok {
			return nil, hr.error("project", fmt.Errorf("column %s not found", col))
		}
	}

	_, err := hr.header(hr.kv)
	if err != nil {
		return nil, hr.error("project", err)
	}

	row, err := hr.getRow(hr.kv, h)
	if err != nil {
		return nil, hr.error("project", err)
	}
	if cols == nil {
		return row, nil
	}

	ret := sql.Row{}
	for _, col := range cols {
		ret[col] = row[col]
	}
	return ret, nil
}
