package storage

import (
	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/storage/kv"
)

type Store struct {
	name string
	kv   kv.KV
}

func NewStore(name string, st kv.KV) *Store {
	return &Store{
		name: name,
		kv:   st,
	}
}

func (st *Store) Name() string {
	return st.name
}

// Relation returns the heap relation with the given schema. Nothing is read or written until
// an operation is called on the relation.
func (st *Store) Relation(name sql.Identifier, cols []sql.Identifier,
	attrs []sql.ColumnAttribute) Relation {

	if len(cols) != len(attrs) {
		panic("storage: relation columns and attributes must be the same length")
	}

	hr := &heapRelation{
		kv:    st.kv,
		name:  name,
		cols:  append([]sql.Identifier(nil), cols...),
		attrs: append([]sql.ColumnAttribute(nil), attrs...),
		types: map[sql.Identifier]sql.ColumnAttribute{},
	}
	for cdx, col := range cols {
		hr.types[col] = attrs[cdx]
	}
	return hr
}

func (st *Store) Close() error {
	return st.kv.Close()
}
