package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/klundeen/5300-Antelope/sql"
)

// Handle identifies a row within the relation that returned it.
type Handle uint64

type Relation interface {
	Name() sql.Identifier
	Columns() []sql.Identifier
	ColumnAttributes() []sql.ColumnAttribute

	Create(ctx context.Context) error
	CreateIfNotExists(ctx context.Context) error
	Drop(ctx context.Context) error

	Insert(ctx context.Context, row sql.Row) (Handle, error)
	Update(ctx context.Context, h Handle, row sql.Row) error
	Delete(ctx context.Context, h Handle) error

	// Select returns the handles of the rows matching every column of where, in insertion
	// order; an empty where matches every row.
	Select(ctx context.Context, where sql.Row) ([]Handle, error)

	// Project returns the named columns of a row, or every column when cols is nil.
	Project(ctx context.Context, h Handle, cols []sql.Identifier) (sql.Row, error)
}

var (
	ErrExists   = errors.New("relation already exists")
	ErrNotExist = errors.New("relation does not exist")
	ErrNoRow    = errors.New("no such row")
)

// RelationError is returned by every operation of a Relation.
type RelationError struct {
	Relation sql.Identifier
	Op       string
	Err      error
}

func (re *RelationError) Error() string {
	return fmt.Sprintf("storage: %s: %s: %s", re.Relation, re.Op, re.Err)
}

func (re *RelationError) Unwrap() error {
	return re.Err
}
