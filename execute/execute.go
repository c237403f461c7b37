package execute

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/klundeen/5300-Antelope/catalog"
	"github.com/klundeen/5300-Antelope/sql/stmt"
)

// Executor runs DDL statements against a catalog. It runs one statement at a time; callers
// that share an Executor must serialize calls to Execute.
type Executor struct {
	tables *catalog.Tables
}

func NewExecutor(tables *catalog.Tables) *Executor {
	return &Executor{
		tables: tables,
	}
}

func (e *Executor) Tables() *catalog.Tables {
	return e.tables
}

// Execute runs s. Every error returned is an *Error; failures of the storage layer are returned
// with kind RelationFailure.
func (e *Executor) Execute(ctx context.Context, s stmt.Stmt) (*Result, error) {
	log.WithField("stmt", s).Debug("execute")

	res, err := e.execute(ctx, s)
	if err != nil {
		if _, ok := err.(*Error); !ok {
			err = &Error{
				Kind: RelationFailure,
				Msg:  "relation error",
				Err:  err,
			}
		}
		log.WithField("stmt", s).WithError(err).Debug("execute failed")
		return nil, err
	}
	return res, nil
}

func (e *Executor) execute(ctx context.Context, s stmt.Stmt) (*Result, error) {
	switch s := s.(type) {
	case *stmt.CreateTable:
		return e.createTable(ctx, s)
	case *stmt.CreateIndex:
		return e.createIndex(ctx, s)
	case *stmt.DropTable:
		return e.dropTable(ctx, s)
	case *stmt.DropIndex:
		return e.dropIndex(ctx, s)
	case *stmt.Show:
		switch s.Type {
		case stmt.ShowTables:
			return e.showTables(ctx)
		case stmt.ShowColumns:
			return e.showColumns(ctx, s.Table)
		case stmt.ShowIndex:
			return e.showIndex(ctx, s.Table)
		}
		return nil, newError(UnknownStatement, "unrecognized SHOW type")
	case nil:
		return nil, newError(UnknownStatement, "no statement")
	}
	return &Result{Message: "not implemented"}, nil
}
