package execute

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/storage"
)

type undoEntry struct {
	rel storage.Relation
	h   storage.Handle
}

// undoLog records the catalog rows inserted by a statement so that they can be deleted again if
// a later step of the statement fails.
type undoLog struct {
	entries   []undoEntry
	committed bool
}

func (ul *undoLog) insert(ctx context.Context, rel storage.Relation, row sql.Row) error {
	h, err := rel.Insert(ctx, row)
	if err != nil {
		return err
	}
	ul.add(rel, h)
	return nil
}

// add records a row of rel inserted by the caller.
func (ul *undoLog) add(rel storage.Relation, h storage.Handle) {
	ul.entries = append(ul.entries, undoEntry{rel: rel, h: h})
}

func (ul *undoLog) commit() {
	ul.committed = true
}

// rollback deletes the recorded rows in reverse order unless the log was committed or *errp is
// nil. Errors while deleting are logged; *errp is never changed.
func (ul *undoLog) rollback(ctx context.Context, errp *error) {
	if ul.committed || *errp == nil {
		return
	}

	for i := len(ul.entries) - 1; i >= 0; i-- {
		ue := ul.entries[i]
		err := ue.rel.Delete(ctx, ue.h)
		if err != nil {
			log.WithFields(log.Fields{
				"relation": ue.rel.Name(),
				"handle":   ue.h,
				"cause":    *errp,
			}).WithError(err).Warn("execute: undo failed")
		} else {
			log.WithFields(log.Fields{
				"relation": ue.rel.Name(),
				"handle":   ue.h,
			}).Debug("execute: undo")
		}
	}
	ul.entries = nil
}
