package kv

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	log "github.com/sirupsen/logrus"
)

type pebbleKV struct {
	mutex sync.Mutex
	db    *pebble.DB
}

type pebbleIterator struct {
	snap   *pebble.Snapshot
	it     *pebble.Iterator
	prefix []byte
}

type pebbleUpdater struct {
	kv    *pebbleKV
	batch *pebble.Batch
	done  bool
}

func MakePebbleKV(dataDir string, logger *log.Logger) (KV, error) {
	err := os.MkdirAll(dataDir, 0755)
	if err != nil {
		return nil, err
	}

	db, err := pebble.Open(dataDir, &pebble.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	return &pebbleKV{
		db: db,
	}, nil
}

type pebbleReader interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func getPebble(r pebbleReader, key []byte, fn func(val []byte) error) error {
	val, closer, err := r.Get(key)
	if err == pebble.ErrNotFound {
		return io.EOF
	} else if err != nil {
		return err
	}
	defer closer.Close()

	return fn(val)
}

func (pkv *pebbleKV) Iterate(prefix []byte) (Iterator, error) {
	snap := pkv.db.NewSnapshot()
	it := snap.NewIter(nil)
	it.SeekGE(prefix)

	return &pebbleIterator{
		snap:   snap,
		it:     it,
		prefix: append(make([]byte, 0, len(prefix)), prefix...),
	}, nil
}

func (pkv *pebbleKV) Get(key []byte, fn func(val []byte) error) error {
	return getPebble(pkv.db, key, fn)
}

func (pkv *pebbleKV) Update() (Updater, error) {
	pkv.mutex.Lock()

	return &pebbleUpdater{
		kv:    pkv,
		batch: pkv.db.NewIndexedBatch(),
	}, nil
}

func (pkv *pebbleKV) Close() error {
	return pkv.db.Close()
}

func (pit *pebbleIterator) Item(fn func(key, val []byte) error) error {
	if !pit.it.Valid() || !bytes.HasPrefix(pit.it.Key(), pit.prefix) {
		return io.EOF
	}

	err := fn(pit.it.Key(), pit.it.Value())
	if err != nil {
		return err
	}

	pit.it.Next()
	return nil
}

func (pit *pebbleIterator) Close() {
	pit.it.Close()
	if pit.snap != nil {
		pit.snap.Close()
	}
}

func (pu *pebbleUpdater) Iterate(prefix []byte) (Iterator, error) {
	it := pu.batch.NewIter(nil)
	it.SeekGE(prefix)

	return &pebbleIterator{
		it:     it,
		prefix: append(make([]byte, 0, len(prefix)), prefix...),
	}, nil
}

func (pu *pebbleUpdater) Get(key []byte, fn func(val []byte) error) error {
	return getPebble(pu.batch, key, fn)
}

func (pu *pebbleUpdater) Set(key, val []byte) error {
	return pu.batch.Set(key, val, nil)
}

func (pu *pebbleUpdater) Delete(key []byte) error {
	return pu.batch.Delete(key, nil)
}

func (pu *pebbleUpdater) Commit() error {
	if pu.done {
		return errUpdaterDone
	}
	pu.done = true

	err := pu.batch.Commit(pebble.NoSync)
	pu.batch.Close()
	pu.kv.mutex.Unlock()
	return err
}

func (pu *pebbleUpdater) Rollback() {
	if pu.done {
		return
	}
	pu.done = true

	pu.batch.Close()
	pu.kv.mutex.Unlock()
}
