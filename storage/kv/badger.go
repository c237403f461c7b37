package kv

import (
	"io"
	"os"
	"sync"

	"github.com/dgraph-io/badger"
	log "github.com/sirupsen/logrus"
)

type badgerKV struct {
	mutex sync.Mutex
	db    *badger.DB
}

type badgerIterator struct {
	tx     *badger.Txn
	it     *badger.Iterator
	prefix []byte
}

type badgerUpdater struct {
	kv   *badgerKV
	tx   *badger.Txn
	done bool
}

func MakeBadgerKV(dataDir string, logger *log.Logger) (KV, error) {
	err := os.MkdirAll(dataDir, 0755)
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dataDir)
	opts = opts.WithBypassLockGuard(true)
	opts = opts.WithLogger(logger)
	opts = opts.WithSyncWrites(false)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerKV{
		db: db,
	}, nil
}

func iterateTxn(tx *badger.Txn, prefix []byte) *badgerIterator {
	it := tx.NewIterator(badger.DefaultIteratorOptions)
	it.Seek(prefix)
	return &badgerIterator{
		it:     it,
		prefix: append(make([]byte, 0, len(prefix)), prefix...),
	}
}

func getTxn(tx *badger.Txn, key []byte, fn func(val []byte) error) error {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return io.EOF
	} else if err != nil {
		return err
	}
	return item.Value(fn)
}

func (bkv *badgerKV) Iterate(prefix []byte) (Iterator, error) {
	tx := bkv.db.NewTransaction(false)
	bit := iterateTxn(tx, prefix)
	bit.tx = tx
	return bit, nil
}

func (bkv *badgerKV) Get(key []byte, fn func(val []byte) error) error {
	tx := bkv.db.NewTransaction(false)
	defer tx.Discard()

	return getTxn(tx, key, fn)
}

func (bkv *badgerKV) Update() (Updater, error) {
	bkv.mutex.Lock()

	return &badgerUpdater{
		kv: bkv,
		tx: bkv.db.NewTransaction(true),
	}, nil
}

func (bkv *badgerKV) Close() error {
	return bkv.db.Close()
}

func (bit *badgerIterator) Item(fn func(key, val []byte) error) error {
	if !bit.it.ValidForPrefix(bit.prefix) {
		return io.EOF
	}

	item := bit.it.Item()
	err := item.Value(
		func(val []byte) error {
			return fn(item.Key(), val)
		})
	if err != nil {
		return err
	}

	bit.it.Next()
	return nil
}

func (bit *badgerIterator) Close() {
	bit.it.Close()
	if bit.tx != nil {
		bit.tx.Discard()
	}
}

func (bu *badgerUpdater) Iterate(prefix []byte) (Iterator, error) {
	return iterateTxn(bu.tx, prefix), nil
}

func (bu *badgerUpdater) Get(key []byte, fn func(val []byte) error) error {
	return getTxn(bu.tx, key, fn)
}

func (bu *badgerUpdater) Set(key, val []byte) error {
	return bu.tx.Set(append(make([]byte, 0, len(key)), key...),
		append(make([]byte, 0, len(val)), val...))
}

func (bu *badgerUpdater) Delete(key []byte) error {
	return bu.tx.Delete(append(make([]byte, 0, len(key)), key...))
}

func (bu *badgerUpdater) Commit() error {
	if bu.done {
		return errUpdaterDone
	}
	bu.done = true

	err := bu.tx.Commit()
	bu.kv.mutex.Unlock()
	return err
}

func (bu *badgerUpdater) Rollback() {
	if bu.done {
		return
	}
	bu.done = true

	bu.tx.Discard()
	bu.kv.mutex.Unlock()
}
