package kv

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	antelopeBucket = []byte("antelope")
)

type bboltKV struct {
	db *bbolt.DB
}

type bboltIterator struct {
	tx     *bbolt.Tx
	cr     *bbolt.Cursor
	prefix []byte
	next   bool
}

type bboltUpdater struct {
	tx   *bbolt.Tx
	bkt  *bbolt.Bucket
	done bool
}

func MakeBBoltKV(dataDir string) (KV, error) {
	err := os.MkdirAll(dataDir, 0755)
	if err != nil {
		return nil, err
	}

	db, err := bbolt.Open(filepath.Join(dataDir, "antelope.bbolt"), 0644, nil)
	if err != nil {
		return nil, err
	}
	db.NoFreelistSync = true

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(antelopeBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return bboltKV{
		db: db,
	}, nil
}

func (bkv bboltKV) begin(writable bool) (*bbolt.Tx, *bbolt.Bucket, error) {
	tx, err := bkv.db.Begin(writable)
	if err != nil {
		return nil, nil, fmt.Errorf("bbolt: begin failed: %w", err)
	}
	bkt := tx.Bucket(antelopeBucket)
	if bkt == nil {
		tx.Rollback()
		return nil, nil, errors.New("bbolt: missing antelope bucket")
	}
	return tx, bkt, nil
}

func (bkv bboltKV) Iterate(prefix []byte) (Iterator, error) {
	tx, bkt, err := bkv.begin(false)
	if err != nil {
		return nil, err
	}

	return &bboltIterator{
		tx:     tx,
		cr:     bkt.Cursor(),
		prefix: append(make([]byte, 0, len(prefix)), prefix...),
	}, nil
}

func (bkv bboltKV) Get(key []byte, fn func(val []byte) error) error {
	tx, bkt, err := bkv.begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	return getBucket(bkt, key, fn)
}

func (bkv bboltKV) Update() (Updater, error) {
	tx, bkt, err := bkv.begin(true)
	if err != nil {
		return nil, err
	}
	return &bboltUpdater{
		tx:  tx,
		bkt: bkt,
	}, nil
}

func (bkv bboltKV) Close() error {
	return bkv.db.Close()
}

func getBucket(bkt *bbolt.Bucket, key []byte, fn func(val []byte) error) error {
	val := bkt.Get(key)
	if val == nil {
		return io.EOF
	}
	return fn(val)
}

func (bit *bboltIterator) Item(fn func(key, val []byte) error) error {
	var key, val []byte
	if bit.next {
		key, val = bit.cr.Next()
	} else {
		key, val = bit.cr.Seek(bit.prefix)
		bit.next = true
	}

	if key == nil || !bytes.HasPrefix(key, bit.prefix) {
		return io.EOF
	}

	return fn(key, val)
}

func (bit *bboltIterator) Close() {
	if bit.tx != nil {
		bit.tx.Rollback()
		bit.tx = nil
	}
}

func (bu *bboltUpdater) Iterate(prefix []byte) (Iterator, error) {
	return &bboltIterator{
		cr:     bu.bkt.Cursor(),
		prefix: append(make([]byte, 0, len(prefix)), prefix...),
	}, nil
}

func (bu *bboltUpdater) Get(key []byte, fn func(val []byte) error) error {
	return getBucket(bu.bkt, key, fn)
}

func (bu *bboltUpdater) Set(key, val []byte) error {
	return bu.bkt.Put(key, val)
}

func (bu *bboltUpdater) Delete(key []byte) error {
	return bu.bkt.Delete(key)
}

func (bu *bboltUpdater) Commit() error {
	if bu.done {
		return errUpdaterDone
	}
	bu.done = true
	return bu.tx.Commit()
}

func (bu *bboltUpdater) Rollback() {
	if bu.done {
		return
	}
	bu.done = true
	bu.tx.Rollback()
}
