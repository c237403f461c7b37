package kv

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Iterator walks the keys with a given prefix in ascending order. Item returns io.EOF once
// there are no more keys. The key and value passed to fn are only valid during the call.
type Iterator interface {
	Item(fn func(key, val []byte) error) error
	Close()
}

// Updater is a single atomic update. Reads through an Updater see its own writes.
type Updater interface {
	Iterate(prefix []byte) (Iterator, error)
	Get(key []byte, fn func(val []byte) error) error
	Set(key, val []byte) error
	Delete(key []byte) error
	Commit() error
	Rollback()
}

// KV is an ordered key value store; Get returns io.EOF for a missing key.
type KV interface {
	Iterate(prefix []byte) (Iterator, error)
	Get(key []byte, fn func(val []byte) error) error
	Update() (Updater, error)
	Close() error
}

var errUpdaterDone = errors.New("kv: update already committed or rolled back")

var Names = []string{"btree", "bbolt", "badger", "pebble"}

func Open(name, dataDir string, logger *log.Logger) (KV, error) {
	switch name {
	case "btree":
		return MakeBTreeKV()
	case "bbolt":
		return MakeBBoltKV(dataDir)
	case "badger":
		return MakeBadgerKV(dataDir, logger)
	case "pebble":
		return MakePebbleKV(dataDir, logger)
	}
	return nil, fmt.Errorf("kv: %s: unknown store; want one of %v", name, Names)
}
