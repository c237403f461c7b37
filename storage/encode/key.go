package encode

import (
	"encoding/binary"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/klundeen/5300-Antelope/sql"
)

const (
	relationTag = 'r'
	headerTag   = 0
	rowTag      = 1
)

// RelationPrefix is the prefix of every key belonging to the relation. The name is length
// prefixed so that no relation's prefix is a prefix of another relation's.
func RelationPrefix(name sql.Identifier) []byte {
	buf := []byte{relationTag}
	return protowire.AppendBytes(buf, []byte(name))
}

func HeaderKey(name sql.Identifier) []byte {
	return append(RelationPrefix(name), headerTag)
}

func RowPrefix(name sql.Identifier) []byte {
	return append(RelationPrefix(name), rowTag)
}

// RowKey appends the id big endian so that keys sort in id order.
func RowKey(name sql.Identifier, id uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return append(RowPrefix(name), b[:]...)
}

func RowID(name sql.Identifier, key []byte) (uint64, error) {
	prefix := RowPrefix(name)
	if len(key) != len(prefix)+8 || string(key[:len(prefix)]) != string(prefix) {
		return 0, fmt.Errorf("encode: %s: key %v is not a row key", name, key)
	}
	return binary.BigEndian.Uint64(key[len(prefix):]), nil
}
