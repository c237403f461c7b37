package encode

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/klundeen/5300-Antelope/sql"
)

// A row is a sequence of column entries, each a length delimited message holding the column
// name and at most one value field; a missing value field is NULL.
const (
	columnField = 1

	nameField   = 1
	boolField   = 2
	int64Field  = 3
	stringField = 4
)

var errCorrupt = errors.New("encode: corrupt row")

func EncodeRow(row sql.Row) []byte {
	var buf []byte
	for _, col := range row.Columns() {
		var entry []byte
		entry = protowire.AppendTag(entry, nameField, protowire.BytesType)
		entry = protowire.AppendString(entry, string(col))

		switch val := row[col].(type) {
		case nil:
		case sql.BoolValue:
			entry = protowire.AppendTag(entry, boolField, protowire.VarintType)
			entry = protowire.AppendVarint(entry, protowire.EncodeBool(bool(val)))
		case sql.Int64Value:
			entry = protowire.AppendTag(entry, int64Field, protowire.VarintType)
			entry = protowire.AppendVarint(entry, protowire.EncodeZigZag(int64(val)))
		case sql.StringValue:
			entry = protowire.AppendTag(entry, stringField, protowire.BytesType)
			entry = protowire.AppendString(entry, string(val))
		default:
			panic(fmt.Sprintf("unexpected type for sql.Value: %T: %v", val, val))
		}

		buf = protowire.AppendTag(buf, columnField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, entry)
	}
	return buf
}

func DecodeRow(buf []byte) (sql.Row, error) {
	row := sql.Row{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 || num != columnField || typ != protowire.BytesType {
			return nil, errCorrupt
		}
		buf = buf[n:]

		entry, n := protowire.ConsumeBytes(buf)
		if n < 0 {
			return nil, errCorrupt
		}
		buf = buf[n:]

		col, val, err := decodeColumn(entry)
		if err != nil {
			return nil, err
		}
		row[col] = val
	}
	return row, nil
}

func decodeColumn(buf []byte) (sql.Identifier, sql.Value, error) {
	var col sql.Identifier
	var val sql.Value
	var named bool

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return "", nil, errCorrupt
		}
		buf = buf[n:]

		switch {
		case num == nameField && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(buf)
			col = sql.Identifier(s)
			named = true
		case num == boolField && typ == protowire.VarintType:
			var u uint64
			u, n = protowire.ConsumeVarint(buf)
			val = sql.BoolValue(protowire.DecodeBool(u))
		case num == int64Field && typ == protowire.VarintType:
			var u uint64
			u, n = protowire.ConsumeVarint(buf)
			val = sql.Int64Value(protowire.DecodeZigZag(u))
		case num == stringField && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(buf)
			val = sql.StringValue(s)
		default:
			return "", nil, errCorrupt
		}
		if n < 0 {
			return "", nil, errCorrupt
		}
		buf = buf[n:]
	}

	if !named {
		return "", nil, errCorrupt
	}
	return col, val, nil
}

// EncodeHeader encodes the next row id of a relation.
func EncodeHeader(next uint64) ([]byte, error) {
	return proto.Marshal(&wrapperspb.UInt64Value{Value: next})
}

func DecodeHeader(buf []byte) (uint64, error) {
	var hdr wrapperspb.UInt64Value
	err := proto.Unmarshal(buf, &hdr)
	if err != nil {
		return 0, err
	}
	return hdr.GetValue(), nil
}
