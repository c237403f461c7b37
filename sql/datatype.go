package sql

import (
	"strings"
)

type DataType int

const (
	UnknownType DataType = iota
	BooleanType
	IntegerType
	TextType
)

// String returns the spelling stored in the data_type column of _columns.
func (dt DataType) String() string {
	switch dt {
	case BooleanType:
		return "BOOLEAN"
	case IntegerType:
		return "INT"
	case TextType:
		return "TEXT"
	}

	return ""
}

func ParseDataType(s string) (DataType, bool) {
	switch strings.ToUpper(s) {
	case "BOOL", "BOOLEAN":
		return BooleanType, true
	case "INT", "INTEGER":
		return IntegerType, true
	case "TEXT":
		return TextType, true
	}
	return UnknownType, false
}

// ColumnAttribute describes a stored column. Only the data type is tracked for now.
type ColumnAttribute struct {
	Type DataType
}

func (ca ColumnAttribute) String() string {
	return ca.Type.String()
}

// Accepts reports whether v may be stored in a column with this attribute.
func (ca ColumnAttribute) Accepts(v Value) bool {
	return v != nil && v.DataType() == ca.Type
}

var (
	TextAttribute    = ColumnAttribute{Type: TextType}
	IntegerAttribute = ColumnAttribute{Type: IntegerType}
	BooleanAttribute = ColumnAttribute{Type: BooleanType}
)
