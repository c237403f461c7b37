package sql

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	NullString  = "NULL"
	TrueString  = "true"
	FalseString = "false"
)

type Value interface {
	fmt.Stringer

	// return -1 if v1 < v2
	// return 0 if v1 == v2
	// return 1 if v1 > v2
	Compare(v2 Value) (int, error)

	DataType() DataType
}

type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return TrueString
	}
	return FalseString
}

func (b1 BoolValue) Compare(v2 Value) (int, error) {
	if b2, ok := v2.(BoolValue); ok {
		if b1 == b2 {
			return 0, nil
		} else if b1 {
			return 1, nil
		}
		return -1, nil
	}
	return 0, fmt.Errorf("sql: want boolean got %v", v2)
}

func (_ BoolValue) DataType() DataType {
	return BooleanType
}

type Int64Value int64

func (i Int64Value) String() string {
	return strconv.FormatInt(int64(i), 10)
}

func (i1 Int64Value) Compare(v2 Value) (int, error) {
	if i2, ok := v2.(Int64Value); ok {
		if i1 < i2 {
			return -1, nil
		} else if i1 > i2 {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("sql: want integer got %v", v2)
}

func (_ Int64Value) DataType() DataType {
	return IntegerType
}

type StringValue string

func (s StringValue) String() string {
	return fmt.Sprintf("\"%s\"", string(s))
}

func (s1 StringValue) Compare(v2 Value) (int, error) {
	if s2, ok := v2.(StringValue); ok {
		return strings.Compare(string(s1), string(s2)), nil
	}
	return 0, fmt.Errorf("sql: want text got %v", v2)
}

func (_ StringValue) DataType() DataType {
	return TextType
}

// Compare orders values of any type: NULL < BOOLEAN < INTEGER < TEXT.
func Compare(v1, v2 Value) int {
	if v1 == nil {
		if v2 == nil {
			return 0
		}
		return -1
	}
	if v2 == nil {
		return 1
	}

	if v1.DataType() != v2.DataType() {
		if typeOrder(v1) < typeOrder(v2) {
			return -1
		}
		return 1
	}
	cmp, err := v1.Compare(v2)
	if err != nil {
		panic(fmt.Sprintf("unexpected type for sql.Value: %T: %v", v2, v2))
	}
	return cmp
}

func typeOrder(v Value) int {
	switch v.(type) {
	case BoolValue:
		return 1
	case Int64Value:
		return 2
	case StringValue:
		return 3
	default:
		panic(fmt.Sprintf("unexpected type for sql.Value: %T: %v", v, v))
	}
}

func Equal(v1, v2 Value) bool {
	return Compare(v1, v2) == 0
}

func Format(v Value) string {
	if v == nil {
		return NullString
	}

	return v.String()
}
