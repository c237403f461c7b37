package token

import (
	"fmt"
)

const (
	EOF = -(iota + 1)
	EndOfStatement
	Error
	Identifier
	Reserved
	String
	Integer
	Float
)

const (
	Comma  = ','
	Dot    = '.'
	LParen = '('
	RParen = ')'
	Star   = '*'
	Equal  = '='
)

var names = map[rune]string{
	EOF:            "end of file",
	EndOfStatement: "end of statement",
	Error:          "error",
	Identifier:     "identifier",
	Reserved:       "reserved keyword",
	String:         "string",
	Integer:        "integer",
	Float:          "float",
}

func Format(r rune) string {
	if r > 0 {
		return fmt.Sprintf("rune %c", r)
	}
	if s, ok := names[r]; ok {
		return s
	}
	return fmt.Sprintf("token %d", r)
}
