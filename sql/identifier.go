package sql

import (
	"strings"
)

type Identifier string

const MaxIdentifier = 128

// ID returns the identifier for an unquoted name: case is folded to lower case.
func ID(s string) Identifier {
	if len(s) > MaxIdentifier {
		s = s[:MaxIdentifier]
	}
	return Identifier(strings.ToLower(s))
}

// QuotedID returns the identifier for a quoted name; case is preserved.
func QuotedID(s string) Identifier {
	if len(s) > MaxIdentifier {
		s = s[:MaxIdentifier]
	}
	return Identifier(s)
}

func (id Identifier) String() string {
	return string(id)
}

type Keyword int

const (
	CREATE Keyword = iota + 1
	DELETE
	DROP
	EXISTS
	FROM
	IF
	INDEX
	INSERT
	NOT
	ON
	SELECT
	SHOW
	TABLE
	UPDATE
	USING
)

var keywords = map[string]Keyword{
	"CREATE": CREATE,
	"DELETE": DELETE,
	"DROP":   DROP,
	"EXISTS": EXISTS,
	"FROM":   FROM,
	"IF":     IF,
	"INDEX":  INDEX,
	"INSERT": INSERT,
	"NOT":    NOT,
	"ON":     ON,
	"SELECT": SELECT,
	"SHOW":   SHOW,
	"TABLE":  TABLE,
	"UPDATE": UPDATE,
	"USING":  USING,
}

var keywordNames = map[Keyword]string{}

// LookupKeyword reports whether s, in any case, is a reserved keyword.
func LookupKeyword(s string) (Keyword, bool) {
	kw, ok := keywords[strings.ToUpper(s)]
	return kw, ok
}

func (kw Keyword) String() string {
	return keywordNames[kw]
}

func init() {
	for s, kw := range keywords {
		keywordNames[kw] = s
	}
}
