package stmt

import (
	"fmt"
	"strings"

	"github.com/klundeen/5300-Antelope/sql"
)

type Stmt interface {
	fmt.Stringer
}

// ColumnType is the data type as declared in the statement; not every declared type can be
// stored.
type ColumnType int

const (
	UnknownType ColumnType = iota
	IntType
	TextType
	DoubleType
	BooleanType
)

func (ct ColumnType) String() string {
	switch ct {
	case IntType:
		return "INT"
	case TextType:
		return "TEXT"
	case DoubleType:
		return "DOUBLE"
	case BooleanType:
		return "BOOLEAN"
	}
	return "UNKNOWN"
}

type ColumnDef struct {
	Name sql.Identifier
	Type ColumnType
}

type CreateTable struct {
	Table       sql.Identifier
	Columns     []ColumnDef
	IfNotExists bool
}

func (stmt *CreateTable) String() string {
	s := "CREATE TABLE"
	if stmt.IfNotExists {
		s += " IF NOT EXISTS"
	}
	s = fmt.Sprintf("%s %s (", s, stmt.Table)

	for i, col := range stmt.Columns {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s %s", col.Name, col.Type)
	}
	s += ")"
	return s
}

const (
	BTreeIndex = "BTREE"
	HashIndex  = "HASH"
)

type CreateIndex struct {
	Index     sql.Identifier
	Table     sql.Identifier
	IndexType string
	Columns   []sql.Identifier
}

func (stmt *CreateIndex) String() string {
	cols := make([]string, 0, len(stmt.Columns))
	for _, col := range stmt.Columns {
		cols = append(cols, col.String())
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s USING %s (%s)", stmt.Index, stmt.Table,
		stmt.IndexType, strings.Join(cols, ", "))
}

type DropTable struct {
	Table sql.Identifier
}

func (stmt *DropTable) String() string {
	return fmt.Sprintf("DROP TABLE %s", stmt.Table)
}

type DropIndex struct {
	Table sql.Identifier
	Index sql.Identifier
}

func (stmt *DropIndex) String() string {
	return fmt.Sprintf("DROP INDEX %s ON %s", stmt.Index, stmt.Table)
}

type ShowType int

const (
	ShowTables ShowType = iota + 1
	ShowColumns
	ShowIndex
)

type Show struct {
	Type  ShowType
	Table sql.Identifier
}

func (stmt *Show) String() string {
	switch stmt.Type {
	case ShowTables:
		return "SHOW TABLES"
	case ShowColumns:
		return fmt.Sprintf("SHOW COLUMNS FROM %s", stmt.Table)
	case ShowIndex:
		return fmt.Sprintf("SHOW INDEX FROM %s", stmt.Table)
	}
	return fmt.Sprintf("SHOW <unknown %d>", stmt.Type)
}

// Unsupported is a statement that was recognized but is not executed.
type Unsupported struct {
	Verb sql.Keyword
}

func (stmt *Unsupported) String() string {
	return fmt.Sprintf("%s ...", stmt.Verb)
}
