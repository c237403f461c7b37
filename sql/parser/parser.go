package parser

import (
	"fmt"
	"io"
	"runtime"

	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/sql/scanner"
	"github.com/klundeen/5300-Antelope/sql/stmt"
	"github.com/klundeen/5300-Antelope/sql/token"
)

type Parser interface {
	Parse() (stmt.Stmt, error)
}

type parser struct {
	scanner   scanner.Scanner
	sctx      scanner.ScanCtx
	unscanned bool
	scanned   rune
}

func NewParser(rr io.RuneReader, fn string) Parser {
	var p parser
	p.scanner.Init(rr, fn)
	return &p
}

// Parse returns the next statement, or io.EOF when there are no more statements. After an
// error, parsing resumes with the statement following the next ';'.
func (p *parser) Parse() (s stmt.Stmt, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = r.(error)
			s = nil
			p.skipStatement()
		}
	}()

	for {
		r := p.scan()
		if r == token.EOF {
			return nil, io.EOF
		} else if r != token.EndOfStatement {
			break
		}
	}
	p.unscan()

	s = p.parseStmt()
	p.expectEndOfStatement()
	return
}

func (p *parser) error(msg string) {
	panic(fmt.Errorf("%s: %s", p.sctx.Position, msg))
}

func (p *parser) scan() rune {
	if p.unscanned {
		p.unscanned = false
		return p.scanned
	}

	p.scanner.Scan(&p.sctx)
	p.scanned = p.sctx.Token
	if p.scanned == token.Error {
		p.error(p.sctx.Error.Error())
	}
	return p.scanned
}

func (p *parser) unscan() {
	p.unscanned = true
}

func (p *parser) skipStatement() {
	if p.unscanned {
		p.unscanned = false
		if p.scanned == token.EOF || p.scanned == token.EndOfStatement {
			return
		}
	} else if p.scanned == token.EOF || p.scanned == token.EndOfStatement {
		return
	}

	for {
		p.scanner.Scan(&p.sctx)
		if p.sctx.Token == token.EOF || p.sctx.Token == token.EndOfStatement {
			break
		}
	}
	p.scanned = p.sctx.Token
}

func (p *parser) got() string {
	switch p.scanned {
	case token.EOF:
		return "end of file"
	case token.EndOfStatement:
		return "end of statement"
	case token.Error:
		return fmt.Sprintf("error %s", p.sctx.Error.Error())
	case token.Identifier:
		return fmt.Sprintf("identifier %s", p.sctx.Identifier)
	case token.Reserved:
		return fmt.Sprintf("reserved keyword %s", p.sctx.Keyword)
	case token.String:
		return fmt.Sprintf("string %q", p.sctx.String)
	case token.Integer:
		return fmt.Sprintf("integer %d", p.sctx.Integer)
	case token.Float:
		return fmt.Sprintf("float %f", p.sctx.Float)
	}

	return fmt.Sprintf("rune %c", p.scanned)
}

func (p *parser) expectReserved(kws ...sql.Keyword) sql.Keyword {
	t := p.scan()
	if t == token.Reserved {
		for _, kw := range kws {
			if kw == p.sctx.Keyword {
				return kw
			}
		}
	}

	var msg string
	if len(kws) == 1 {
		msg = kws[0].String()
	} else {
		for i, kw := range kws {
			if i == len(kws)-1 {
				msg += ", or "
			} else if i > 0 {
				msg += ", "
			}
			msg += kw.String()
		}
	}

	p.error(fmt.Sprintf("expected keyword %s got %s", msg, p.got()))
	return 0
}

func (p *parser) optionalReserved(kws ...sql.Keyword) bool {
	t := p.scan()
	if t == token.Reserved {
		for _, kw := range kws {
			if kw == p.sctx.Keyword {
				return true
			}
		}
	}

	p.unscan()
	return false
}

func (p *parser) expectIdentifier(msg string) sql.Identifier {
	t := p.scan()
	if t != token.Identifier {
		p.error(fmt.Sprintf("%s got %s", msg, p.got()))
	}
	return p.sctx.Identifier
}

func (p *parser) maybeIdentifier(id sql.Identifier) bool {
	if p.scan() == token.Identifier && p.sctx.Identifier == id {
		return true
	}

	p.unscan()
	return false
}

func (p *parser) expectTokens(tokens ...rune) rune {
	t := p.scan()
	for _, r := range tokens {
		if t == r {
			return r
		}
	}

	var msg string
	if len(tokens) == 1 {
		msg = token.Format(tokens[0])
	} else {
		for i, r := range tokens {
			if i == len(tokens)-1 {
				msg += ", or "
			} else if i > 0 {
				msg += ", "
			}
			msg += token.Format(r)
		}
	}

	p.error(fmt.Sprintf("expected %s got %s", msg, p.got()))
	return 0
}

func (p *parser) maybeToken(mr rune) bool {
	if p.scan() == mr {
		return true
	}
	p.unscan()
	return false
}

func (p *parser) expectEndOfStatement() {
	r := p.scan()
	if r == token.EOF {
		p.unscan()
	} else if r != token.EndOfStatement {
		p.error(fmt.Sprintf("expected the end of the statement got %s", p.got()))
	}
}

func (p *parser) parseStmt() stmt.Stmt {
	switch kw := p.expectReserved(sql.CREATE, sql.DELETE, sql.DROP, sql.INSERT, sql.SELECT,
		sql.SHOW, sql.UPDATE); kw {
	case sql.CREATE:
		/*
			CREATE TABLE [IF NOT EXISTS]
			CREATE INDEX
		*/
		if p.expectReserved(sql.TABLE, sql.INDEX) == sql.INDEX {
			return p.parseCreateIndex()
		}

		var not bool
		if p.optionalReserved(sql.IF) {
			p.expectReserved(sql.NOT)
			p.expectReserved(sql.EXISTS)
			not = true
		}
		return p.parseCreateTable(not)
	case sql.DROP:
		/*
			DROP TABLE table
			DROP INDEX index ON table
		*/
		if p.expectReserved(sql.TABLE, sql.INDEX) == sql.INDEX {
			return p.parseDropIndex()
		}
		return &stmt.DropTable{Table: p.expectIdentifier("expected a table")}
	case sql.SHOW:
		return p.parseShow()
	case sql.DELETE, sql.INSERT, sql.SELECT, sql.UPDATE:
		for {
			r := p.scan()
			if r == token.EOF || r == token.EndOfStatement {
				p.unscan()
				break
			}
		}
		return &stmt.Unsupported{Verb: kw}
	}

	return nil
}

var types = map[sql.Identifier]stmt.ColumnType{
	sql.ID("int"):     stmt.IntType,
	sql.ID("integer"): stmt.IntType,
	sql.ID("text"):    stmt.TextType,
	sql.ID("double"):  stmt.DoubleType,
	sql.ID("bool"):    stmt.BooleanType,
	sql.ID("boolean"): stmt.BooleanType,
}

func (p *parser) parseCreateTable(not bool) stmt.Stmt {
	// CREATE TABLE [IF NOT EXISTS] table (<column> [, ...])
	var s stmt.CreateTable
	s.Table = p.expectIdentifier("expected a table")
	s.IfNotExists = not

	p.expectTokens(token.LParen)
	for {
		nam := p.expectIdentifier("expected a column name")
		for _, c := range s.Columns {
			if c.Name == nam {
				p.error(fmt.Sprintf("duplicate column name: %s", nam))
			}
		}

		typ := p.expectIdentifier("expected a data type")
		ct, found := types[typ]
		if !found {
			p.error(fmt.Sprintf("expected a data type got %s", typ))
		}

		s.Columns = append(s.Columns, stmt.ColumnDef{Name: nam, Type: ct})

		r := p.expectTokens(token.Comma, token.RParen)
		if r == token.RParen {
			break
		}
	}

	return &s
}

func (p *parser) parseCreateIndex() stmt.Stmt {
	// CREATE INDEX index ON table [USING BTREE | HASH] (column [, ...])
	var s stmt.CreateIndex
	s.Index = p.expectIdentifier("expected an index")
	p.expectReserved(sql.ON)
	s.Table = p.expectIdentifier("expected a table")

	s.IndexType = stmt.BTreeIndex
	if p.optionalReserved(sql.USING) {
		if p.maybeIdentifier(sql.ID("hash")) {
			s.IndexType = stmt.HashIndex
		} else if !p.maybeIdentifier(sql.ID("btree")) {
			p.scan()
			p.error(fmt.Sprintf("expected BTREE or HASH got %s", p.got()))
		}
	}

	p.expectTokens(token.LParen)
	for {
		col := p.expectIdentifier("expected a column")
		for _, c := range s.Columns {
			if c == col {
				p.error(fmt.Sprintf("duplicate column name: %s", col))
			}
		}
		s.Columns = append(s.Columns, col)

		if p.expectTokens(token.Comma, token.RParen) == token.RParen {
			break
		}
	}

	return &s
}

func (p *parser) parseDropIndex() stmt.Stmt {
	// DROP INDEX index ON | FROM table
	var s stmt.DropIndex
	s.Index = p.expectIdentifier("expected an index")
	p.expectReserved(sql.ON, sql.FROM)
	s.Table = p.expectIdentifier("expected a table")
	return &s
}

func (p *parser) parseShow() stmt.Stmt {
	/*
		SHOW TABLES
		SHOW COLUMNS FROM table
		SHOW INDEX FROM table
	*/
	if p.optionalReserved(sql.INDEX) {
		p.expectReserved(sql.FROM)
		return &stmt.Show{Type: stmt.ShowIndex, Table: p.expectIdentifier("expected a table")}
	}

	id := p.expectIdentifier("expected TABLES, COLUMNS, or INDEX")
	switch id {
	case sql.ID("tables"):
		return &stmt.Show{Type: stmt.ShowTables}
	case sql.ID("columns"):
		p.expectReserved(sql.FROM)
		return &stmt.Show{Type: stmt.ShowColumns, Table: p.expectIdentifier("expected a table")}
	}

	p.error(fmt.Sprintf("expected TABLES, COLUMNS, or INDEX got %s", p.got()))
	return nil
}
