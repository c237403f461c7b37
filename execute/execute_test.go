package execute_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/klundeen/5300-Antelope/catalog"
	"github.com/klundeen/5300-Antelope/execute"
	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/sql/parser"
	"github.com/klundeen/5300-Antelope/sql/stmt"
	"github.com/klundeen/5300-Antelope/storage"
	"github.com/klundeen/5300-Antelope/storage/encode"
	"github.com/klundeen/5300-Antelope/storage/kv"
)

func newExecutor(t *testing.T, st kv.KV) *execute.Executor {
	t.Helper()

	tbls, err := catalog.Open(context.Background(), storage.NewStore("test", st))
	if err != nil {
		t.Fatalf("catalog.Open() failed with %s", err)
	}
	return execute.NewExecutor(tbls)
}

func newBTreeExecutor(t *testing.T) *execute.Executor {
	t.Helper()

	st, err := kv.MakeBTreeKV()
	if err != nil {
		t.Fatal(err)
	}
	return newExecutor(t, st)
}

func parse(t *testing.T, s string) stmt.Stmt {
	t.Helper()

	p := parser.NewParser(strings.NewReader(s), "test")
	ps, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse(%q) failed with %s", s, err)
	}
	return ps
}

func mustExecute(t *testing.T, e *execute.Executor, s string) string {
	t.Helper()

	res, err := e.Execute(context.Background(), parse(t, s))
	if err != nil {
		t.Fatalf("Execute(%q) failed with %s", s, err)
	}
	return res.String()
}

// run executes every statement of script and returns the rendered results, with errors
// rendered as "Error: <msg>".
func run(t *testing.T, e *execute.Executor, script string) string {
	t.Helper()

	var buf bytes.Buffer
	p := parser.NewParser(strings.NewReader(script), "script")
	for {
		s, err := p.Parse()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Parse() failed with %s", err)
		}

		buf.WriteString(s.String())
		buf.WriteString("\n")
		res, err := e.Execute(context.Background(), s)
		if err != nil {
			buf.WriteString("Error: ")
			buf.WriteString(err.Error())
		} else {
			buf.WriteString(res.String())
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// trimLines removes the trailing blank after each value of a rendered result.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n")
}

func checkOutput(t *testing.T, what, got, want string) {
	t.Helper()

	got = trimLines(got)
	if got != want {
		t.Errorf("%s:\n%s", what, diff.LineDiff(want, got))
	}
}

func TestScript(t *testing.T) {
	script := `
show tables;
create table foo (id int, data text, x integer, y integer, z integer);
create table foo (goober int);
create table bar (id int, data double);
show tables;
show columns from foo;
drop table foo;
show tables;
show columns from foo;
create table foo (id int, data text);
create index fx on foo (id);
create index fz on foo using hash (data, id);
show index from foo;
drop index fz on foo;
show index from foo;
create index fx on foo (data);
select * from foo;
drop table _tables;
create table t (a int);
drop table _indices;
drop table t;
show tables;
`
	want := `SHOW TABLES
table_name
+----------+
successfully returned 0 rows
CREATE TABLE foo (id INT, data TEXT, x INT, y INT, z INT)
created foo
CREATE TABLE foo (goober INT)
Error: relation error: storage: foo: create: relation already exists
CREATE TABLE bar (id INT, data DOUBLE)
Error: unrecognized data type
SHOW TABLES
table_name
+----------+
"foo"
successfully returned 1 rows
SHOW COLUMNS FROM foo
table_name column_name data_type
+----------+----------+----------+
"foo" "id" "INT"
"foo" "data" "TEXT"
"foo" "x" "INT"
"foo" "y" "INT"
"foo" "z" "INT"
successfully returned 5 rows
DROP TABLE foo
dropped foo
SHOW TABLES
table_name
+----------+
successfully returned 0 rows
SHOW COLUMNS FROM foo
table_name column_name data_type
+----------+----------+----------+
successfully returned 0 rows
CREATE TABLE foo (id INT, data TEXT)
created foo
CREATE INDEX fx ON foo USING BTREE (id)
created index fx
CREATE INDEX fz ON foo USING HASH (data, id)
created index fz
SHOW INDEX FROM foo
table_name index_name column_name seq_in_index index_type is_unique
+----------+----------+----------+----------+----------+----------+
"foo" "fx" "id" 1 "BTREE" true
"foo" "fz" "data" 1 "HASH" false
"foo" "fz" "id" 2 "HASH" false
successfully returned 3 rows
DROP INDEX fz ON foo
dropped index fz
SHOW INDEX FROM foo
table_name index_name column_name seq_in_index index_type is_unique
+----------+----------+----------+----------+----------+----------+
"foo" "fx" "id" 1 "BTREE" true
successfully returned 1 rows
CREATE INDEX fx ON foo USING BTREE (data)
Error: duplicate index fx on foo
SELECT ...
not implemented
DROP TABLE _tables
Error: cannot drop a schema table
CREATE TABLE t (a INT)
created t
DROP TABLE _indices
dropped _indices
DROP TABLE t
dropped t
SHOW TABLES
table_name
+----------+
successfully returned 0 rows
`

	e := newBTreeExecutor(t)
	checkOutput(t, "script", run(t, e, script), want)
}

func TestCreateTable(t *testing.T) {
	e := newBTreeExecutor(t)
	ctx := context.Background()

	got := mustExecute(t, e, "create table t (a int, b text)")
	if got != "created t" {
		t.Errorf("Execute(create table t) got %q want %q", got, "created t")
	}

	got = mustExecute(t, e, "show columns from t")
	want := `table_name column_name data_type
+----------+----------+----------+
"t" "a" "INT"
"t" "b" "TEXT"
successfully returned 2 rows`
	checkOutput(t, "show columns from t", got, want)

	handles, err := e.Tables().Select(ctx, sql.Row{catalog.TableNameColumn: sql.StringValue("t")})
	if err != nil {
		t.Fatalf("_tables.Select(t) failed with %s", err)
	}
	if len(handles) != 1 {
		t.Errorf("_tables.Select(t) got %d rows want 1", len(handles))
	}

	rel, err := e.Tables().GetTable(ctx, sql.ID("t"))
	if err != nil {
		t.Fatalf("GetTable(t) failed with %s", err)
	}
	_, err = rel.Insert(ctx, sql.Row{sql.ID("a"): sql.Int64Value(1), sql.ID("b"): sql.StringValue("x")})
	if err != nil {
		t.Errorf("t.Insert() failed with %s", err)
	}

	got = mustExecute(t, e, "create table if not exists t (a int, b text)")
	if got != "created t" {
		t.Errorf("Execute(create table if not exists t) got %q want %q", got, "created t")
	}
	checkOutput(t, "show columns from t", mustExecute(t, e, "show columns from t"), want)

	got = mustExecute(t, e, "create table if not exists u (c int)")
	if got != "created u" {
		t.Errorf("Execute(create table if not exists u) got %q want %q", got, "created u")
	}
}

func countCatalog(t *testing.T, e *execute.Executor, tbl string) (int, int) {
	t.Helper()

	ctx := context.Background()
	where := sql.Row{catalog.TableNameColumn: sql.StringValue(tbl)}
	tables, err := e.Tables().Select(ctx, where)
	if err != nil {
		t.Fatalf("_tables.Select(%s) failed with %s", tbl, err)
	}
	columns, err := e.Tables().GetTable(ctx, catalog.ColumnsName)
	if err != nil {
		t.Fatalf("GetTable(_columns) failed with %s", err)
	}
	cols, err := columns.Select(ctx, where)
	if err != nil {
		t.Fatalf("_columns.Select(%s) failed with %s", tbl, err)
	}
	return len(tables), len(cols)
}

func TestCreateTableRollback(t *testing.T) {
	e := newBTreeExecutor(t)
	ctx := context.Background()

	rel := e.Tables().Store().Relation(sql.ID("t"), []sql.Identifier{sql.ID("a")},
		[]sql.ColumnAttribute{sql.IntegerAttribute})
	err := rel.Create(ctx)
	if err != nil {
		t.Fatalf("Create(t) failed with %s", err)
	}

	_, err = e.Execute(ctx, parse(t, "create table t (a int, b text)"))
	if err == nil {
		t.Fatal("Execute(create table t) did not fail")
	} else if !execute.IsKind(err, execute.RelationFailure) {
		t.Errorf("Execute(create table t) got %s want relation failure", err)
	} else if !errors.Is(err, storage.ErrExists) {
		t.Errorf("Execute(create table t) got %s want %s", err, storage.ErrExists)
	}

	if nt, nc := countCatalog(t, e, "t"); nt != 0 || nc != 0 {
		t.Errorf("catalog rows for t got %d, %d want 0, 0", nt, nc)
	}
	checkOutput(t, "show tables", mustExecute(t, e, "show tables"), `table_name
+----------+
successfully returned 0 rows`)
}

// failingKV fails every Set of a key under prefix while fail is true, after letting skip of
// them through.
type failingKV struct {
	kv.KV
	prefix []byte
	fail   bool
	skip   int
}

func (fkv *failingKV) Update() (kv.Updater, error) {
	u, err := fkv.KV.Update()
	if err != nil {
		return nil, err
	}
	return &failingUpdater{Updater: u, fkv: fkv}, nil
}

type failingUpdater struct {
	kv.Updater
	fkv *failingKV
}

func (fu *failingUpdater) Set(key, val []byte) error {
	if fu.fkv.fail && bytes.HasPrefix(key, fu.fkv.prefix) {
		if fu.fkv.skip == 0 {
			return errors.New("set failed")
		}
		fu.fkv.skip--
	}
	return fu.Updater.Set(key, val)
}

func TestColumnsInsertRollback(t *testing.T) {
	st, err := kv.MakeBTreeKV()
	if err != nil {
		t.Fatal(err)
	}
	fkv := &failingKV{KV: st, prefix: encode.RowPrefix(catalog.ColumnsName)}
	e := newExecutor(t, fkv)
	ctx := context.Background()

	fkv.fail = true
	_, err = e.Execute(ctx, parse(t, "create table t (a int, b text)"))
	if err == nil {
		t.Fatal("Execute(create table t) did not fail")
	} else if !execute.IsKind(err, execute.RelationFailure) {
		t.Errorf("Execute(create table t) got %s want relation failure", err)
	}

	if nt, nc := countCatalog(t, e, "t"); nt != 0 || nc != 0 {
		t.Errorf("catalog rows for t got %d, %d want 0, 0", nt, nc)
	}

	fkv.fail = false
	got := mustExecute(t, e, "create table t (a int, b text)")
	if got != "created t" {
		t.Errorf("Execute(create table t) got %q want %q", got, "created t")
	}
	if nt, nc := countCatalog(t, e, "t"); nt != 1 || nc != 2 {
		t.Errorf("catalog rows for t got %d, %d want 1, 2", nt, nc)
	}
}

func TestCreateIndexRollback(t *testing.T) {
	st, err := kv.MakeBTreeKV()
	if err != nil {
		t.Fatal(err)
	}
	fkv := &failingKV{KV: st, prefix: encode.RowPrefix(catalog.IndicesName)}
	e := newExecutor(t, fkv)
	ctx := context.Background()

	mustExecute(t, e, "create table t (a int, b text, c int)")

	fkv.fail = true
	fkv.skip = 1
	_, err = e.Execute(ctx, parse(t, "create index i on t (a, b, c)"))
	if err == nil {
		t.Fatal("Execute(create index i) did not fail")
	} else if !execute.IsKind(err, execute.RelationFailure) {
		t.Errorf("Execute(create index i) got %s want relation failure", err)
	}

	where := sql.Row{
		catalog.TableNameColumn: sql.StringValue("t"),
		catalog.IndexNameColumn: sql.StringValue("i"),
	}
	handles, _, err := e.Tables().IndexRows(ctx, where)
	if err != nil {
		t.Fatalf("IndexRows(t, i) failed with %s", err)
	}
	if len(handles) != 0 {
		t.Errorf("IndexRows(t, i) got %d rows want 0", len(handles))
	}

	fkv.fail = false
	got := mustExecute(t, e, "create index i on t (a, b, c)")
	if got != "created index i" {
		t.Errorf("Execute(create index i) got %q want %q", got, "created index i")
	}
	_, rows, err := e.Tables().IndexRows(ctx, where)
	if err != nil {
		t.Fatalf("IndexRows(t, i) failed with %s", err)
	}
	if len(rows) != 3 {
		t.Fatalf("IndexRows(t, i) got %v want 3 rows", rows)
	}
	for rdx, ir := range rows {
		if ir.SeqInIndex != int64(rdx+1) || !ir.IsUnique {
			t.Errorf("IndexRows(t, i)[%d] got %v", rdx, ir)
		}
	}
}

func TestUnsupportedType(t *testing.T) {
	e := newBTreeExecutor(t)

	for _, s := range []string{
		"create table t (a int, b double)",
		"create table t (a boolean)",
	} {
		_, err := e.Execute(context.Background(), parse(t, s))
		if !execute.IsKind(err, execute.UnsupportedType) {
			t.Errorf("Execute(%q) got %v want unsupported type", s, err)
		}
		if nt, nc := countCatalog(t, e, "t"); nt != 0 || nc != 0 {
			t.Errorf("Execute(%q): catalog rows for t got %d, %d want 0, 0", s, nt, nc)
		}
	}
}

func TestProtected(t *testing.T) {
	e := newBTreeExecutor(t)

	cases := []struct {
		s    string
		kind execute.Kind
	}{
		{"drop table _tables", execute.ProtectedObject},
		{"drop table _columns", execute.ProtectedObject},
		{"drop index i on _tables", execute.ProtectedObject},
		{"drop index i on _columns", execute.ProtectedObject},
		{"drop index i on _indices", execute.ProtectedObject},
		{"create index i on _tables (table_name)", execute.ProtectedObject},
		{"create index i on _indices (index_name)", execute.ProtectedObject},
		{"drop table t", execute.NoSuchObject},
		{"drop index i on t", execute.NoSuchObject},
		{"create index i on t (a)", execute.NoSuchObject},
	}

	for _, c := range cases {
		_, err := e.Execute(context.Background(), parse(t, c.s))
		if !execute.IsKind(err, c.kind) {
			t.Errorf("Execute(%q) got %v want %s", c.s, err, c.kind)
		}
	}

	want := `table_name
+----------+
successfully returned 0 rows`
	checkOutput(t, "show tables", mustExecute(t, e, "show tables"), want)

	ctx := context.Background()
	columns, err := e.Tables().GetTable(ctx, catalog.ColumnsName)
	if err != nil {
		t.Fatalf("GetTable(_columns) failed with %s", err)
	}
	handles, err := columns.Select(ctx, nil)
	if err != nil {
		t.Fatalf("_columns.Select() failed with %s", err)
	}
	if len(handles) != 10 {
		t.Errorf("_columns.Select() got %d rows want 10", len(handles))
	}
}

func TestCreateIndex(t *testing.T) {
	e := newBTreeExecutor(t)
	ctx := context.Background()

	mustExecute(t, e, "create table t (a int, b text)")

	_, err := e.Execute(ctx, parse(t, "create index i on t (a, c)"))
	if !execute.IsKind(err, execute.NoSuchObject) {
		t.Errorf("Execute(create index i on t (a, c)) got %v want no such object", err)
	}

	got := mustExecute(t, e, "create index i on t using hash (b, a)")
	if got != "created index i" {
		t.Errorf("Execute(create index i) got %q want %q", got, "created index i")
	}

	_, rows, err := e.Tables().IndexRows(ctx, sql.Row{catalog.TableNameColumn: sql.StringValue("t")})
	if err != nil {
		t.Fatalf("IndexRows(t) failed with %s", err)
	}
	want := []catalog.IndexRow{
		{TableName: "t", IndexName: "i", ColumnName: "b", SeqInIndex: 1, IndexType: "HASH"},
		{TableName: "t", IndexName: "i", ColumnName: "a", SeqInIndex: 2, IndexType: "HASH"},
	}
	if len(rows) != len(want) {
		t.Fatalf("IndexRows(t) got %v want %v", rows, want)
	}
	for rdx := range rows {
		if rows[rdx] != want[rdx] {
			t.Errorf("IndexRows(t)[%d] got %v want %v", rdx, rows[rdx], want[rdx])
		}
	}

	_, err = e.Execute(ctx, parse(t, "create index i on t (a)"))
	if !execute.IsKind(err, execute.DuplicateIndex) {
		t.Errorf("Execute(create index i) got %v want duplicate index", err)
	}

	got = mustExecute(t, e, "drop table t")
	if got != "dropped t" {
		t.Errorf("Execute(drop table t) got %q want %q", got, "dropped t")
	}
	handles, _, err := e.Tables().IndexRows(ctx, nil)
	if err != nil {
		t.Fatalf("IndexRows() failed with %s", err)
	}
	if len(handles) != 0 {
		t.Errorf("IndexRows() after drop table got %d rows want 0", len(handles))
	}
}

func TestDropRecreate(t *testing.T) {
	e := newBTreeExecutor(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mustExecute(t, e, "create table t (a int, b text)")
		if nt, nc := countCatalog(t, e, "t"); nt != 1 || nc != 2 {
			t.Errorf("catalog rows for t got %d, %d want 1, 2", nt, nc)
		}

		rel, err := e.Tables().GetTable(ctx, sql.ID("t"))
		if err != nil {
			t.Fatalf("GetTable(t) failed with %s", err)
		}
		handles, err := rel.Select(ctx, nil)
		if err != nil {
			t.Fatalf("t.Select() failed with %s", err)
		}
		if len(handles) != 0 {
			t.Errorf("t.Select() got %d rows want 0", len(handles))
		}
		_, err = rel.Insert(ctx, sql.Row{sql.ID("a"): sql.Int64Value(i), sql.ID("b"): sql.StringValue("b")})
		if err != nil {
			t.Fatalf("t.Insert() failed with %s", err)
		}

		mustExecute(t, e, "drop table t")
		if nt, nc := countCatalog(t, e, "t"); nt != 0 || nc != 0 {
			t.Errorf("catalog rows for t got %d, %d want 0, 0", nt, nc)
		}
	}
}

func TestUnknownStatement(t *testing.T) {
	e := newBTreeExecutor(t)

	_, err := e.Execute(context.Background(), &stmt.Show{Type: stmt.ShowType(99)})
	if !execute.IsKind(err, execute.UnknownStatement) {
		t.Errorf("Execute(show 99) got %v want unknown statement", err)
	}
	_, err = e.Execute(context.Background(), nil)
	if !execute.IsKind(err, execute.UnknownStatement) {
		t.Errorf("Execute(nil) got %v want unknown statement", err)
	}

	for _, s := range []string{"select * from t", "insert into t values (1)",
		"update t set a = 1", "delete from t"} {

		got := mustExecute(t, e, s)
		if got != "not implemented" {
			t.Errorf("Execute(%q) got %q want %q", s, got, "not implemented")
		}
	}
}
