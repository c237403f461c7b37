package storage_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/storage"
	"github.com/klundeen/5300-Antelope/storage/kv"
	"github.com/klundeen/5300-Antelope/testutil"
)

var (
	colA = sql.ID("a")
	colB = sql.ID("b")
)

func relationError(t *testing.T, err error, want error) {
	t.Helper()

	if err == nil {
		t.Errorf("got no error want %s", want)
		return
	}
	var re *storage.RelationError
	if !errors.As(err, &re) {
		t.Errorf("got %T want *storage.RelationError", err)
	}
	if want != nil && !errors.Is(err, want) {
		t.Errorf("got %s want %s", err, want)
	}
}

func testRelation(t *testing.T, st *storage.Store) {
	t.Helper()

	ctx := context.Background()
	rel := st.Relation(sql.ID("t"), []sql.Identifier{colA, colB},
		[]sql.ColumnAttribute{sql.IntegerAttribute, sql.TextAttribute})

	_, err := rel.Insert(ctx, sql.Row{colA: sql.Int64Value(1), colB: sql.StringValue("x")})
	relationError(t, err, storage.ErrNotExist)
	_, err = rel.Select(ctx, nil)
	relationError(t, err, storage.ErrNotExist)
	relationError(t, rel.Drop(ctx), storage.ErrNotExist)

	err = rel.Create(ctx)
	if err != nil {
		t.Fatalf("Create(t) failed with %s", err)
	}
	relationError(t, rel.Create(ctx), storage.ErrExists)
	err = rel.CreateIfNotExists(ctx)
	if err != nil {
		t.Errorf("CreateIfNotExists(t) failed with %s", err)
	}

	bad := []sql.Row{
		{colA: sql.Int64Value(1)},
		{colA: sql.StringValue("1"), colB: sql.StringValue("x")},
		{colA: sql.Int64Value(1), colB: sql.StringValue("x"), sql.ID("c"): sql.BoolValue(true)},
		{colA: nil, colB: sql.StringValue("x")},
	}
	for _, row := range bad {
		_, err = rel.Insert(ctx, row)
		relationError(t, err, nil)
	}

	var handles []storage.Handle
	for _, row := range []sql.Row{
		{colA: sql.Int64Value(3), colB: sql.StringValue("three")},
		{colA: sql.Int64Value(1), colB: sql.StringValue("one")},
		{colA: sql.Int64Value(2), colB: sql.StringValue("two")},
		{colA: sql.Int64Value(1), colB: sql.StringValue("uno")},
	} {
		h, err := rel.Insert(ctx, row)
		if err != nil {
			t.Fatalf("Insert(%s) failed with %s", row, err)
		}
		handles = append(handles, h)
	}

	all, err := rel.Select(ctx, nil)
	if err != nil {
		t.Fatalf("Select(nil) failed with %s", err)
	}
	if !reflect.DeepEqual(all, handles) {
		t.Errorf("Select(nil) got %v want %v", all, handles)
	}

	ones, err := rel.Select(ctx, sql.Row{colA: sql.Int64Value(1)})
	if err != nil {
		t.Fatalf("Select(a = 1) failed with %s", err)
	}
	want := []storage.Handle{handles[1], handles[3]}
	if !reflect.DeepEqual(ones, want) {
		t.Errorf("Select(a = 1) got %v want %v", ones, want)
	}

	_, err = rel.Select(ctx, sql.Row{sql.ID("c"): sql.Int64Value(1)})
	relationError(t, err, nil)

	row, err := rel.Project(ctx, handles[3], []sql.Identifier{colB})
	if err != nil {
		t.Errorf("Project(b) failed with %s", err)
	} else if row.String() != `{b: "uno"}` {
		t.Errorf("Project(b) got %s want {b: \"uno\"}", row)
	}
	row, err = rel.Project(ctx, handles[0], nil)
	if err != nil {
		t.Errorf("Project(nil) failed with %s", err)
	} else if row.String() != `{a: 3, b: "three"}` {
		t.Errorf("Project(nil) got %s", row)
	}

	err = rel.Update(ctx, handles[2], sql.Row{colB: sql.StringValue("deux")})
	if err != nil {
		t.Errorf("Update(b = deux) failed with %s", err)
	}
	row, err = rel.Project(ctx, handles[2], nil)
	if err != nil {
		t.Errorf("Project(nil) failed with %s", err)
	} else if row.String() != `{a: 2, b: "deux"}` {
		t.Errorf("Project(nil) after update got %s", row)
	}
	relationError(t, rel.Update(ctx, handles[2], sql.Row{colB: sql.Int64Value(2)}), nil)

	err = rel.Delete(ctx, handles[1])
	if err != nil {
		t.Errorf("Delete() failed with %s", err)
	}
	relationError(t, rel.Delete(ctx, handles[1]), storage.ErrNoRow)
	_, err = rel.Project(ctx, handles[1], nil)
	relationError(t, err, storage.ErrNoRow)

	all, err = rel.Select(ctx, nil)
	if err != nil {
		t.Fatalf("Select(nil) failed with %s", err)
	}
	want = []storage.Handle{handles[0], handles[2], handles[3]}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("Select(nil) after delete got %v want %v", all, want)
	}

	other := st.Relation(sql.ID("t2"), []sql.Identifier{colA},
		[]sql.ColumnAttribute{sql.IntegerAttribute})
	err = other.Create(ctx)
	if err != nil {
		t.Fatalf("Create(t2) failed with %s", err)
	}
	_, err = other.Insert(ctx, sql.Row{colA: sql.Int64Value(10)})
	if err != nil {
		t.Fatalf("Insert(t2) failed with %s", err)
	}

	err = rel.Drop(ctx)
	if err != nil {
		t.Fatalf("Drop(t) failed with %s", err)
	}
	_, err = rel.Select(ctx, nil)
	relationError(t, err, storage.ErrNotExist)

	err = rel.Create(ctx)
	if err != nil {
		t.Fatalf("Create(t) after drop failed with %s", err)
	}
	all, err = rel.Select(ctx, nil)
	if err != nil {
		t.Errorf("Select(nil) failed with %s", err)
	} else if len(all) != 0 {
		t.Errorf("Select(nil) after drop and create got %v want nothing", all)
	}

	all, err = other.Select(ctx, nil)
	if err != nil {
		t.Errorf("Select(t2) failed with %s", err)
	} else if len(all) != 1 {
		t.Errorf("Select(t2) got %v want one handle", all)
	}
}

func TestBTreeRelation(t *testing.T) {
	st, err := kv.MakeBTreeKV()
	if err != nil {
		t.Fatal(err)
	}
	testRelation(t, storage.NewStore("btree", st))
}

func TestBBoltRelation(t *testing.T) {
	err := testutil.CleanDir("testdata", []string{".gitignore"})
	if err != nil {
		t.Fatal(err)
	}

	st, err := kv.MakeBBoltKV("testdata")
	if err != nil {
		t.Fatal(err)
	}
	s := storage.NewStore("bbolt", st)
	defer s.Close()

	testRelation(t, s)
}
