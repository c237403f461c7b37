package kv_test

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/klundeen/5300-Antelope/storage/kv"
	"github.com/klundeen/5300-Antelope/testutil"
)

func getString(t *testing.T, g interface {
	Get(key []byte, fn func(val []byte) error) error
}, key string) (string, bool) {
	t.Helper()

	var ret string
	err := g.Get([]byte(key), func(val []byte) error {
		ret = string(val)
		return nil
	})
	if err == io.EOF {
		return "", false
	} else if err != nil {
		t.Fatalf("Get(%s) failed with %s", key, err)
	}
	return ret, true
}

func iterateStrings(t *testing.T, it kv.Iterator) []string {
	t.Helper()
	defer it.Close()

	var ret []string
	for {
		err := it.Item(func(key, val []byte) error {
			ret = append(ret, fmt.Sprintf("%s=%s", key, val))
			return nil
		})
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Item() failed with %s", err)
		}
	}
	return ret
}

func update(t *testing.T, st kv.KV, fn func(u kv.Updater)) {
	t.Helper()

	u, err := st.Update()
	if err != nil {
		t.Fatalf("Update() failed with %s", err)
	}
	fn(u)
	err = u.Commit()
	if err != nil {
		t.Fatalf("Commit() failed with %s", err)
	}
}

func equalStrings(s1, s2 []string) bool {
	if len(s1) != len(s2) {
		return false
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			return false
		}
	}
	return true
}

func testKV(t *testing.T, st kv.KV) {
	t.Helper()

	if _, ok := getString(t, st, "a/1"); ok {
		t.Errorf("Get(a/1) found a key in an empty store")
	}

	update(t, st, func(u kv.Updater) {
		for _, k := range []string{"b/2", "a/2", "a/1", "c/1", "b/1", "a/3"} {
			err := u.Set([]byte(k), []byte("v"+k))
			if err != nil {
				t.Fatalf("Set(%s) failed with %s", k, err)
			}
		}

		if v, ok := getString(t, u, "a/2"); !ok || v != "va/2" {
			t.Errorf("Updater.Get(a/2) got %s, %v want va/2", v, ok)
		}
	})

	if v, ok := getString(t, st, "b/1"); !ok || v != "vb/1" {
		t.Errorf("Get(b/1) got %s, %v want vb/1", v, ok)
	}

	it, err := st.Iterate([]byte("a/"))
	if err != nil {
		t.Fatalf("Iterate(a/) failed with %s", err)
	}
	got := iterateStrings(t, it)
	want := []string{"a/1=va/1", "a/2=va/2", "a/3=va/3"}
	if !equalStrings(got, want) {
		t.Errorf("Iterate(a/) got %v want %v", got, want)
	}

	it, err = st.Iterate([]byte("d/"))
	if err != nil {
		t.Fatalf("Iterate(d/) failed with %s", err)
	}
	if got := iterateStrings(t, it); len(got) != 0 {
		t.Errorf("Iterate(d/) got %v want nothing", got)
	}

	update(t, st, func(u kv.Updater) {
		err := u.Delete([]byte("a/2"))
		if err != nil {
			t.Fatalf("Delete(a/2) failed with %s", err)
		}
		err = u.Set([]byte("a/3"), []byte("three"))
		if err != nil {
			t.Fatalf("Set(a/3) failed with %s", err)
		}

		it, err := u.Iterate([]byte("a/"))
		if err != nil {
			t.Fatalf("Updater.Iterate(a/) failed with %s", err)
		}
		got := iterateStrings(t, it)
		want := []string{"a/1=va/1", "a/3=three"}
		if !equalStrings(got, want) {
			t.Errorf("Updater.Iterate(a/) got %v want %v", got, want)
		}
	})

	if _, ok := getString(t, st, "a/2"); ok {
		t.Errorf("Get(a/2) found a deleted key")
	}

	u, err := st.Update()
	if err != nil {
		t.Fatalf("Update() failed with %s", err)
	}
	err = u.Set([]byte("a/4"), []byte("va/4"))
	if err != nil {
		t.Fatalf("Set(a/4) failed with %s", err)
	}
	err = u.Delete([]byte("b/1"))
	if err != nil {
		t.Fatalf("Delete(b/1) failed with %s", err)
	}
	u.Rollback()

	if _, ok := getString(t, st, "a/4"); ok {
		t.Errorf("Get(a/4) found a key from a rolled back update")
	}
	if _, ok := getString(t, st, "b/1"); !ok {
		t.Errorf("Get(b/1) missing a key deleted by a rolled back update")
	}

	it, err = st.Iterate(nil)
	if err != nil {
		t.Fatalf("Iterate(nil) failed with %s", err)
	}
	got = iterateStrings(t, it)
	want = []string{"a/1=va/1", "a/3=three", "b/1=vb/1", "b/2=vb/2", "c/1=vc/1"}
	if !equalStrings(got, want) {
		t.Errorf("Iterate(nil) got %v want %v", got, want)
	}
}

func TestBTreeKV(t *testing.T) {
	st, err := kv.MakeBTreeKV()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	testKV(t, st)
}

func TestBBoltKV(t *testing.T) {
	err := testutil.CleanDir("testdata", []string{".gitignore"})
	if err != nil {
		t.Fatal(err)
	}

	st, err := kv.MakeBBoltKV("testdata")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	testKV(t, st)
}

func TestBadgerKV(t *testing.T) {
	err := testutil.CleanDir("testdata", []string{".gitignore"})
	if err != nil {
		t.Fatal(err)
	}

	st, err := kv.MakeBadgerKV(filepath.Join("testdata", "badger"),
		testutil.SetupLogger(filepath.Join("testdata", "badger_kv.log")))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	testKV(t, st)
}

func TestPebbleKV(t *testing.T) {
	err := testutil.CleanDir("testdata", []string{".gitignore"})
	if err != nil {
		t.Fatal(err)
	}

	st, err := kv.MakePebbleKV(filepath.Join("testdata", "pebble"),
		testutil.SetupLogger(filepath.Join("testdata", "pebble_kv.log")))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	testKV(t, st)
}

func TestOpen(t *testing.T) {
	st, err := kv.Open("btree", "", nil)
	if err != nil {
		t.Errorf("Open(btree) failed with %s", err)
	} else {
		st.Close()
	}

	_, err = kv.Open("postgres", "testdata", nil)
	if err == nil {
		t.Errorf("Open(postgres) did not fail")
	}
}
