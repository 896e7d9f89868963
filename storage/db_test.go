package storage

import (
	"bytes"
	"testing"
)

func TestMemDBPutGetDelete(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	if err := db.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, err := db.Get([]byte("a"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(value, []byte("1")) {
		t.Fatalf("unexpected value %q", value)
	}

	ok, err := db.Has([]byte("a"))
	if err != nil || !ok {
		t.Fatalf("expected key to exist, ok=%v err=%v", ok, err)
	}

	if err := db.Delete([]byte("a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("a")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemDBIterateOrderedByPrefix(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	pairs := map[string]string{
		"table/b": "2",
		"table/a": "1",
		"table/c": "3",
		"other/z": "9",
	}
	for k, v := range pairs {
		if err := db.Put([]byte(k), []byte(v)); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}

	var keys []string
	err := db.Iterate([]byte("table/"), func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	want := []string{"table/a", "table/b", "table/c"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i, key := range want {
		if keys[i] != key {
			t.Fatalf("position %d: got %s, want %s", i, keys[i], key)
		}
	}
}

func TestMemDBIterateEarlyStop(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	for _, k := range []string{"p/1", "p/2", "p/3"} {
		if err := db.Put([]byte(k), []byte("v")); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	visited := 0
	if err := db.Iterate([]byte("p/"), func(_, _ []byte) bool {
		visited++
		return visited < 2
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if visited != 2 {
		t.Fatalf("visited %d keys, want 2", visited)
	}
}

func TestMemDBValueIsolation(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	original := []byte("payload")
	if err := db.Put([]byte("k"), original); err != nil {
		t.Fatalf("put: %v", err)
	}
	original[0] = 'X'

	value, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(value, []byte("payload")) {
		t.Fatalf("stored value was mutated through the caller's slice: %q", value)
	}
}
