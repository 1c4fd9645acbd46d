package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	ID   string `json:"id"`
	Flag bool   `json:"flag"`
}

func TestCreate_Exclusive(t *testing.T) {
	p := Path(filepath.Join(t.TempDir(), "nested"), "1")

	if err := Create(p, doc{ID: "1"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := Create(p, doc{ID: "1", Flag: true}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	var got doc
	if err := Read(p, &got); err != nil {
		t.Fatal(err)
	}
	if got.Flag {
		t.Error("second create must not overwrite")
	}
}

func TestReplace_Overwrites(t *testing.T) {
	dir := t.TempDir()
	p := Path(dir, "1")
	if err := Create(p, doc{ID: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := Replace(p, doc{ID: "1", Flag: true}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	var got doc
	if err := Read(p, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Flag {
		t.Error("expected flag flipped")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestRead_NotFound(t *testing.T) {
	var d doc
	if err := Read(filepath.Join(t.TempDir(), "x.json"), &d); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList_SortedJSONOnly(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"b", "a", "c"} {
		if err := Create(Path(dir, id), doc{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600)
	_ = os.WriteFile(filepath.Join(dir, ".tmp.json"), []byte("{}"), 0o600)

	paths, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 || filepath.Base(paths[0]) != "a.json" || filepath.Base(paths[2]) != "c.json" {
		t.Errorf("unexpected listing %v", paths)
	}

	missing, err := List(filepath.Join(dir, "absent"))
	if err != nil || len(missing) != 0 {
		t.Errorf("missing dir: %v %v", missing, err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	p := Path(dir, "1")
	if ok, _ := Exists(p); ok {
		t.Error("expected absent")
	}
	_ = Create(p, doc{})
	if ok, _ := Exists(p); !ok {
		t.Error("expected present")
	}
}
