package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIndexBuilder_BookmarkSchema(t *testing.T) {
	idx, err := NewIndex("lod_bookmarks").
		Prefix("lodrag:bookmarks:").
		Tag("source").
		VectorHNSW("vector", 1536, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name != "source" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want source TAG", idx.Fields[0])
	}
	v := idx.Fields[1]
	if v.Type != IndexFieldVector || v.VectorDim != 1536 || v.VectorDistance != DistanceCosine {
		t.Errorf("field[1] = %+v", v)
	}
	if v.VectorM != 16 || v.VectorEFConstruct != 200 {
		t.Errorf("hnsw params = %d/%d", v.VectorM, v.VectorEFConstruct)
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Tag("a")},
		{"bad name", NewIndex("my index").Tag("a")},
		{"no fields", NewIndex("idx")},
		{"zero dim", NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 0, 0)},
		{"duplicate", NewIndex("idx").Tag("a").Tag("a")},
		{"two vectors", NewIndex("idx").VectorHNSW("v1", 4, DistanceCosine, 0, 0).VectorHNSW("v2", 4, DistanceCosine, 0, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.b.Build(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx, err := NewIndex("idx").Prefix("p:").Tag("source").VectorHNSW("vector", 4, DistanceCosine, 0, 0).Build()
	if err != nil {
		t.Fatal(err)
	}
	s := idx.String()
	for _, want := range []string{"FT.CREATE idx", "ON HASH", "PREFIX 1 p:", "source TAG", "vector VECTOR HNSW DIM 4"} {
		if !strings.Contains(s, want) {
			t.Errorf("%q missing %q", s, want)
		}
	}
}

func TestIndexBuilder_TagVariadic(t *testing.T) {
	idx, err := NewIndex("idx").Tag("source", "bookmark_id").Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(idx.Fields) != 2 || idx.Fields[1].Name != "bookmark_id" {
		t.Errorf("fields = %+v", idx.Fields)
	}
}

func TestOpOf(t *testing.T) {
	err := fmt.Errorf("upsert: %w", &Error{Op: OpHSet, Err: errors.New("READONLY")})
	if got := OpOf(err); got != OpHSet {
		t.Errorf("OpOf = %q, want HSET", got)
	}
	if got := OpOf(errors.New("plain")); got != "" {
		t.Errorf("OpOf(plain) = %q", got)
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for _, s := range []string{"lod_bookmarks", "a:b-c", "X1"} {
		if !IsValidIdentifier(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []string{"", "a b", "a.b", "키"} {
		if IsValidIdentifier(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
