package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"vaultd/internal/domain"
	"vaultd/pkg/platform/sentinel"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(title string) domain.Record {
	return domain.Record{
		Title:       title,
		Description: "desc",
		Data:        "data",
		CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInsertGetContains(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.Insert(ctx, "r1", record("first")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "first" || !got.CreatedAt.Equal(record("first").CreatedAt) {
		t.Fatalf("unexpected record: %+v", got)
	}

	ok, err := s.Contains(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("expected contains true, got (%v, %v)", ok, err)
	}
	ok, err = s.Contains(ctx, "r2")
	if err != nil || ok {
		t.Fatalf("expected contains false, got (%v, %v)", ok, err)
	}

	_, err = s.Get(ctx, "missing")
	if !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOverwriteKeepsPosition(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.Insert(ctx, "x", record("first")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, "y", record("second")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, "x", record("updated")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := s.Get(ctx, "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "updated" {
		t.Fatalf("expected last write to win, got %q", got.Title)
	}

	page, err := s.Page(ctx, 0, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 2 || page[0].ID != "x" || page[1].ID != "y" {
		t.Fatalf("expected x to keep first position, got %+v", page)
	}
}

func TestPaginationStability(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for i := 1; i <= 12; i++ {
		if err := s.Insert(ctx, strconv.Itoa(i), record("r"+strconv.Itoa(i))); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	first, err := s.Page(ctx, 0, 5)
	if err != nil {
		t.Fatalf("page 0: %v", err)
	}
	if len(first) != 5 || first[0].ID != "1" || first[4].ID != "5" {
		t.Fatalf("unexpected page 0: %+v", first)
	}

	last, err := s.Page(ctx, 2, 5)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(last) != 2 || last[0].ID != "11" || last[1].ID != "12" {
		t.Fatalf("unexpected page 2: %+v", last)
	}

	empty, err := s.Page(ctx, 3, 5)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", empty)
	}
}

func TestPageHugeIndex(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.Insert(ctx, "r1", record("first")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// An index whose page*size overflows must come back as an empty page,
	// not wrap negative and silently re-serve page 0.
	got, err := s.Page(ctx, math.MaxInt/5+1, 5)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty page for overflowing index, got %+v", got)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}
