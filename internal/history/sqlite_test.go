package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/randytsao24/carefinder/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, q := range []string{"Katpadi", "VIT Vellore", "Gandhi Nagar"} {
		rec := &models.SearchRecord{
			Query:         q,
			Anchor:        models.Coordinates{Latitude: 12.97, Longitude: 79.15},
			WasFallback:   q == "VIT Vellore",
			FacilityCount: i + 1,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if rec.ID == "" {
			t.Fatal("Record should assign an ID")
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Query != "Gandhi Nagar" || got[1].Query != "VIT Vellore" {
		t.Errorf("order = %s, %s", got[0].Query, got[1].Query)
	}
	if !got[1].WasFallback || got[1].FacilityCount != 2 {
		t.Errorf("fields not round-tripped: %+v", got[1])
	}

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v; want 3", n, err)
	}
}

func TestRecentEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Recent = %#v, want empty non-nil slice", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record(context.Background(), &models.SearchRecord{Query: "Vellore"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if n, _ := s.Count(context.Background()); n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}
