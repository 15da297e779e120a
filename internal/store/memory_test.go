package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Barczakson/inwentura-op-sub002/internal/core"
)

func TestMemoryUpsertAggregate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	key := core.AggregateKey{ItemID: "A001", Name: "Cukier", Unit: "kg"}

	first, err := m.UpsertAggregate(ctx, key, 100, "f1")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Quantity != 100 || first.Count != 1 {
		t.Fatalf("first = %+v, want quantity 100 count 1", first)
	}
	if len(first.SourceFiles) != 1 || first.SourceFiles[0] != "f1" {
		t.Fatalf("sourceFiles = %v, want [f1]", first.SourceFiles)
	}

	second, err := m.UpsertAggregate(ctx, key, 25, "f2")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Quantity != 125 || second.Count != 2 {
		t.Fatalf("second = %+v, want quantity 125 count 2", second)
	}
	if second.ID != first.ID {
		t.Fatalf("id changed on increment: %s != %s", second.ID, first.ID)
	}

	// Same file again: quantity and count move, the file list does not.
	third, err := m.UpsertAggregate(ctx, key, 5, "f2")
	if err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	if len(third.SourceFiles) != 2 {
		t.Fatalf("sourceFiles = %v, want f2 listed once", third.SourceFiles)
	}
	if third.Count != 3 || math.Abs(third.Quantity-130) > 1e-9 {
		t.Fatalf("third = %+v, want quantity 130 count 3", third)
	}
}

func TestMemoryListAggregatesOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	keys := []core.AggregateKey{
		{Name: "Woda", Unit: "l"},
		{Name: "Cukier", Unit: "kg"},
		{Name: "Sol", Unit: "kg"},
	}
	for _, key := range keys {
		if _, err := m.UpsertAggregate(ctx, key, 1, "f1"); err != nil {
			t.Fatalf("upsert %v: %v", key, err)
		}
	}

	got, err := m.ListAggregates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(keys) {
		t.Fatalf("got %d entries, want %d", len(got), len(keys))
	}
	for i, key := range keys {
		if got[i].Name != key.Name {
			t.Errorf("entry %d = %q, want %q (insertion order)", i, got[i].Name, key.Name)
		}
	}
}

func TestMemoryGetRowsSorted(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateFile(ctx, core.FileRecord{ID: "f1", Name: "inv.xlsx"}); err != nil {
		t.Fatalf("create file: %v", err)
	}
	rows := []core.Record{
		{Name: "C", Quantity: 3, Unit: "kg", OriginalRowIndex: 7},
		{Name: "A", Quantity: 1, Unit: "kg", OriginalRowIndex: 2},
		{Name: "B", Quantity: 2, Unit: "kg", OriginalRowIndex: 5},
	}
	if err := m.InsertRows(ctx, "f1", rows); err != nil {
		t.Fatalf("insert rows: %v", err)
	}

	got, err := m.GetRows(ctx, "f1")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	want := []string{"A", "B", "C"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("row %d = %q, want %q", i, got[i].Name, name)
		}
	}

	if _, err := m.GetRows(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRows(missing) = %v, want ErrNotFound", err)
	}
}

func TestMemoryDeleteFileUnwindsAggregates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ingest := func(fileID string, rows []core.Record) {
		t.Helper()
		if err := m.CreateFile(ctx, core.FileRecord{ID: fileID, Name: fileID + ".xlsx"}); err != nil {
			t.Fatalf("create %s: %v", fileID, err)
		}
		if err := m.InsertRows(ctx, fileID, rows); err != nil {
			t.Fatalf("rows %s: %v", fileID, err)
		}
		for _, rec := range rows {
			if _, err := m.UpsertAggregate(ctx, core.KeyOf(rec), rec.Quantity, fileID); err != nil {
				t.Fatalf("fold %s: %v", fileID, err)
			}
		}
	}

	ingest("f1", []core.Record{
		{ItemID: "A001", Name: "Cukier", Quantity: 100, Unit: "kg", OriginalRowIndex: 1},
		{Name: "Woda", Quantity: 10, Unit: "l", OriginalRowIndex: 2},
	})
	ingest("f2", []core.Record{
		{ItemID: "A001", Name: "Cukier", Quantity: 50, Unit: "kg", OriginalRowIndex: 1},
	})

	if err := m.DeleteFile(ctx, "f2"); err != nil {
		t.Fatalf("delete f2: %v", err)
	}

	got, err := m.ListAggregates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d aggregates after delete, want 2", len(got))
	}
	cukier := got[0]
	if cukier.Quantity != 100 || cukier.Count != 1 {
		t.Errorf("cukier = %+v, want quantity 100 count 1", cukier)
	}
	if len(cukier.SourceFiles) != 1 || cukier.SourceFiles[0] != "f1" {
		t.Errorf("cukier sourceFiles = %v, want [f1]", cukier.SourceFiles)
	}

	// Removing the last contributing file drops the entries entirely.
	if err := m.DeleteFile(ctx, "f1"); err != nil {
		t.Fatalf("delete f1: %v", err)
	}
	got, err = m.ListAggregates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d aggregates after deleting all files, want 0", len(got))
	}

	files, err := m.ListFiles(ctx)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("got %d files, want 0", len(files))
	}

	if err := m.DeleteFile(ctx, "f1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing = %v, want ErrNotFound", err)
	}
}
