package core

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store used to exercise ingestion and
// folding without a database.
type fakeStore struct {
	mu         sync.Mutex
	files      map[string]FileRecord
	rows       map[string][]Record
	aggregates map[AggregateKey]*AggregateEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:      make(map[string]FileRecord),
		rows:       make(map[string][]Record),
		aggregates: make(map[AggregateKey]*AggregateEntry),
	}
}

func (s *fakeStore) CreateFile(_ context.Context, file FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file.ID] = file
	return nil
}

func (s *fakeStore) InsertRows(_ context.Context, fileID string, rows []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[fileID] = append(s.rows[fileID], rows...)
	return nil
}

func (s *fakeStore) UpsertAggregate(_ context.Context, key AggregateKey, quantity float64, fileID string) (AggregateEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.aggregates[key]
	if !ok {
		entry = &AggregateEntry{
			ID:          uuid.New().String(),
			ItemID:      key.ItemID,
			Name:        key.Name,
			Unit:        key.Unit,
			Quantity:    quantity,
			Count:       1,
			SourceFiles: []string{fileID},
		}
		s.aggregates[key] = entry
		return *entry, nil
	}

	entry.Quantity += quantity
	entry.Count++
	found := false
	for _, f := range entry.SourceFiles {
		if f == fileID {
			found = true
			break
		}
	}
	if !found {
		entry.SourceFiles = append(entry.SourceFiles, fileID)
	}
	return *entry, nil
}

func TestFoldMergesNormalizedUnits(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	first := Record{Name: "Product A", Unit: "kg", Quantity: 100}
	second := Record{Name: "Product A", Unit: "KG", Quantity: 25}

	if _, err := Fold(ctx, store, first, "F1"); err != nil {
		t.Fatalf("fold first: %v", err)
	}
	entry, err := Fold(ctx, store, second, "F2")
	if err != nil {
		t.Fatalf("fold second: %v", err)
	}

	if len(store.aggregates) != 1 {
		t.Fatalf("aggregates = %d, want 1", len(store.aggregates))
	}
	if entry.Quantity != 125 {
		t.Errorf("Quantity = %v, want 125", entry.Quantity)
	}
	if entry.Count != 2 {
		t.Errorf("Count = %d, want 2", entry.Count)
	}
	wantFiles := []string{"F1", "F2"}
	if len(entry.SourceFiles) != 2 || entry.SourceFiles[0] != wantFiles[0] || entry.SourceFiles[1] != wantFiles[1] {
		t.Errorf("SourceFiles = %v, want %v", entry.SourceFiles, wantFiles)
	}
}

func TestFoldCommutative(t *testing.T) {
	ctx := context.Background()
	records := []Record{
		{Name: "Product A", Unit: "kg", Quantity: 100},
		{Name: "Product A", Unit: "kg", Quantity: 25},
		{Name: "Product A", Unit: "kg", Quantity: 0.5},
	}
	orders := [][]int{{0, 1, 2}, {2, 0, 1}, {1, 2, 0}}

	var totals []float64
	for _, order := range orders {
		store := newFakeStore()
		var last AggregateEntry
		for _, i := range order {
			var err error
			last, err = Fold(ctx, store, records[i], "F1")
			if err != nil {
				t.Fatalf("fold: %v", err)
			}
		}
		totals = append(totals, last.Quantity)
	}

	for i := 1; i < len(totals); i++ {
		if totals[i] != totals[0] {
			t.Errorf("order %v total = %v, want %v", orders[i], totals[i], totals[0])
		}
	}
}

func TestFoldDistinctKeys(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	records := []Record{
		{ItemID: "A001", Name: "Product A", Unit: "kg", Quantity: 1},
		{ItemID: "A002", Name: "Product A", Unit: "kg", Quantity: 1}, // different itemId
		{Name: "Product A", Unit: "kg", Quantity: 1},                 // no itemId
		{Name: "product a", Unit: "kg", Quantity: 1},                 // name is case-sensitive
		{Name: "Product A", Unit: "l", Quantity: 1},                  // different unit
	}
	for _, rec := range records {
		if _, err := Fold(ctx, store, rec, "F1"); err != nil {
			t.Fatalf("fold: %v", err)
		}
	}

	if len(store.aggregates) != len(records) {
		t.Errorf("aggregates = %d, want %d", len(store.aggregates), len(records))
	}
}

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ing := NewIngestor(store, nil)

	result, err := ing.IngestFile(ctx, IngestInput{
		FileName: "inwentura.xlsx",
		Headers:  []string{"Nr indeksu", "Nazwa towaru", "Ilość", "JMZ"},
		Body: [][]Cell{
			{TextCell("SUROWCE")},
			{TextCell("A001"), TextCell("Product A"), TextCell("100"), TextCell("kg")},
			{TextCell("A002"), TextCell("Product B"), TextCell("2,5"), TextCell("l")},
			{TextCell("A001"), TextCell("Product A"), TextCell("25"), TextCell("KG")},
		},
	})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}

	if result.RowCount != 3 {
		t.Errorf("RowCount = %d, want 3", result.RowCount)
	}
	if result.Aggregates != 2 {
		t.Errorf("Aggregates = %d, want 2", result.Aggregates)
	}
	if result.Detection == nil || result.Detection.Confidence < LowConfidence {
		t.Errorf("Detection = %+v, want high confidence", result.Detection)
	}

	file, ok := store.files[result.FileID]
	if !ok {
		t.Fatal("file not persisted")
	}
	if len(file.Structure) != 4 {
		t.Errorf("structure entries = %d, want 4", len(file.Structure))
	}
	if file.Structure[0].Type != EntryHeader || file.Structure[0].Label != "SUROWCE" {
		t.Errorf("structure[0] = %+v, want SUROWCE header", file.Structure[0])
	}

	rows := store.rows[result.FileID]
	if len(rows) != 3 {
		t.Fatalf("persisted rows = %d, want 3", len(rows))
	}
	if rows[0].OriginalRowIndex != 1 || rows[2].OriginalRowIndex != 3 {
		t.Errorf("row indices = %d, %d, want 1, 3", rows[0].OriginalRowIndex, rows[2].OriginalRowIndex)
	}

	key := AggregateKey{ItemID: "A001", Name: "Product A", Unit: "kg"}
	agg, ok := store.aggregates[key]
	if !ok {
		t.Fatal("aggregate for Product A missing")
	}
	if agg.Quantity != 125 || agg.Count != 2 {
		t.Errorf("aggregate = %v/%d, want 125/2", agg.Quantity, agg.Count)
	}
}

func TestIngestFileAbortsBatchOnFirstError(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ing := NewIngestor(store, nil)

	_, err := ing.IngestFile(ctx, IngestInput{
		FileName: "broken.xlsx",
		Headers:  []string{"Nr indeksu", "Nazwa towaru", "Ilość", "JMZ"},
		Mapping:  testMapping,
		Body: [][]Cell{
			{TextCell("A001"), TextCell("Product A"), TextCell("100"), TextCell("kg")},
			{TextCell("A002"), TextCell("Product B"), TextCell("dużo"), TextCell("kg")},
			{TextCell("A003"), TextCell("Product C"), TextCell("5"), TextCell("kg")},
		},
	})

	if !IsMappingError(err) {
		t.Fatalf("err = %v, want MappingError", err)
	}
	// Nothing may be committed: no files, rows, or aggregates.
	if len(store.files) != 0 || len(store.rows) != 0 || len(store.aggregates) != 0 {
		t.Errorf("partial state persisted: files=%d rows=%d aggregates=%d",
			len(store.files), len(store.rows), len(store.aggregates))
	}
}

func TestIngestFileRejectsInvalidMapping(t *testing.T) {
	ctx := context.Background()
	ing := NewIngestor(newFakeStore(), nil)

	_, err := ing.IngestFile(ctx, IngestInput{
		FileName: "x.xlsx",
		Headers:  []string{"Nazwa", "Ilość"},
		Mapping:  Mapping{FieldName: 0, FieldQuantity: 1, FieldUnit: 7},
		Body:     [][]Cell{{TextCell("a"), TextCell("1")}},
	})
	if err == nil {
		t.Fatal("expected mapping validation error")
	}
}
