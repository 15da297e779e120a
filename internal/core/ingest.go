package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// sampleRowLimit caps how many body rows feed detection's type
// inference.
const sampleRowLimit = 10

// Store is the persistence collaborator for ingestion. It is
// constructed by the caller and passed in explicitly; retries, timeouts
// and pooling are the implementation's concern, not the engine's.
type Store interface {
	AggregateUpserter
	CreateFile(ctx context.Context, file FileRecord) error
	InsertRows(ctx context.Context, fileID string, rows []Record) error
}

// IngestInput is one parsed spreadsheet handed in by the route layer.
// Mapping may be nil: detection then runs on Headers plus a sample of
// Body rows.
type IngestInput struct {
	FileName  string
	SizeBytes int64
	Headers   []string
	Body      [][]Cell
	Mapping   Mapping
}

// IngestResult summarizes a committed ingestion.
type IngestResult struct {
	FileID     string     `json:"fileId"`
	FileName   string     `json:"fileName"`
	RowCount   int        `json:"rowCount"`
	Detection  *Detection `json:"detection,omitempty"`
	Aggregates int        `json:"aggregatesTouched"`
}

// Ingestor runs the full pipeline for one file: resolve the mapping,
// classify the body, apply the mapping per data row, then persist raw
// rows and fold them into the aggregate view.
type Ingestor struct {
	store Store
	log   *slog.Logger
}

// NewIngestor creates an Ingestor over the given storage collaborator.
func NewIngestor(store Store, log *slog.Logger) *Ingestor {
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{store: store, log: log}
}

// IngestFile processes one file to completion. All rows are validated
// before anything is persisted: the first MappingError aborts the batch
// and no raw rows, structure, or aggregate updates are committed for
// the file. A storage error raised mid-persist can still leave partial
// state behind; recovering from that (transactions, cleanup) is the
// Store implementation's concern, not handled here.
func (in *Ingestor) IngestFile(ctx context.Context, input IngestInput) (*IngestResult, error) {
	mapping := input.Mapping
	var detection *Detection
	if len(mapping) == 0 {
		d := Detect(input.Headers, SampleRows(input.Body))
		detection = &d
		mapping = d.Mapping
		in.log.Info("mapping detected",
			"file", input.FileName,
			"confidence", d.Confidence,
			"needs_review", d.NeedsReview(),
		)
	}
	if err := mapping.Validate(len(input.Headers)); err != nil {
		return nil, err
	}

	cls := Classify(input.Body, mapping)

	records := make([]Record, 0, len(cls.DataRows))
	for _, dr := range cls.DataRows {
		rec, err := ApplyMapping(dr.Row, mapping, dr.OriginalRowIndex)
		if err != nil {
			return nil, fmt.Errorf("apply mapping: %w", err)
		}
		records = append(records, rec)
	}

	fileID := uuid.New().String()
	file := FileRecord{
		ID:        fileID,
		Name:      input.FileName,
		Structure: cls.Structure,
		RowCount:  len(records),
		SizeBytes: input.SizeBytes,
	}
	if err := in.store.CreateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if err := in.store.InsertRows(ctx, fileID, records); err != nil {
		return nil, fmt.Errorf("insert rows: %w", err)
	}

	touched := make(map[AggregateKey]bool, len(records))
	for _, rec := range records {
		entry, err := Fold(ctx, in.store, rec, fileID)
		if err != nil {
			return nil, fmt.Errorf("fold row %d: %w", rec.OriginalRowIndex, err)
		}
		touched[AggregateKey{ItemID: entry.ItemID, Name: entry.Name, Unit: entry.Unit}] = true
	}

	in.log.Info("file ingested",
		"file", input.FileName,
		"file_id", fileID,
		"rows", len(records),
		"aggregates", len(touched),
	)

	return &IngestResult{
		FileID:     fileID,
		FileName:   input.FileName,
		RowCount:   len(records),
		Detection:  detection,
		Aggregates: len(touched),
	}, nil
}

// SampleRows returns the leading body rows used for detection's
// sample-data inference.
func SampleRows(body [][]Cell) [][]Cell {
	if len(body) <= sampleRowLimit {
		return body
	}
	return body[:sampleRowLimit]
}
