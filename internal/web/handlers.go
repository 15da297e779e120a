package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Barczakson/inwentura-op-sub002/internal/core"
	"github.com/Barczakson/inwentura-op-sub002/internal/logging"
	"github.com/Barczakson/inwentura-op-sub002/internal/xlsx"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DetectResponse is the payload for mapping detection previews.
type DetectResponse struct {
	Headers     []string     `json:"headers"`
	Mapping     core.Mapping `json:"mapping"`
	Confidence  int          `json:"confidence"`
	NeedsReview bool         `json:"needsReview"`
}

// handleDetect analyzes an uploaded workbook's headers and returns the
// proposed column mapping without persisting anything. Parsing a
// workbook is as expensive here as on upload, so it holds an ingest
// slot for the duration.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	wb, _, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	d := core.Detect(wb.Headers, core.SampleRows(wb.Rows))
	writeJSON(w, DetectResponse{
		Headers:     wb.Headers,
		Mapping:     d.Mapping,
		Confidence:  d.Confidence,
		NeedsReview: d.NeedsReview(),
	})
}

// handleUpload ingests an uploaded workbook: the whole file is
// validated first and either committed completely or rejected with the
// offending row.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	wb, header, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	// Accept a caller-supplied mapping to override detection.
	var mapping core.Mapping
	if mappingJSON := r.FormValue("mapping"); mappingJSON != "" {
		if err := json.Unmarshal([]byte(mappingJSON), &mapping); err != nil {
			writeError(w, http.StatusBadRequest, "invalid mapping format")
			return
		}
	}

	result, err := s.ingestor.IngestFile(r.Context(), core.IngestInput{
		FileName:  header.name,
		SizeBytes: header.size,
		Headers:   wb.Headers,
		Body:      wb.Rows,
		Mapping:   mapping,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("upload accepted",
		"file", result.FileName,
		"file_id", result.FileID,
		"rows", result.RowCount,
	)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result)
}

// uploadMeta carries the multipart part's original name and size.
type uploadMeta struct {
	name string
	size int64
}

// readUpload parses the multipart form and decodes the "file" part as
// an xlsx workbook. It writes the error response itself and reports
// success via the last return value.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*xlsx.Workbook, uploadMeta, bool) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return nil, uploadMeta{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return nil, uploadMeta{}, false
	}
	defer file.Close()

	wb, err := xlsx.ReadWorkbook(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read workbook: not a valid xlsx file")
		return nil, uploadMeta{}, false
	}
	return wb, uploadMeta{name: header.Filename, size: header.Size}, true
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListFiles(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if files == nil {
		files = []core.FileRecord{}
	}
	writeJSON(w, map[string]any{"files": files})
}

// FileDetailResponse is the payload for a single file lookup: metadata
// plus the canonical rows in original document order.
type FileDetailResponse struct {
	File core.FileRecord `json:"file"`
	Rows []core.Record   `json:"rows"`
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	file, err := s.store.GetFile(r.Context(), fileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rows, err := s.store.GetRows(r.Context(), fileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.Record{}
	}
	writeJSON(w, FileDetailResponse{File: file, Rows: rows})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	if err := s.store.DeleteFile(r.Context(), fileID); err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("file deleted", "file_id", fileID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAggregates(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListAggregates(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.AggregateEntry{}
	}
	writeJSON(w, map[string]any{"aggregates": entries})
}

// handleExportAggregate streams the current aggregate totals as a
// single-sheet xlsx document.
func (s *Server) handleExportAggregate(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListAggregates(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rows := make([][]core.Cell, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, core.AggregateCells(e))
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="aggregated.xlsx"`)
	if err := xlsx.Write(w, "Agregacja", core.ExportColumns, rows); err != nil {
		logging.FromContext(r.Context()).Error("aggregate export failed", "error", err)
	}
}

// handleExportFile reconstructs one ingested file in its original
// visual layout, category label rows included.
func (s *Server) handleExportFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	file, err := s.store.GetFile(r.Context(), fileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	records, err := s.store.GetRows(r.Context(), fileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := make([][]core.Cell, 0, len(records))
	for _, rec := range records {
		data = append(data, core.RecordCells(rec))
	}
	rows, err := core.Reinterleave(file.Structure, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	if err := xlsx.Write(w, "Inwentura", core.ExportColumns, rows); err != nil {
		logging.FromContext(r.Context()).Error("file export failed", "error", err)
	}
}
