package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Barczakson/inwentura-op-sub002/internal/core"
	"github.com/google/uuid"
)

// Memory is a mutex-guarded in-memory Store. The mutex makes every
// operation, upsert included, indivisible, which satisfies the atomic
// upsert-by-key contract without a database.
type Memory struct {
	mu         sync.Mutex
	files      map[string]core.FileRecord
	fileOrder  []string
	rows       map[string][]core.Record
	aggregates map[core.AggregateKey]*core.AggregateEntry
	aggOrder   []core.AggregateKey
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		files:      make(map[string]core.FileRecord),
		rows:       make(map[string][]core.Record),
		aggregates: make(map[core.AggregateKey]*core.AggregateEntry),
	}
}

func (m *Memory) CreateFile(_ context.Context, file core.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[file.ID]; !exists {
		m.fileOrder = append(m.fileOrder, file.ID)
	}
	m.files[file.ID] = file
	return nil
}

func (m *Memory) InsertRows(_ context.Context, fileID string, rows []core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[fileID] = append(m.rows[fileID], rows...)
	return nil
}

func (m *Memory) UpsertAggregate(_ context.Context, key core.AggregateKey, quantity float64, fileID string) (core.AggregateEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.aggregates[key]
	if !ok {
		entry = &core.AggregateEntry{
			ID:          uuid.New().String(),
			ItemID:      key.ItemID,
			Name:        key.Name,
			Unit:        key.Unit,
			Quantity:    quantity,
			Count:       1,
			SourceFiles: []string{fileID},
		}
		m.aggregates[key] = entry
		m.aggOrder = append(m.aggOrder, key)
		return *entry, nil
	}

	entry.Quantity += quantity
	entry.Count++
	if !containsString(entry.SourceFiles, fileID) {
		entry.SourceFiles = append(entry.SourceFiles, fileID)
	}
	return *entry, nil
}

func (m *Memory) GetFile(_ context.Context, fileID string) (core.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[fileID]
	if !ok {
		return core.FileRecord{}, ErrNotFound
	}
	return file, nil
}

func (m *Memory) ListFiles(_ context.Context) ([]core.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.FileRecord, 0, len(m.fileOrder))
	for _, id := range m.fileOrder {
		out = append(out, m.files[id])
	}
	return out, nil
}

func (m *Memory) GetRows(_ context.Context, fileID string) ([]core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[fileID]; !ok {
		return nil, ErrNotFound
	}
	rows := m.rows[fileID]
	out := make([]core.Record, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OriginalRowIndex < out[j].OriginalRowIndex
	})
	return out, nil
}

func (m *Memory) ListAggregates(_ context.Context) ([]core.AggregateEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.AggregateEntry, 0, len(m.aggOrder))
	for _, key := range m.aggOrder {
		if entry, ok := m.aggregates[key]; ok {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (m *Memory) DeleteFile(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[fileID]; !ok {
		return ErrNotFound
	}

	for key, c := range contributionsOf(m.rows[fileID]) {
		entry, ok := m.aggregates[key]
		if !ok {
			continue
		}
		entry.Quantity -= c.quantity
		entry.Count -= c.count
		entry.SourceFiles = removeString(entry.SourceFiles, fileID)
		if entry.Count <= 0 {
			delete(m.aggregates, key)
			m.aggOrder = removeKey(m.aggOrder, key)
		}
	}

	delete(m.files, fileID)
	delete(m.rows, fileID)
	m.fileOrder = removeString(m.fileOrder, fileID)
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func removeKey(list []core.AggregateKey, key core.AggregateKey) []core.AggregateKey {
	out := list[:0]
	for _, v := range list {
		if v != key {
			out = append(out, v)
		}
	}
	return out
}
