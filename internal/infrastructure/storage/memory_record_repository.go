package storage

import (
	"context"
	"sort"
	"sync"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
)

// MemoryRecordRepository хранит результаты проверок в памяти процесса
type MemoryRecordRepository struct {
	mu      sync.RWMutex
	records map[string]*entity.Record
}

// NewMemoryRecordRepository создаёт пустое хранилище
func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{
		records: make(map[string]*entity.Record),
	}
}

// Save сохраняет запись, повторный Save с тем же ID перезаписывает её
func (r *MemoryRecordRepository) Save(ctx context.Context, record *entity.Record) error {
	r.mu.Lock()
	r.records[record.ID] = record
	r.mu.Unlock()
	return nil
}

// Get возвращает запись по ID
func (r *MemoryRecordRepository) Get(ctx context.Context, id string) (*entity.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, port.ErrRecordNotFound
	}
	return record, nil
}

// List возвращает до limit последних записей; при limit <= 0 все
func (r *MemoryRecordRepository) List(ctx context.Context, limit int) ([]*entity.Record, error) {
	r.mu.RLock()
	records := make([]*entity.Record, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	r.mu.RUnlock()

	return newestFirst(records, limit), nil
}

func newestFirst(records []*entity.Record, limit int) []*entity.Record {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

var _ port.RecordRepository = (*MemoryRecordRepository)(nil)
