package port

import (
	"context"
	"errors"

	"leafscan/internal/domain/entity"
)

// ErrRecordNotFound запись с таким ID не найдена
var ErrRecordNotFound = errors.New("record not found")

// RecordRepository интерфейс хранилища результатов проверок
type RecordRepository interface {
	// Save сохраняет запись
	Save(ctx context.Context, record *entity.Record) error

	// Get возвращает запись по ID или ErrRecordNotFound
	Get(ctx context.Context, id string) (*entity.Record, error)

	// List возвращает последние записи, новые первыми
	List(ctx context.Context, limit int) ([]*entity.Record, error)
}
