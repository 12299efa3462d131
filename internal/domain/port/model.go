package port

import (
	"context"
	"image"

	"leafscan/internal/domain/entity"
)

// DiseaseModel интерфейс предобученной модели детекции
type DiseaseModel interface {
	// Predict запускает один проход модели по RGB-изображению
	Predict(ctx context.Context, img image.Image) ([]entity.Prediction, error)

	// Labels возвращает имена классов модели
	Labels() []string

	// Close освобождает ресурсы модели
	Close() error
}
