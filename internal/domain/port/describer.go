package port

import (
	"context"

	"leafscan/internal/domain/entity"
)

// DiseaseDescriber интерфейс описателя найденных заболеваний
type DiseaseDescriber interface {
	// Describe генерирует текстовое описание и рекомендации
	Describe(ctx context.Context, result *entity.InspectionResult) (*entity.AiDescription, error)
}
