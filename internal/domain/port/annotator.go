package port

import (
	"image"

	"leafscan/internal/domain/entity"
)

// Annotator рисует рамки и подписи на копии изображения
type Annotator interface {
	Annotate(img image.Image, detections []entity.Detection) (image.Image, error)
}
