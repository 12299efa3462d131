package entity

import "time"

// Record сохранённый результат одной проверки
type Record struct {
	ID         string
	CreatedAt  time.Time
	Detections []Detection
	Original   []byte // исходное фото, JPEG
	Annotated  []byte // фото с рамками, JPEG
}
