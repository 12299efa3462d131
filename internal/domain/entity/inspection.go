package entity

// InspectionResult хранит итог анализа изображения.
type InspectionResult struct {
	ImageWidth    int         // ширина изображения
	ImageHeight   int         // высота изображения
	Detections    []Detection // список найденных поражений
	HasDetections bool        // флаг наличия поражений
}

// NewInspectionResult собирает результат и выставляет флаг наличия поражений.
func NewInspectionResult(width, height int, detections []Detection) *InspectionResult {
	return &InspectionResult{
		ImageWidth:    width,
		ImageHeight:   height,
		Detections:    detections,
		HasDetections: len(detections) > 0,
	}
}

// ImageArea площадь изображения в пикселях
func (r *InspectionResult) ImageArea() float64 {
	return float64(r.ImageWidth) * float64(r.ImageHeight)
}

// AiDescription текстовое описание поражений от ИИ.
type AiDescription struct {
	Text string
}
