package entity

// Severity уровень поражения листа
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Пороги доли площади рамки от площади изображения.
const (
	lowRatioLimit    = 0.2
	mediumRatioLimit = 0.5
)

// SeverityFor считает уровень поражения по доле площади рамки.
// При неположительной площади изображения доля не определена, считаем её нулевой.
func SeverityFor(boxArea, imageArea float64) Severity {
	if imageArea <= 0 {
		return SeverityLow
	}

	ratio := boxArea / imageArea
	switch {
	case ratio < lowRatioLimit:
		return SeverityLow
	case ratio < mediumRatioLimit:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}
