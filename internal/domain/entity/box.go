package entity

import (
	"image"
	"math"
)

// Box прямоугольник детекции в пикселях исходного изображения
type Box struct {
	X1 float64 // левый верхний угол
	Y1 float64
	X2 float64 // правый нижний угол
	Y2 float64
}

// Width ширина области
func (b Box) Width() float64 {
	return math.Max(0, b.X2-b.X1)
}

// Height высота области
func (b Box) Height() float64 {
	return math.Max(0, b.Y2-b.Y1)
}

// Area площадь области, для вырожденных рамок ноль
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Rect округляет рамку до целых пикселей
func (b Box) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(b.X1)),
		int(math.Round(b.Y1)),
		int(math.Round(b.X2)),
		int(math.Round(b.Y2)),
	)
}

// Slice возвращает координаты в виде [x1, y1, x2, y2]
func (b Box) Slice() []float64 {
	return []float64{b.X1, b.Y1, b.X2, b.Y2}
}
