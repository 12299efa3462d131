package vision

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// padColor серый фон, которым YOLO дополняет изображение до квадрата
var padColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// LetterboxParams нужны, чтобы вернуть рамки в координаты исходного фото.
type LetterboxParams struct {
	Scale float64
	PadX  float64
	PadY  float64
	OrigW int
	OrigH int
}

// Letterbox вписывает изображение в квадрат size×size с сохранением пропорций.
func Letterbox(img image.Image, size int) (*image.NRGBA, LetterboxParams) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	newW := max(1, int(math.Round(float64(w)*scale)))
	newH := max(1, int(math.Round(float64(h)*scale)))

	resized := imaging.Resize(img, newW, newH, imaging.Linear)

	padX := (size - newW) / 2
	padY := (size - newH) / 2
	canvas := imaging.New(size, size, padColor)
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))

	return canvas, LetterboxParams{
		Scale: scale,
		PadX:  float64(padX),
		PadY:  float64(padY),
		OrigW: w,
		OrigH: h,
	}
}

// ToTensor раскладывает изображение в NCHW float32, значения в [0, 1].
func ToTensor(img *image.NRGBA, dst []float32) []float32 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	plane := w * h
	if len(dst) < 3*plane {
		dst = make([]float32, 3*plane)
	}

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			dst[i] = float32(row[x*4]) / 255
			dst[plane+i] = float32(row[x*4+1]) / 255
			dst[2*plane+i] = float32(row[x*4+2]) / 255
		}
	}
	return dst[:3*plane]
}
