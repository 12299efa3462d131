// Package imageio приводит загруженные изображения к виду, который понимает модель.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

var (
	ErrEmptyImage        = errors.New("empty image")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// DefaultJPEGQuality качество JPEG для результатов
const DefaultJPEGQuality = 90

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// AllowedExtension проверяет расширение загружаемого файла.
func AllowedExtension(name string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// AllowedExtensions список допустимых расширений для подсказок в интерфейсе.
func AllowedExtensions() []string {
	return []string{"jpg", "jpeg", "png", "webp"}
}

// Decode превращает байты файла в image.Image и возвращает имя формата.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	var (
		img    image.Image
		format string
		err    error
	)
	if isWebP(data) {
		img, err = webp.Decode(bytes.NewReader(data))
		format = "webp"
	} else {
		img, format, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", ErrEmptyImage
	}

	return img, format, nil
}

// ToRGB возвращает непрозрачную RGB-копию изображения с началом в (0, 0).
// Альфа-канал отбрасывается без смешивания с фоном.
func ToRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	// NRGBA хранит цвет без домножения на альфу, поэтому достаточно поднять A.
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	} else if src, ok := img.(*image.NRGBA64); ok {
		// 16-битный PNG с прозрачностью: тоже без домножения, берём старший байт.
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := src.NRGBA64At(b.Min.X+x, b.Min.Y+y)
				i := dst.PixOffset(x, y)
				dst.Pix[i+0] = uint8(c.R >> 8)
				dst.Pix[i+1] = uint8(c.G >> 8)
				dst.Pix[i+2] = uint8(c.B >> 8)
			}
		}
	} else if isOpaque(img) {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		// У прочих моделей цвета берём неумноженные значения через NRGBAModel.
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				dst.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}

	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Clone делает независимую копию изображения.
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// EncodeJPEG кодирует изображение в JPEG.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// isWebP проверяет сигнатуру RIFF....WEBP
func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
