package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
	"leafscan/internal/infrastructure/imageio"
)

const (
	// DefaultColor "green" в именах цветов PIL
	DefaultColor = "#008000"

	defaultFontSize  = 20
	defaultLineWidth = 2
	labelOffset      = 20
)

// Options оформление рамок
type Options struct {
	Color     string  // hex, например #008000
	FontPath  string  // TTF/OTF, если пусто, то Go Regular
	FontSize  float64 // кегль подписи в пикселях
	LineWidth int     // толщина рамки
}

// Annotator рисует рамки и подписи «болезнь (уверенность)».
type Annotator struct {
	color     color.NRGBA
	face      font.Face
	lineWidth int
}

// NewAnnotator готовит цвет и шрифт. Если шрифт не загрузился, берётся встроенный.
func NewAnnotator(opts Options, log logrus.FieldLogger) (*Annotator, error) {
	if opts.Color == "" {
		opts.Color = DefaultColor
	}
	if opts.FontSize <= 0 {
		opts.FontSize = defaultFontSize
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = defaultLineWidth
	}

	c, err := ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}

	face, err := loadFace(opts.FontPath, opts.FontSize)
	if err != nil {
		log.WithError(err).Warn("font load failed, using basic font")
		face = basicfont.Face7x13
	}

	return &Annotator{color: c, face: face, lineWidth: opts.LineWidth}, nil
}

// ParseColor разбирает hex-цвет в непрозрачный NRGBA.
func ParseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Annotate рисует на копии, исходное изображение не меняется.
func (a *Annotator) Annotate(img image.Image, detections []entity.Detection) (image.Image, error) {
	canvas := imageio.Clone(img)

	for _, d := range detections {
		a.drawRect(canvas, d.Box.Rect())

		label := fmt.Sprintf("%s (%.2f)", d.Disease, d.Confidence)
		a.drawText(canvas, label, int(math.Round(d.Box.X1)), int(math.Round(d.Box.Y1))-labelOffset)
	}

	return canvas, nil
}

// drawRect рисует контур внутрь от границ рамки, правый и нижний край включительно.
func (a *Annotator) drawRect(dst *image.NRGBA, r image.Rectangle) {
	fill := image.NewUniform(a.color)
	for i := 0; i < a.lineWidth; i++ {
		x1, y1 := r.Min.X+i, r.Min.Y+i
		x2, y2 := r.Max.X-i, r.Max.Y-i
		if x1 > x2 || y1 > y2 {
			break
		}
		draw.Draw(dst, image.Rect(x1, y1, x2+1, y1+1), fill, image.Point{}, draw.Src)
		draw.Draw(dst, image.Rect(x1, y2, x2+1, y2+1), fill, image.Point{}, draw.Src)
		draw.Draw(dst, image.Rect(x1, y1, x1+1, y2+1), fill, image.Point{}, draw.Src)
		draw.Draw(dst, image.Rect(x2, y1, x2+1, y2+1), fill, image.Point{}, draw.Src)
	}
}

// drawText пишет строку так, что (x, y) это левый верхний угол текста.
func (a *Annotator) drawText(dst *image.NRGBA, text string, x, y int) {
	ascent := a.face.Metrics().Ascent
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(a.color),
		Face: a.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + ascent},
	}
	d.DrawString(text)
}

func loadFace(path string, size float64) (font.Face, error) {
	data := goregular.TTF
	if path != "" {
		custom, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = custom
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

var _ port.Annotator = (*Annotator)(nil)
