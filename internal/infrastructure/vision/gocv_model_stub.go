//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"image"

	"leafscan/internal/domain/entity"
)

var errGoCVDisabled = errors.New("gocv build tag is not enabled")

// GoCVModel заглушка для сборки без OpenCV.
type GoCVModel struct{}

// NewGoCVModel возвращает ошибку, если сборка без тега gocv.
func NewGoCVModel(opts Options) (*GoCVModel, error) {
	_ = opts
	return nil, errGoCVDisabled
}

// Predict возвращает ошибку, если сборка без тега gocv.
func (m *GoCVModel) Predict(ctx context.Context, img image.Image) ([]entity.Prediction, error) {
	_ = ctx
	_ = img
	return nil, errGoCVDisabled
}

// Labels пустой список для заглушки.
func (m *GoCVModel) Labels() []string {
	return nil
}

// Close ничего не делает.
func (m *GoCVModel) Close() error {
	return nil
}
