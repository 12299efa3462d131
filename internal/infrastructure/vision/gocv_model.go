//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
)

// GoCVModel YOLOv8 в ONNX через модуль DNN из OpenCV.
type GoCVModel struct {
	opts   Options
	labels []string

	mu  sync.Mutex
	net *gocv.Net
}

// NewGoCVModel читает ONNX-модель через OpenCV DNN.
func NewGoCVModel(opts Options) (*GoCVModel, error) {
	if err := checkModelFile(opts.ModelPath); err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(opts.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("read onnx model %s: empty network", opts.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set dnn backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set dnn target: %w", err)
	}

	// OpenCV не читает метаданные ONNX, имена берём из файла или встроенные.
	labels, err := ResolveLabels(opts.LabelsPath, "")
	if err != nil {
		net.Close()
		return nil, err
	}

	return &GoCVModel{opts: opts, labels: labels, net: &net}, nil
}

// Predict выполняет один проход сети.
func (m *GoCVModel) Predict(ctx context.Context, img image.Image) ([]entity.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxed, params := Letterbox(img, m.opts.InputSize)

	mat, err := gocv.ImageToMatRGB(boxed)
	if err != nil {
		return nil, fmt.Errorf("image to mat: %w", err)
	}
	defer mat.Close()

	// ImageToMatRGB отдаёт BGR, поэтому swapRB.
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(m.opts.InputSize, m.opts.InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.net == nil {
		return nil, errors.New("dnn network is closed")
	}

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read dnn output: %w", err)
	}

	rows, cols := dims[1], dims[2]
	return DecodeYOLO(data, rows, cols, params, m.opts.decodeOptions(rows > cols), m.labels), nil
}

// Labels имена классов модели
func (m *GoCVModel) Labels() []string {
	return m.labels
}

// Close освобождает сеть.
func (m *GoCVModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.net == nil {
		return nil
	}
	err := m.net.Close()
	m.net = nil
	return err
}

var _ port.DiseaseModel = (*GoCVModel)(nil)
