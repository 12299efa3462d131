package vision

import (
	"fmt"
	"os"
	"runtime"

	"leafscan/internal/domain/port"
)

const (
	BackendONNX = "onnx"
	BackendGoCV = "gocv"
)

// Options параметры загрузки и постобработки модели
type Options struct {
	Backend       string
	ModelPath     string
	LabelsPath    string
	LibraryPath   string // путь к onnxruntime.so / .dylib / .dll
	InputSize     int
	ConfThreshold float64
	IoUThreshold  float64
	MaxDetections int
}

// DefaultOptions значения по умолчанию как у ultralytics predict.
func DefaultOptions() Options {
	return Options{
		Backend:       BackendONNX,
		ModelPath:     "model/best.onnx",
		LibraryPath:   DefaultLibraryPath(),
		InputSize:     640,
		ConfThreshold: 0.25,
		IoUThreshold:  0.7,
		MaxDetections: 300,
	}
}

func (o Options) decodeOptions(transposed bool) DecodeOptions {
	return DecodeOptions{
		ConfThreshold: o.ConfThreshold,
		IoUThreshold:  o.IoUThreshold,
		MaxDetections: o.MaxDetections,
		Transposed:    transposed,
	}
}

// DefaultLibraryPath путь к библиотеке onnxruntime для текущей платформы.
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.dylib"
		}
		return "./third_party/onnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

// NewFactory выбирает реализацию модели по Options.Backend.
func NewFactory(opts Options) (Factory, error) {
	switch opts.Backend {
	case BackendONNX, "":
		return func() (port.DiseaseModel, error) {
			model, err := NewOnnxModel(opts)
			if err != nil {
				return nil, err
			}
			return model, nil
		}, nil
	case BackendGoCV:
		return func() (port.DiseaseModel, error) {
			model, err := NewGoCVModel(opts)
			if err != nil {
				return nil, err
			}
			return model, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", opts.Backend)
	}
}

func checkModelFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("model file %s: %w", path, err)
	}
	return nil
}
