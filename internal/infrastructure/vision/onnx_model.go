package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
)

// OnnxModel YOLOv8, экспортированная в ONNX, поверх onnxruntime.
type OnnxModel struct {
	opts       Options
	labels     []string
	inputSize  int
	outRows    int
	outCols    int
	transposed bool

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewOnnxModel инициализирует окружение onnxruntime и создаёт сессию.
func NewOnnxModel(opts Options) (*OnnxModel, error) {
	if err := checkModelFile(opts.ModelPath); err != nil {
		return nil, err
	}

	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(opts.LibraryPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read model io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("unexpected model io: %d inputs, %d outputs", len(inputs), len(outputs))
	}

	inputSize := opts.InputSize
	if dims := inputs[0].Dimensions; len(dims) == 4 && dims[2] > 0 {
		inputSize = int(dims[2])
	}

	outDims := outputs[0].Dimensions
	if len(outDims) != 3 || outDims[1] <= 0 || outDims[2] <= 0 {
		return nil, fmt.Errorf("unexpected output shape %v", outDims)
	}

	labels, err := ResolveLabels(opts.LabelsPath, readNamesMetadata(opts.ModelPath))
	if err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputSize), int64(inputSize)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, outDims[1], outDims[2]))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	rows, cols := int(outDims[1]), int(outDims[2])
	return &OnnxModel{
		opts:       opts,
		labels:     labels,
		inputSize:  inputSize,
		outRows:    rows,
		outCols:    cols,
		transposed: rows > cols,
		session:    session,
		input:      input,
		output:     output,
	}, nil
}

// Predict выполняет один проход модели.
func (m *OnnxModel) Predict(ctx context.Context, img image.Image) ([]entity.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxed, params := Letterbox(img, m.inputSize)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, errors.New("onnx session is closed")
	}

	ToTensor(boxed, m.input.GetData())
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}

	return DecodeYOLO(m.output.GetData(), m.outRows, m.outCols, params, m.opts.decodeOptions(m.transposed), m.labels), nil
}

// Labels имена классов модели
func (m *OnnxModel) Labels() []string {
	return m.labels
}

// Close освобождает сессию и тензоры.
func (m *OnnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.input.Destroy()
	m.output.Destroy()
	m.session = nil
	return err
}

// readNamesMetadata достаёт словарь names, который ultralytics кладёт в ONNX.
func readNamesMetadata(path string) string {
	meta, err := ort.GetModelMetadata(path)
	if err != nil {
		return ""
	}
	defer meta.Destroy()

	names, ok, err := meta.LookupCustomMetadataMap("names")
	if err != nil || !ok {
		return ""
	}
	return names
}

var _ port.DiseaseModel = (*OnnxModel)(nil)
