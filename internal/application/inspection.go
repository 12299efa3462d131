package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
	"leafscan/internal/infrastructure/imageio"
)

var (
	// ErrInvalidImage загруженный файл не удалось прочитать как изображение
	ErrInvalidImage = errors.New("invalid image")
	// ErrDetectorNotConfigured сервис собран без модели
	ErrDetectorNotConfigured = errors.New("detector is not configured")
	// ErrPrediction модель не смогла обработать изображение
	ErrPrediction = errors.New("prediction failed")
)

// InspectionService проводит одну проверку: декодирование, модель, рамки, сохранение.
type InspectionService struct {
	model     port.DiseaseModel
	annotator port.Annotator
	describer port.DiseaseDescriber
	records   port.RecordRepository
	log       logrus.FieldLogger

	now   func() time.Time
	newID func() string
}

// InspectionOutput результат проверки и картинка с рамками.
type InspectionOutput struct {
	Result      *entity.InspectionResult
	Annotated   []byte // JPEG, пусто если ничего не найдено
	RecordID    string // пусто если хранилище не настроено или запись не удалась
	Description *entity.AiDescription
}

// NewInspectionService создаёт сервис. describer и records могут быть nil.
func NewInspectionService(
	model port.DiseaseModel,
	annotator port.Annotator,
	describer port.DiseaseDescriber,
	records port.RecordRepository,
	log logrus.FieldLogger,
) *InspectionService {
	return &InspectionService{
		model:     model,
		annotator: annotator,
		describer: describer,
		records:   records,
		log:       log,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Analyze разбирает загруженное фото листа и ищет на нём болезни.
func (s *InspectionService) Analyze(ctx context.Context, imageData []byte) (*InspectionOutput, error) {
	if s.model == nil || s.annotator == nil {
		return nil, ErrDetectorNotConfigured
	}

	decoded, format, err := imageio.Decode(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	img := imageio.ToRGB(decoded)
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	log := s.log.WithFields(logrus.Fields{"format": format, "width": width, "height": height})

	started := s.now()
	predictions, err := s.model.Predict(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrediction, err)
	}

	result := entity.NewInspectionResult(width, height, s.toDetections(predictions, float64(width)*float64(height)))
	log.WithFields(logrus.Fields{
		"detections": len(result.Detections),
		"elapsed":    s.now().Sub(started).String(),
	}).Info("image analysed")

	out := &InspectionOutput{Result: result}
	if !result.HasDetections {
		return out, nil
	}

	annotated, err := s.annotator.Annotate(img, result.Detections)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	if out.Annotated, err = imageio.EncodeJPEG(annotated, imageio.DefaultJPEGQuality); err != nil {
		return nil, err
	}

	out.RecordID = s.save(ctx, img, out, log)
	out.Description = s.describe(ctx, result, log)
	return out, nil
}

// toDetections переводит ответы модели в записи с уровнем поражения.
func (s *InspectionService) toDetections(predictions []entity.Prediction, imageArea float64) []entity.Detection {
	detections := make([]entity.Detection, 0, len(predictions))
	for _, p := range predictions {
		detections = append(detections, entity.Detection{
			Disease:    p.Label,
			Confidence: p.Confidence,
			Severity:   entity.SeverityFor(p.Box.Area(), imageArea),
			Box:        p.Box,
		})
	}
	return detections
}

// save сохраняет проверку; ошибка хранилища не прерывает показ результата.
func (s *InspectionService) save(ctx context.Context, img image.Image, out *InspectionOutput, log logrus.FieldLogger) string {
	if s.records == nil {
		return ""
	}

	original, err := imageio.EncodeJPEG(img, imageio.DefaultJPEGQuality)
	if err != nil {
		log.WithError(err).Warn("encode original for storage failed")
		return ""
	}

	record := &entity.Record{
		ID:         s.newID(),
		CreatedAt:  s.now(),
		Detections: out.Result.Detections,
		Original:   original,
		Annotated:  out.Annotated,
	}
	if err := s.records.Save(ctx, record); err != nil {
		log.WithError(err).Warn("save record failed")
		return ""
	}
	return record.ID
}

// describe спрашивает описатель; его ошибка только логируется.
func (s *InspectionService) describe(ctx context.Context, result *entity.InspectionResult, log logrus.FieldLogger) *entity.AiDescription {
	if s.describer == nil {
		return nil
	}

	desc, err := s.describer.Describe(ctx, result)
	if err != nil {
		log.WithError(err).Warn("describe detections failed")
		return nil
	}
	return desc
}

// Record возвращает сохранённую проверку.
func (s *InspectionService) Record(ctx context.Context, id string) (*entity.Record, error) {
	if s.records == nil {
		return nil, port.ErrRecordNotFound
	}
	return s.records.Get(ctx, id)
}

// Records возвращает последние проверки.
func (s *InspectionService) Records(ctx context.Context, limit int) ([]*entity.Record, error) {
	if s.records == nil {
		return nil, nil
	}
	return s.records.List(ctx, limit)
}

// Ready сообщает, что модель загружена и сервис может принимать фото.
func (s *InspectionService) Ready() error {
	if s.model == nil {
		return ErrDetectorNotConfigured
	}
	if r, ok := s.model.(interface {
		Load() (port.DiseaseModel, error)
	}); ok {
		_, err := r.Load()
		return err
	}
	return nil
}
