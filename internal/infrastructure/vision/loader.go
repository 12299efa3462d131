package vision

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
)

// ErrModelNotLoaded загрузчик уже закрыт
var ErrModelNotLoaded = errors.New("model is not loaded")

// Factory создаёт модель. После первого успешного вызова больше не вызывается.
type Factory func() (port.DiseaseModel, error)

// Loader лениво загружает модель и запоминает её.
// Ошибка загрузки не запоминается: следующий вызов пробует снова.
type Loader struct {
	factory Factory
	log     logrus.FieldLogger

	mu     sync.Mutex
	model  port.DiseaseModel
	closed bool
}

// NewLoader создаёт загрузчик поверх фабрики модели.
func NewLoader(factory Factory, log logrus.FieldLogger) *Loader {
	return &Loader{factory: factory, log: log}
}

// Load возвращает модель, загружая её при первом успешном вызове.
func (l *Loader) Load() (port.DiseaseModel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrModelNotLoaded
	}
	if l.model != nil {
		return l.model, nil
	}

	model, err := l.factory()
	if err != nil {
		l.log.WithError(err).Error("model load failed")
		return nil, err
	}

	l.model = model
	l.log.WithField("classes", len(model.Labels())).Info("model loaded")
	return model, nil
}

// Predict загружает модель при необходимости и запускает её.
func (l *Loader) Predict(ctx context.Context, img image.Image) ([]entity.Prediction, error) {
	model, err := l.Load()
	if err != nil {
		return nil, err
	}
	return model.Predict(ctx, img)
}

// Labels имена классов загруженной модели.
func (l *Loader) Labels() []string {
	model, err := l.Load()
	if err != nil {
		return nil
	}
	return model.Labels()
}

// Close закрывает модель, если она была загружена. После Close модель не грузится.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.model == nil {
		return nil
	}

	model := l.model
	l.model = nil
	return model.Close()
}

var _ port.DiseaseModel = (*Loader)(nil)
