package container

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"leafscan/config"
	app "leafscan/internal/application"
	"leafscan/internal/domain/port"
	"leafscan/internal/infrastructure/describer"
	"leafscan/internal/infrastructure/render"
	"leafscan/internal/infrastructure/storage"
	"leafscan/internal/infrastructure/vision"
)

// Container связывает инфраструктуру с сервисами приложения
type Container struct {
	Config            *config.Config
	Log               logrus.FieldLogger
	Model             *vision.Loader
	UserService       *app.UserService
	InspectionService *app.InspectionService
}

// New собирает зависимости из конфигурации. Модель при этом не загружается.
func New(cfg *config.Config, log logrus.FieldLogger) (*Container, error) {
	factory, err := vision.NewFactory(cfg.VisionOptions())
	if err != nil {
		return nil, err
	}
	model := vision.NewLoader(factory, log.WithField("component", "model"))

	annotator, err := render.NewAnnotator(render.Options{
		Color:    cfg.BoxColor,
		FontPath: cfg.FontPath,
	}, log.WithField("component", "render"))
	if err != nil {
		return nil, err
	}

	records, err := newRecordRepository(cfg)
	if err != nil {
		return nil, err
	}

	var diseaseDescriber port.DiseaseDescriber
	if cfg.OllamaURL != "" && cfg.OllamaModel != "" {
		d, err := describer.NewOllamaDescriber(cfg.OllamaURL, cfg.OllamaModel, &http.Client{Timeout: 5 * time.Minute})
		if err != nil {
			return nil, err
		}
		diseaseDescriber = d
	}

	userService := app.NewUserService(storage.NewMemoryUserRepository())
	inspectionService := app.NewInspectionService(model, annotator, diseaseDescriber, records, log.WithField("component", "inspection"))

	return &Container{
		Config:            cfg,
		Log:               log,
		Model:             model,
		UserService:       userService,
		InspectionService: inspectionService,
	}, nil
}

// Close освобождает модель.
func (c *Container) Close() error {
	return c.Model.Close()
}

func newRecordRepository(cfg *config.Config) (port.RecordRepository, error) {
	if cfg.StorageDir == "" {
		return storage.NewMemoryRecordRepository(), nil
	}
	repo, err := storage.NewFileRecordRepository(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return repo, nil
}
