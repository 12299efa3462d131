package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"leafscan/internal/infrastructure/render"
	"leafscan/internal/infrastructure/vision"
)

// Config настройки сервиса из окружения и .env
type Config struct {
	HTTPAddr       string
	GinMode        string
	MaxUploadBytes int64

	TelegramToken string

	ModelBackend  string
	ModelPath     string
	OnnxLibPath   string
	LabelsPath    string
	InputSize     int
	ConfThreshold float64
	IoUThreshold  float64
	MaxDetections int

	StorageDir  string
	OllamaURL   string
	OllamaModel string

	FontPath string
	BoxColor string

	LogLevel  string
	LogFormat string
}

// Load читает .env (если есть) и переменные окружения.
func Load(envFiles ...string) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		HTTPAddr:       v.GetString("HTTP_ADDR"),
		GinMode:        v.GetString("GIN_MODE"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),

		TelegramToken: v.GetString("TELEGRAM_TOKEN"),

		ModelBackend:  v.GetString("MODEL_BACKEND"),
		ModelPath:     v.GetString("MODEL_PATH"),
		OnnxLibPath:   v.GetString("ONNXRUNTIME_LIB"),
		LabelsPath:    v.GetString("LABELS_PATH"),
		InputSize:     v.GetInt("INPUT_SIZE"),
		ConfThreshold: v.GetFloat64("CONF_THRESHOLD"),
		IoUThreshold:  v.GetFloat64("IOU_THRESHOLD"),
		MaxDetections: v.GetInt("MAX_DETECTIONS"),

		StorageDir:  v.GetString("STORAGE_DIR"),
		OllamaURL:   v.GetString("OLLAMA_URL"),
		OllamaModel: v.GetString("OLLAMA_MODEL"),

		FontPath: v.GetString("FONT_PATH"),
		BoxColor: v.GetString("BOX_COLOR"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := vision.DefaultOptions()

	v.SetDefault("HTTP_ADDR", ":8501")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("MAX_UPLOAD_BYTES", int64(200<<20))
	v.SetDefault("MODEL_BACKEND", defaults.Backend)
	v.SetDefault("MODEL_PATH", defaults.ModelPath)
	v.SetDefault("ONNXRUNTIME_LIB", defaults.LibraryPath)
	v.SetDefault("INPUT_SIZE", defaults.InputSize)
	v.SetDefault("CONF_THRESHOLD", defaults.ConfThreshold)
	v.SetDefault("IOU_THRESHOLD", defaults.IoUThreshold)
	v.SetDefault("MAX_DETECTIONS", defaults.MaxDetections)
	v.SetDefault("BOX_COLOR", render.DefaultColor)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Validate проверяет диапазоны значений.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.ModelBackend != vision.BackendONNX && c.ModelBackend != vision.BackendGoCV {
		errs = append(errs, fmt.Errorf("MODEL_BACKEND must be %q or %q, got %q", vision.BackendONNX, vision.BackendGoCV, c.ModelBackend))
	}
	if c.ModelPath == "" {
		errs = append(errs, errors.New("MODEL_PATH is required"))
	}
	if c.InputSize <= 0 {
		errs = append(errs, errors.New("INPUT_SIZE must be positive"))
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		errs = append(errs, fmt.Errorf("CONF_THRESHOLD must be in [0, 1], got %v", c.ConfThreshold))
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		errs = append(errs, fmt.Errorf("IOU_THRESHOLD must be in [0, 1], got %v", c.IoUThreshold))
	}
	if c.MaxDetections <= 0 {
		errs = append(errs, errors.New("MAX_DETECTIONS must be positive"))
	}
	if _, err := render.ParseColor(c.BoxColor); err != nil {
		errs = append(errs, fmt.Errorf("BOX_COLOR: %w", err))
	}
	if (c.OllamaURL == "") != (c.OllamaModel == "") {
		errs = append(errs, errors.New("OLLAMA_URL and OLLAMA_MODEL must be set together"))
	}

	return errors.Join(errs...)
}

// VisionOptions параметры модели для инфраструктуры.
func (c *Config) VisionOptions() vision.Options {
	return vision.Options{
		Backend:       c.ModelBackend,
		ModelPath:     c.ModelPath,
		LabelsPath:    c.LabelsPath,
		LibraryPath:   c.OnnxLibPath,
		InputSize:     c.InputSize,
		ConfThreshold: c.ConfThreshold,
		IoUThreshold:  c.IoUThreshold,
		MaxDetections: c.MaxDetections,
	}
}
