package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, ":8501", cfg.HTTPAddr)
	require.Equal(t, "onnx", cfg.ModelBackend)
	require.Equal(t, "model/best.onnx", cfg.ModelPath)
	require.Equal(t, 640, cfg.InputSize)
	require.Equal(t, 0.25, cfg.ConfThreshold)
	require.Equal(t, 0.7, cfg.IoUThreshold)
	require.Equal(t, 300, cfg.MaxDetections)
	require.Equal(t, int64(200<<20), cfg.MaxUploadBytes)
	require.Equal(t, "#008000", cfg.BoxColor)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("CONF_THRESHOLD", "0.4")
	t.Setenv("MODEL_BACKEND", "gocv")
	t.Setenv("STORAGE_DIR", "/tmp/leafscan")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTPAddr)
	require.Equal(t, 0.4, cfg.ConfThreshold)
	require.Equal(t, "gocv", cfg.ModelBackend)
	require.Equal(t, "/tmp/leafscan", cfg.StorageDir)

	opts := cfg.VisionOptions()
	require.Equal(t, "gocv", opts.Backend)
	require.Equal(t, 0.4, opts.ConfThreshold)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEAFSCAN_TEST_LABELS=labels.txt\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LEAFSCAN_TEST_LABELS") })

	_, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "labels.txt", os.Getenv("LEAFSCAN_TEST_LABELS"))
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CONF_THRESHOLD", "1.5")
	t.Setenv("MODEL_BACKEND", "tflite")
	t.Setenv("BOX_COLOR", "green")
	t.Setenv("OLLAMA_URL", "http://localhost:11434")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "CONF_THRESHOLD")
	require.Contains(t, err.Error(), "MODEL_BACKEND")
	require.Contains(t, err.Error(), "BOX_COLOR")
	require.Contains(t, err.Error(), "OLLAMA_MODEL")
}
