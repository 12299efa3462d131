package describer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
)

const defaultTimeout = 2 * time.Minute

const promptHeader = `You are an agronomist. A detector found the following diseases on a rice leaf photo.
For each disease give one short sentence on what it is and one practical management step.
Answer in plain text without markdown headings.

Findings:
`

// OllamaDescriber пишет короткие рекомендации по найденным болезням через Ollama.
type OllamaDescriber struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewOllamaDescriber создаёт клиента для сервера Ollama по адресу rawURL.
func NewOllamaDescriber(rawURL, model string, httpClient *http.Client) (*OllamaDescriber, error) {
	if model == "" {
		return nil, errors.New("ollama model is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid ollama url %q", rawURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// Путь вроде /api/chat отбрасываем, клиент сам строит маршруты.
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaDescriber{
		client:  api.NewClient(base, httpClient),
		model:   model,
		timeout: defaultTimeout,
	}, nil
}

// Describe отправляет список находок и возвращает ответ модели.
func (d *OllamaDescriber) Describe(ctx context.Context, result *entity.InspectionResult) (*entity.AiDescription, error) {
	if result == nil || !result.HasDetections {
		return nil, errors.New("nothing to describe")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	stream := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{Role: "user", Content: BuildPrompt(result)},
		},
		Stream: &stream,
	}

	var content strings.Builder
	err := d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, errors.New("empty response from ollama")
	}
	return &entity.AiDescription{Text: text}, nil
}

// BuildPrompt перечисляет находки: болезнь, уверенность, тяжесть.
func BuildPrompt(result *entity.InspectionResult) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, d := range result.Detections {
		fmt.Fprintf(&b, "- %s, confidence %.0f%%, severity %s\n", d.Disease, d.Confidence*100, d.Severity)
	}
	return b.String()
}

var _ port.DiseaseDescriber = (*OllamaDescriber)(nil)
