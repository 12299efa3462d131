package describer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"leafscan/internal/domain/entity"
)

func sampleResult() *entity.InspectionResult {
	return entity.NewInspectionResult(100, 100, []entity.Detection{
		{Disease: "Brown Spot", Confidence: 0.91, Severity: entity.SeverityLow},
	})
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleResult())
	require.Contains(t, prompt, "- Brown Spot, confidence 91%, severity Low")
}

func TestOllamaDescriber_Describe(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var body struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel = body.Model

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"  Use resistant varieties.  "},"done":true}` + "\n"))
	}))
	defer srv.Close()

	d, err := NewOllamaDescriber(srv.URL+"/api/chat", "llama3", srv.Client())
	require.NoError(t, err)

	desc, err := d.Describe(context.Background(), sampleResult())
	require.NoError(t, err)
	require.Equal(t, "Use resistant varieties.", desc.Text)
	require.Equal(t, "llama3", gotModel)
}

func TestOllamaDescriber_Errors(t *testing.T) {
	_, err := NewOllamaDescriber("http://localhost:11434", "", nil)
	require.Error(t, err)

	_, err = NewOllamaDescriber("not a url", "llama3", nil)
	require.Error(t, err)

	d, err := NewOllamaDescriber("http://localhost:11434", "llama3", nil)
	require.NoError(t, err)
	_, err = d.Describe(context.Background(), entity.NewInspectionResult(1, 1, nil))
	require.Error(t, err)
}
