package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

func answer(text string) string {
	body, _ := json.Marshal(GenerateResponseDTO{
		Candidates: []CandidateDTO{{Content: ContentDTO{Role: "model", Parts: []PartDTO{{Text: text}}}, FinishReason: "STOP"}},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("test-key")
	cfg.BaseURL = srv.URL
	cfg.MaxAttempts = 2
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg)
}

func TestClient_Interpret(t *testing.T) {
	var captured GenerateRequestDTO
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/"+DefaultModel+":generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))

		_, _ = io.WriteString(w, answer("```json\n{\"fullName\":\"X\"}\n```"))
	})

	schema := trajectory.DefaultSchema()
	current := &trajectory.Student{ID: "1", DNI: "50.828.593", FullName: "MANQUILLAN ARÒM IGNACIO", Trajectory: trajectory.NewTrajectory(schema)}

	doc, err := client.Interpret(context.Background(), "Ponle E/C en Historia de 1er año", current, schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fullName":"X"}`, string(doc))

	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	require.NotNil(t, captured.SystemInstruction)
	assert.Contains(t, captured.SystemInstruction.Parts[0].Text, "E/C")

	prompt := captured.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, `"dni":"50.828.593"`)
	assert.Contains(t, prompt, "Ponle E/C en Historia de 1er año")
	assert.Contains(t, prompt, `"notaArea":"NOTA DE ÁREA"`)
}

func TestClient_NoCurrentStudent(t *testing.T) {
	var prompt string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequestDTO
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Contents[0].Parts[0].Text
		_, _ = io.WriteString(w, answer(`{}`))
	})

	_, err := client.Interpret(context.Background(), "crear alumno", nil, trajectory.DefaultSchema())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "Ficha actual del estudiante: {}\n"))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
			return
		}
		_, _ = io.WriteString(w, answer(`{"dni":"1"}`))
	})

	doc, err := client.Interpret(context.Background(), "x", nil, trajectory.DefaultSchema())
	require.NoError(t, err)
	assert.JSONEq(t, `{"dni":"1"}`, string(doc))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	})

	_, err := client.Interpret(context.Background(), "x", nil, trajectory.DefaultSchema())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInterpreterFailed)
	assert.True(t, shared.IsExternalService(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_ARGUMENT", apiErr.Status)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, client.Healthy())
}

func TestClient_EmptyOrBlockedAnswers(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates":[]}`},
		{"blocked", `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"blank text", answer("   ")},
		{"not json", `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.Interpret(context.Background(), "x", nil, trajectory.DefaultSchema())
			assert.ErrorIs(t, err, shared.ErrInterpreterFailed)
		})
	}
}

func TestExtractDocument(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(extractDocument("  {\"a\":1}\n")))
	assert.Equal(t, `{"a":1}`, string(extractDocument("```json\n{\"a\":1}\n```")))
	assert.Equal(t, `{"a":1}`, string(extractDocument("```\n{\"a\":1}```")))
}

func TestAPIError_Temporary(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 429}).Temporary())
	assert.True(t, (&APIError{StatusCode: 502}).Temporary())
	assert.False(t, (&APIError{StatusCode: 403}).Temporary())
}
