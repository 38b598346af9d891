package gemini

import (
	"fmt"
	"net/http"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DTOs
// ══════════════════════════════════════════════════════════════════════════════

// GenerateRequestDTO is the body of models/{model}:generateContent.
type GenerateRequestDTO struct {
	SystemInstruction *ContentDTO         `json:"systemInstruction,omitempty"`
	Contents          []ContentDTO        `json:"contents"`
	GenerationConfig  GenerationConfigDTO `json:"generationConfig"`
}

// ContentDTO is one turn of the conversation.
type ContentDTO struct {
	Role  string    `json:"role,omitempty"`
	Parts []PartDTO `json:"parts"`
}

// PartDTO holds a text fragment.
type PartDTO struct {
	Text string `json:"text"`
}

// GenerationConfigDTO constrains the model output.
type GenerationConfigDTO struct {
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// GenerateResponseDTO is the generateContent response.
type GenerateResponseDTO struct {
	Candidates     []CandidateDTO     `json:"candidates"`
	PromptFeedback *PromptFeedbackDTO `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadataDTO  `json:"usageMetadata,omitempty"`
}

// CandidateDTO is one generated answer.
type CandidateDTO struct {
	Content      ContentDTO `json:"content"`
	FinishReason string     `json:"finishReason"`
}

// PromptFeedbackDTO reports a blocked prompt.
type PromptFeedbackDTO struct {
	BlockReason string `json:"blockReason"`
}

// UsageMetadataDTO reports token usage.
type UsageMetadataDTO struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Text returns the text of the first part of the first candidate.
func (r *GenerateResponseDTO) Text() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	return r.Candidates[0].Content.Parts[0].Text, true
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// errorEnvelopeDTO is the error body returned by the API.
type errorEnvelopeDTO struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
	Message    string

	// RetryAfter is set for 429 responses that carry a Retry-After header.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini: status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini: status %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// Temporary reports whether the request can be retried unchanged.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
