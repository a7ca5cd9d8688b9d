package ai

import (
	"context"
)

// Classification represents the extracted job-application details for one email
type Classification struct {
	CompanyName       string `json:"company_name"`
	ApplicationStatus string `json:"job_application_status"`
	JobTitle          string `json:"job_title"`
}

// Normalized status values stored when the model output is unusable or
// flags the email as unrelated to job applications.
const (
	StatusUnknown       = "unknown"
	StatusFalsePositive = "false_positive"
)

// ClassifierService is the interface for AI email classification
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type ClassifierService interface {
	ClassifyEmail(ctx context.Context, subject, body string) (*Classification, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
