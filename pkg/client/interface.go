// Package client defines the contract shared by the vision model backends.
package client

import (
	"context"

	"github.com/dentalai/dentalsynth/pkg/types"
)

// Backend names accepted by the review command.
const (
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// VisionClient sends one image and a prompt to a vision model.
type VisionClient interface {
	// SimpleQuery returns the model's free-text reply.
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	// AnalyzeImage expects a JSON reply and parses it into an AnalysisResult.
	AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error)
}
