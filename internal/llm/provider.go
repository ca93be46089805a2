package llm

import "context"

// Request contains completion parameters for one model call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
}

// Response contains a completion result.
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for completion providers.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete runs a text completion against the given model
	Complete(ctx context.Context, req Request, model string) (*Response, error)
}

// ProviderFactory creates a new provider instance
type ProviderFactory func() Provider
