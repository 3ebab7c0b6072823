package out

import "context"

// CompletionClient produces a single model completion expected to be a JSON
// object. Callers own parsing and fallback; implementations only transport.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
