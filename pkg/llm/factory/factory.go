package factory

import (
	"fmt"

	"notes-rag-be/pkg/llm"
	"notes-rag-be/pkg/llm/ollama"
)

// NewLLMProvider builds the generative backend named by configuration.
func NewLLMProvider(providerType, modelName, baseURL string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if modelName == "" {
			return nil, fmt.Errorf("ollama provider needs a model name")
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
