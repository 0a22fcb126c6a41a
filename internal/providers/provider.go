// Package providers abstracts the AI model backends used for review
// generation. A model identifier is resolved to a provider through a
// closed dispatch table; each provider requires its own credential and
// construction fails with a NotConfiguredError when it is absent.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// GenerateRequest is the prompt pair sent to a provider.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// GenerateResponse is the raw text returned by a provider.
type GenerateResponse struct {
	Content string
}

// Generator is the provider abstraction interface.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Name() string
}

// Tag identifies a provider backend.
type Tag string

const (
	TagAnthropic  Tag = "anthropic"
	TagGemini     Tag = "gemini"
	TagOpenAI     Tag = "openai"
	TagOpenRouter Tag = "openrouter"
)

// NotConfiguredError indicates the credential for a provider is missing.
// It is fatal and never retried.
type NotConfiguredError struct {
	Provider Tag
	Key      string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("provider %s is not configured (set %s)", e.Provider, e.Key)
}

// IsNotConfigured reports whether err is a missing-credential error.
func IsNotConfigured(err error) bool {
	var nc *NotConfiguredError
	return errors.As(err, &nc)
}

// credKey maps each provider tag to its viper credential key.
var credKey = map[Tag]string{
	TagAnthropic:  "providers.anthropic_api_key",
	TagGemini:     "providers.gemini_api_key",
	TagOpenAI:     "providers.openai_api_key",
	TagOpenRouter: "providers.openrouter_api_key",
}

// factories maps each provider tag to its client constructor.
var factories = map[Tag]func(apiKey, model string) Generator{
	TagAnthropic:  func(key, model string) Generator { return NewAnthropic(key, model) },
	TagGemini:     func(key, model string) Generator { return NewGemini(key, model) },
	TagOpenAI:     func(key, model string) Generator { return NewOpenAI(key, model) },
	TagOpenRouter: func(key, model string) Generator { return NewOpenRouter(key, model) },
}

// Resolve maps a model identifier to a provider tag. Claude models route
// through OpenRouter when its credential is present so third-party models
// are reached uniformly; otherwise they use the direct Anthropic key.
func Resolve(modelID string) Tag {
	switch {
	case strings.HasPrefix(modelID, "gemini-"):
		return TagGemini
	case strings.HasPrefix(modelID, "openrouter/") || strings.Contains(modelID, "/"):
		return TagOpenRouter
	case strings.HasPrefix(modelID, "claude-"):
		if viper.GetString(credKey[TagOpenRouter]) != "" {
			return TagOpenRouter
		}
		return TagAnthropic
	default:
		return TagOpenAI
	}
}

// ForModel resolves modelID to a provider, looks up its credential, and
// constructs the client. The openrouter/ prefix is stripped before the
// model name is sent upstream.
func ForModel(modelID string) (Generator, error) {
	tag := Resolve(modelID)

	key := viper.GetString(credKey[tag])
	if key == "" {
		return nil, &NotConfiguredError{Provider: tag, Key: credKey[tag]}
	}

	model := modelID
	if tag == TagOpenRouter {
		model = strings.TrimPrefix(model, "openrouter/")
	}

	return factories[tag](key, model), nil
}
