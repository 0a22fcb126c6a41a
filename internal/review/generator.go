// Package review turns a (bounty, code snapshot) pair into a structured,
// scored review: prompt construction, schema-validated generation,
// multi-chunk aggregation, and outcome labels.
package review

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/bountylab/reviewd/internal/chunker"
	"github.com/bountylab/reviewd/internal/models"
	"github.com/bountylab/reviewd/internal/providers"
)

// DefaultModel returns the process-wide default model identifier.
func DefaultModel() string {
	if m := viper.GetString("review.model"); m != "" {
		return m
	}
	return "gpt-4o-mini"
}

// Generate builds the review prompt for a submission, invokes the
// provider selected by modelID (or the configured default), validates the
// structured result, and attaches token and cost estimates. It has no
// side effects beyond the outbound model call.
func Generate(ctx context.Context, bounty models.BountyContext, code models.CodeContext, modelID string) (*models.GeneratedReview, error) {
	if modelID == "" {
		modelID = DefaultModel()
	}

	gen, err := providers.ForModel(modelID)
	if err != nil {
		return nil, err
	}

	system, user := buildPrompt(bounty, code)

	resp, err := gen.Generate(ctx, providers.GenerateRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    8192,
	})
	if err != nil {
		return nil, fmt.Errorf("%s generation: %w", gen.Name(), err)
	}

	result, err := parseResult(resp.Content)
	if err != nil {
		return nil, err
	}

	inputTokens := chunker.EstimateTokens(system) + chunker.EstimateTokens(user)
	outputTokens := chunker.EstimateTokens(resp.Content)

	return &models.GeneratedReview{
		ReviewResult:  result,
		TokensUsed:    inputTokens + outputTokens,
		ModelUsed:     modelID,
		EstimatedCost: providers.EstimateCost(modelID, inputTokens, outputTokens),
	}, nil
}

// ChunkContext derives a per-chunk CodeContext limited to the chunk's
// files. PR metadata is carried on the first chunk only so diff and
// commit text is not re-billed on every call.
func ChunkContext(code models.CodeContext, c chunker.Chunk) models.CodeContext {
	out := models.CodeContext{
		Kind:     code.Kind,
		FileTree: code.FileTree,
		KeyFiles: c.Files,
	}
	if code.Kind == models.CodeKindPullRequest && c.Index == 0 {
		out.Diff = code.Diff
		out.PRTitle = code.PRTitle
		out.PRDescription = code.PRDescription
		out.Commits = code.Commits
	}
	return out
}
