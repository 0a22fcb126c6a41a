// Package chunker splits an oversized code context into token-bounded
// chunks ordered by file importance, so each chunk fits one model call.
package chunker

import (
	"sort"

	"github.com/bountylab/reviewd/internal/models"
)

// DefaultMaxTokens is the per-chunk token budget used when none is given.
const DefaultMaxTokens = 12000

// Chunk is a token-bounded subset of key files sent to the model in one call.
type Chunk struct {
	Index       int              `json:"index"`
	Files       []models.KeyFile `json:"files"`
	TotalTokens int              `json:"totalTokens"`
}

// EstimateTokens approximates the token count of s as ceil(len/4).
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// Split packs files into chunks of at most maxTokens estimated tokens,
// most important files first. A file is never split across chunks; a
// single file larger than the budget occupies a chunk by itself. An
// empty input yields no chunks.
func Split(files []models.KeyFile, maxTokens int) []Chunk {
	if len(files) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	ordered := make([]models.KeyFile, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return models.ImportanceRank(ordered[i].Importance) < models.ImportanceRank(ordered[j].Importance)
	})

	var chunks []Chunk
	current := Chunk{Index: 0}

	for _, f := range ordered {
		tokens := EstimateTokens(f.Content)

		// Close the current chunk when this file would push it past the
		// budget. Strict >: an exact fit stays in the current chunk.
		if len(current.Files) > 0 && current.TotalTokens+tokens > maxTokens {
			chunks = append(chunks, current)
			current = Chunk{Index: len(chunks)}
		}

		current.Files = append(current.Files, f)
		current.TotalTokens += tokens
	}

	if len(current.Files) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// NeedsChunking reports whether the files exceed a single chunk's budget.
func NeedsChunking(files []models.KeyFile, maxTokens int) bool {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	total := 0
	for _, f := range files {
		total += EstimateTokens(f.Content)
	}
	return total > maxTokens
}
