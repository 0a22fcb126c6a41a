package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bountylab/reviewd/internal/chunker"
	"github.com/bountylab/reviewd/internal/models"
)

func chunkOf(index int, files []models.KeyFile) chunker.Chunk {
	return chunker.Chunk{Index: index, Files: files}
}

func testBounty() models.BountyContext {
	return models.BountyContext{
		Title:        "Build a token vesting program",
		Description:  "Linear vesting with cliff support.",
		Requirements: []string{"cliff period", "linear release", "admin revoke"},
		TechStack:    []string{"Rust", "Anchor"},
	}
}

func TestBuildPromptRepository(t *testing.T) {
	code := models.CodeContext{
		Kind:     models.CodeKindRepository,
		FileTree: "src/\n  lib.rs\n  vesting.rs",
		KeyFiles: []models.KeyFile{
			{Path: "src/lib.rs", Language: "rust", Content: "pub mod vesting;", Importance: models.ImportanceCritical},
		},
	}

	system, user := buildPrompt(testBounty(), code)

	assert.Contains(t, system, `"overallScore"`)
	assert.Contains(t, system, `"confidence"`)
	assert.Contains(t, system, `"redFlags"`)
	assert.Contains(t, system, "valid JSON only")

	assert.Contains(t, user, "Build a token vesting program")
	assert.Contains(t, user, "- cliff period")
	assert.Contains(t, user, "Tech stack: Rust, Anchor")
	assert.Contains(t, user, "src/lib.rs")
	assert.Contains(t, user, "pub mod vesting;")
	assert.Contains(t, user, "File tree:")
}

func TestBuildPromptPullRequest(t *testing.T) {
	code := models.CodeContext{
		Kind:          models.CodeKindPullRequest,
		Diff:          "diff --git a/main.go b/main.go\n+func main() {}",
		PRTitle:       "Add entrypoint",
		PRDescription: "Wires up the CLI.",
		Commits: []models.Commit{
			{SHA: "abc123", Message: "add main"},
		},
	}

	_, user := buildPrompt(testBounty(), code)

	assert.Contains(t, user, "pull request")
	assert.Contains(t, user, "Add entrypoint")
	assert.Contains(t, user, "Wires up the CLI.")
	assert.Contains(t, user, "- add main")
	assert.Contains(t, user, "diff --git")
}

func TestBuildPromptDeterministic(t *testing.T) {
	code := models.CodeContext{Kind: models.CodeKindRepository, FileTree: "a.go"}
	s1, u1 := buildPrompt(testBounty(), code)
	s2, u2 := buildPrompt(testBounty(), code)
	assert.Equal(t, s1, s2)
	assert.Equal(t, u1, u2)
}

func TestBuildPromptTruncation(t *testing.T) {
	code := models.CodeContext{
		Kind: models.CodeKindRepository,
		KeyFiles: []models.KeyFile{
			{Path: "big.go", Language: "go", Content: strings.Repeat("x", maxFileBytes+100), Importance: models.ImportanceHigh},
		},
	}

	_, user := buildPrompt(testBounty(), code)

	assert.Contains(t, user, truncationMarker)
	assert.NotContains(t, user, strings.Repeat("x", maxFileBytes+100))
}

const validResultJSON = `{
	"overallScore": 82,
	"requirementMatch": {"score": 85, "notes": "most requirements met"},
	"codeQuality": {"score": 80},
	"completeness": {"score": 78},
	"security": {"score": 88},
	"confidence": 0.85,
	"redFlags": [
		{"type": "missing-tests", "severity": "warning", "description": "no integration tests"}
	],
	"matchedRequirements": ["cliff period", "linear release"],
	"missingRequirements": ["admin revoke"],
	"strengths": ["clear account layout"],
	"issues": [{"severity": "low", "description": "magic numbers", "file": "src/vesting.rs", "line": 41}],
	"summary": "Solid vesting implementation missing admin revoke.",
	"detailedNotes": "The program implements linear vesting correctly...",
	"suggestedLabels": ["high-quality"]
}`

func TestParseResult(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		result, err := parseResult(validResultJSON)
		require.NoError(t, err)
		assert.InDelta(t, 82.0, result.OverallScore, 1e-9)
		assert.InDelta(t, 0.85, result.Confidence, 1e-9)
		assert.Equal(t, models.FlagMissingTests, result.RedFlags[0].Type)
		assert.Equal(t, []string{"high-quality"}, result.SuggestedLabels)
	})

	t.Run("markdown fencing stripped", func(t *testing.T) {
		fenced := "```json\n" + validResultJSON + "\n```"
		result, err := parseResult(fenced)
		require.NoError(t, err)
		assert.InDelta(t, 82.0, result.OverallScore, 1e-9)
	})

	t.Run("non-JSON fails with schema error", func(t *testing.T) {
		_, err := parseResult("I think the code looks great!")
		var se *SchemaValidationError
		require.ErrorAs(t, err, &se)
	})

	t.Run("missing required field fails", func(t *testing.T) {
		_, err := parseResult(`{"overallScore": 50}`)
		var se *SchemaValidationError
		require.ErrorAs(t, err, &se)
	})

	t.Run("out-of-range score fails", func(t *testing.T) {
		bad := strings.Replace(validResultJSON, `"overallScore": 82`, `"overallScore": 140`, 1)
		_, err := parseResult(bad)
		var se *SchemaValidationError
		require.ErrorAs(t, err, &se)
	})

	t.Run("unknown red flag type fails", func(t *testing.T) {
		bad := strings.Replace(validResultJSON, `"type": "missing-tests"`, `"type": "bad-vibes"`, 1)
		_, err := parseResult(bad)
		var se *SchemaValidationError
		require.ErrorAs(t, err, &se)
	})
}

func TestChunkContext(t *testing.T) {
	files := []models.KeyFile{
		{Path: "a.go", Content: "a", Importance: models.ImportanceCritical},
		{Path: "b.go", Content: "b", Importance: models.ImportanceLow},
	}
	code := models.CodeContext{
		Kind:    models.CodeKindPullRequest,
		Diff:    "diff --git",
		PRTitle: "title",
		Commits: []models.Commit{{Message: "m"}},
	}

	first := ChunkContext(code, chunkOf(0, files[:1]))
	second := ChunkContext(code, chunkOf(1, files[1:]))

	assert.Equal(t, "diff --git", first.Diff)
	assert.Equal(t, "title", first.PRTitle)
	assert.Empty(t, second.Diff)
	assert.Empty(t, second.PRTitle)
	assert.Equal(t, "b.go", second.KeyFiles[0].Path)
}
