package review

import (
	"fmt"
	"strings"

	"github.com/bountylab/reviewd/internal/models"
)

// maxFileBytes caps how much of a single file's content goes into the
// prompt. Content beyond the cap is cut at the ceiling with an explicit
// marker so the model knows it saw a prefix.
const maxFileBytes = 8192

const truncationMarker = "\n... [truncated]"

// buildPrompt constructs the system and user prompts for a review call.
// The output is deterministic for a given (bounty, code) pair.
func buildPrompt(bounty models.BountyContext, code models.CodeContext) (system string, user string) {
	system = `You review code submissions against bounty requirements. Return ONLY a JSON object with these fields:
- "overallScore": number 0-100, your overall assessment of the submission
- "requirementMatch": {"score": 0-100, "notes": string} - how well the submission meets the stated requirements
- "codeQuality": {"score": 0-100, "notes": string} - structure, readability, idiomatic use of the stack
- "completeness": {"score": 0-100, "notes": string} - whether the work is finished and usable
- "security": {"score": 0-100, "notes": string} - absence of vulnerabilities and unsafe patterns
- "confidence": number 0-1, how reliable you judge this review to be given the context you saw
- "redFlags": array of {"type", "severity", "description", "file", "line"} where type is one of "hardcoded-secret", "security-vulnerability", "copied-code", "missing-tests", "incomplete-implementation", "gas-inefficiency" and severity is "critical", "warning", or "info"
- "matchedRequirements": array of requirement strings the submission satisfies
- "missingRequirements": array of requirement strings the submission does not satisfy
- "strengths": array of strings, notable good qualities
- "solanaFindings": array of strings, Solana/on-chain-specific observations (empty if not applicable)
- "issues": array of {"severity", "description", "file", "line"} for concrete problems
- "evidence": array of {"requirement", "file", "line", "excerpt"} tying matched requirements to code
- "summary": string, at most 500 characters
- "detailedNotes": string, long-form reasoning
- "suggestedLabels": array drawn from "excellent", "high-quality", "needs-review", "needs-revision", "security-concern", "potential-plagiarism", "incomplete"

Rules:
- Judge only against the stated requirements and tech stack
- Lower "confidence" when you saw only part of the code
- Flag hardcoded credentials and copied code aggressively
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("## Bounty\n")
	sb.WriteString("Title: ")
	sb.WriteString(bounty.Title)
	sb.WriteString("\n\n")
	if bounty.Description != "" {
		sb.WriteString(bounty.Description)
		sb.WriteString("\n\n")
	}
	if len(bounty.Requirements) > 0 {
		sb.WriteString("Requirements:\n")
		for _, r := range bounty.Requirements {
			sb.WriteString("- ")
			sb.WriteString(r)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if len(bounty.TechStack) > 0 {
		sb.WriteString("Tech stack: ")
		sb.WriteString(strings.Join(bounty.TechStack, ", "))
		sb.WriteString("\n\n")
	}

	switch code.Kind {
	case models.CodeKindPullRequest:
		writePullRequest(&sb, code)
	default:
		writeRepository(&sb, code)
	}

	user = sb.String()
	return
}

func writeRepository(sb *strings.Builder, code models.CodeContext) {
	sb.WriteString("## Submission (repository)\n")
	if code.FileTree != "" {
		sb.WriteString("File tree:\n```\n")
		sb.WriteString(code.FileTree)
		sb.WriteString("\n```\n\n")
	}
	for _, f := range code.KeyFiles {
		writeKeyFile(sb, f)
	}
}

func writePullRequest(sb *strings.Builder, code models.CodeContext) {
	sb.WriteString("## Submission (pull request)\n")
	if code.PRTitle != "" {
		sb.WriteString("Title: ")
		sb.WriteString(code.PRTitle)
		sb.WriteString("\n")
	}
	if code.PRDescription != "" {
		sb.WriteString("Description: ")
		sb.WriteString(code.PRDescription)
		sb.WriteString("\n")
	}
	if len(code.Commits) > 0 {
		sb.WriteString("\nCommits:\n")
		for _, c := range code.Commits {
			sb.WriteString("- ")
			sb.WriteString(c.Message)
			sb.WriteString("\n")
		}
	}
	if code.Diff != "" {
		sb.WriteString("\nDiff:\n```diff\n")
		sb.WriteString(truncate(code.Diff, maxFileBytes*4))
		sb.WriteString("\n```\n")
	}
	for _, f := range code.KeyFiles {
		writeKeyFile(sb, f)
	}
}

func writeKeyFile(sb *strings.Builder, f models.KeyFile) {
	fmt.Fprintf(sb, "### %s (%s, importance: %s)\n```%s\n", f.Path, f.Language, f.Importance, f.Language)
	sb.WriteString(truncate(f.Content, maxFileBytes))
	sb.WriteString("\n```\n\n")
}

// truncate cuts s at the byte ceiling, appending the truncation marker.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + truncationMarker
}
