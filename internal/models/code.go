package models

// Importance ranks how central a file is to a submission. Ordering is
// load-bearing: the chunker packs files most-important first.
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

// ImportanceRank returns a numeric rank for sorting (lower = more important).
func ImportanceRank(i Importance) int {
	switch i {
	case ImportanceCritical:
		return 0
	case ImportanceHigh:
		return 1
	case ImportanceMedium:
		return 2
	case ImportanceLow:
		return 3
	default:
		return 4
	}
}

// KeyFile is a single file selected from a submission for review.
type KeyFile struct {
	Path       string     `json:"path"`
	Language   string     `json:"language"`
	Content    string     `json:"content"`
	Importance Importance `json:"importance"`
}

// CodeKind tags a CodeContext as a full repository or a pull request.
type CodeKind string

const (
	CodeKindRepository  CodeKind = "repository"
	CodeKindPullRequest CodeKind = "pull_request"
)

// Commit is a single commit message from a pull request.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// CodeContext is the fetched snapshot of the code under review. It is
// built once by the content fetcher and read-only afterward. Repository
// submissions carry FileTree and KeyFiles; pull requests additionally
// carry the diff, title, description, and commit list.
type CodeContext struct {
	Kind     CodeKind  `json:"kind"`
	FileTree string    `json:"fileTree"`
	KeyFiles []KeyFile `json:"keyFiles"`

	// Pull request fields, empty for repositories.
	Diff          string   `json:"diff,omitempty"`
	PRTitle       string   `json:"prTitle,omitempty"`
	PRDescription string   `json:"prDescription,omitempty"`
	Commits       []Commit `json:"commits,omitempty"`
}
