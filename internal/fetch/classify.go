package fetch

import (
	"path"
	"strings"

	"github.com/bountylab/reviewd/internal/models"
)

// languages maps file extensions to the language tag sent to the model.
var languages = map[string]string{
	".rs":   "rust",
	".sol":  "solidity",
	".move": "move",
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".py":   "python",
	".toml": "toml",
	".json": "json",
	".md":   "markdown",
}

// skipDirs are tree prefixes that never contain reviewable source.
var skipDirs = []string{
	"node_modules/", "target/", "dist/", "build/", ".git/",
	"vendor/", ".next/", "coverage/",
}

func languageFor(p string) string {
	if lang, ok := languages[strings.ToLower(path.Ext(p))]; ok {
		return lang
	}
	return ""
}

// reviewable reports whether a path is worth sending to the model at
// all: known source or manifest files outside generated directories.
func reviewable(p string) bool {
	for _, dir := range skipDirs {
		if strings.HasPrefix(p, dir) || strings.Contains(p, "/"+dir) {
			return false
		}
	}
	base := strings.ToLower(path.Base(p))
	if strings.HasSuffix(base, ".lock") || base == "package-lock.json" || base == "yarn.lock" {
		return false
	}
	return languageFor(p) != ""
}

// classifyImportance ranks a path for chunk packing. Program entry
// points and on-chain code score highest, then general source, then
// tests and manifests, then docs.
func classifyImportance(p string) models.Importance {
	lower := strings.ToLower(p)
	base := path.Base(lower)
	ext := path.Ext(lower)

	switch {
	case strings.Contains(lower, "programs/") && ext == ".rs",
		strings.Contains(lower, "contracts/") || ext == ".sol" || ext == ".move",
		base == "lib.rs" || base == "main.rs",
		strings.HasPrefix(base, "main.") || strings.HasPrefix(base, "index."):
		return models.ImportanceCritical
	case strings.Contains(lower, "test") || strings.Contains(lower, "spec."):
		return models.ImportanceMedium
	case base == "cargo.toml" || base == "package.json" || base == "anchor.toml" || base == "go.mod":
		return models.ImportanceMedium
	case ext == ".md" || ext == ".json" || ext == ".toml":
		return models.ImportanceLow
	case strings.Contains(lower, "src/") || strings.Contains(lower, "app/"):
		return models.ImportanceHigh
	default:
		return models.ImportanceHigh
	}
}
