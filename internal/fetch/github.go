package fetch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bountylab/reviewd/internal/models"
)

const defaultAPIURL = "https://api.github.com"

// maxKeyFiles caps how many file bodies are fetched per repository.
const maxKeyFiles = 20

// GitHub fetches repository and pull request data from the GitHub REST
// API.
type GitHub struct {
	token   string
	apiURL  string
	httpCli *http.Client
}

// NewGitHub creates a GitHub fetcher. The token comes from the
// github.token config key; unauthenticated access works for public
// repositories at a lower rate limit.
func NewGitHub() *GitHub {
	apiURL := viper.GetString("github.api_url")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &GitHub{
		token:   viper.GetString("github.token"),
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *GitHub) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	req.Header.Set("Accept", accept)

	resp, err := g.httpCli.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, Detail: err.Error()}
	}

	if resp.StatusCode != 200 {
		return nil, classifyStatus(resp, body)
	}
	return body, nil
}

// classifyStatus maps a GitHub error response to a fetch error kind.
// 404 with a token means the repo is private or gone; GitHub reports
// both the same way. 409 on the trees endpoint means an empty repo.
func classifyStatus(resp *http.Response, body []byte) *Error {
	detail := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

	switch resp.StatusCode {
	case 404:
		return &Error{Kind: ErrNotFound, Detail: detail}
	case 409:
		return &Error{Kind: ErrEmpty, Detail: detail}
	case 401:
		return &Error{Kind: ErrPrivate, Detail: detail}
	case 403, 429:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" ||
			strings.Contains(strings.ToLower(string(body)), "rate limit") {
			return &Error{Kind: ErrRateLimited, Detail: detail}
		}
		return &Error{Kind: ErrPrivate, Detail: detail}
	default:
		return &Error{Kind: ErrNetwork, Detail: detail}
	}
}

// ParseRepoURL extracts owner and repo from a GitHub repository URL.
func ParseRepoURL(rawURL string) (owner, repo string, err error) {
	u, err := url.Parse(strings.TrimSuffix(rawURL, ".git"))
	if err != nil {
		return "", "", fmt.Errorf("parse repository url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("not a repository url: %s", rawURL)
	}
	return parts[0], parts[1], nil
}

// ParsePRURL extracts owner, repo, and PR number from a pull request
// URL (https://github.com/owner/repo/pull/123).
func ParsePRURL(rawURL string) (owner, repo string, number int, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", 0, fmt.Errorf("parse pull request url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" {
		return "", "", 0, fmt.Errorf("not a pull request url: %s", rawURL)
	}
	number, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid pull request number in %s", rawURL)
	}
	return parts[0], parts[1], number, nil
}

type repoInfo struct {
	DefaultBranch string `json:"default_branch"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

type treeResponse struct {
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// RepositoryData fetches the file tree and key file contents for a
// repository URL.
func (g *GitHub) RepositoryData(ctx context.Context, repoURL string) (models.CodeContext, error) {
	var code models.CodeContext

	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return code, err
	}

	body, err := g.get(ctx, fmt.Sprintf("%s/repos/%s/%s", g.apiURL, owner, repo), "application/vnd.github.v3+json")
	if err != nil {
		return code, err
	}
	var info repoInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return code, fmt.Errorf("parse repository info: %w", err)
	}

	body, err = g.get(ctx,
		fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", g.apiURL, owner, repo, info.DefaultBranch),
		"application/vnd.github.v3+json")
	if err != nil {
		return code, err
	}
	var tree treeResponse
	if err := json.Unmarshal(body, &tree); err != nil {
		return code, fmt.Errorf("parse tree: %w", err)
	}

	var paths []string
	var candidates []models.KeyFile
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		paths = append(paths, entry.Path)
		if reviewable(entry.Path) {
			candidates = append(candidates, models.KeyFile{
				Path:       entry.Path,
				Language:   languageFor(entry.Path),
				Importance: classifyImportance(entry.Path),
			})
		}
	}
	if len(paths) == 0 {
		return code, &Error{Kind: ErrEmpty, Detail: fmt.Sprintf("%s/%s has no files", owner, repo)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return models.ImportanceRank(candidates[i].Importance) < models.ImportanceRank(candidates[j].Importance)
	})
	if len(candidates) > maxKeyFiles {
		candidates = candidates[:maxKeyFiles]
	}

	for i := range candidates {
		content, err := g.fileContent(ctx, owner, repo, candidates[i].Path)
		if err != nil {
			return code, err
		}
		candidates[i].Content = content
	}

	code.Kind = models.CodeKindRepository
	code.FileTree = strings.Join(paths, "\n")
	code.KeyFiles = candidates
	return code, nil
}

func (g *GitHub) fileContent(ctx context.Context, owner, repo, path string) (string, error) {
	body, err := g.get(ctx,
		fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.apiURL, owner, repo, path),
		"application/vnd.github.v3+json")
	if err != nil {
		return "", err
	}
	var contents contentsResponse
	if err := json.Unmarshal(body, &contents); err != nil {
		return "", fmt.Errorf("parse contents of %s: %w", path, err)
	}
	if contents.Encoding != "base64" {
		return contents.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(contents.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode contents of %s: %w", path, err)
	}
	return string(decoded), nil
}

type prInfo struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type prCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
}

// PRData fetches the diff, metadata, and commits for a pull request
// URL.
func (g *GitHub) PRData(ctx context.Context, prURL string) (models.CodeContext, error) {
	var code models.CodeContext

	owner, repo, number, err := ParsePRURL(prURL)
	if err != nil {
		return code, err
	}
	base := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", g.apiURL, owner, repo, number)

	body, err := g.get(ctx, base, "application/vnd.github.v3+json")
	if err != nil {
		return code, err
	}
	var info prInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return code, fmt.Errorf("parse pull request: %w", err)
	}

	diff, err := g.get(ctx, base, "application/vnd.github.v3.diff")
	if err != nil {
		return code, err
	}
	if len(diff) == 0 {
		return code, &Error{Kind: ErrEmpty, Detail: fmt.Sprintf("PR #%d has an empty diff", number)}
	}

	body, err = g.get(ctx, base+"/commits", "application/vnd.github.v3+json")
	if err != nil {
		return code, err
	}
	var raw []prCommit
	if err := json.Unmarshal(body, &raw); err != nil {
		return code, fmt.Errorf("parse commits: %w", err)
	}
	commits := make([]models.Commit, len(raw))
	for i, c := range raw {
		commits[i] = models.Commit{SHA: c.SHA, Message: c.Commit.Message}
	}

	code.Kind = models.CodeKindPullRequest
	code.Diff = string(diff)
	code.PRTitle = info.Title
	code.PRDescription = info.Body
	code.Commits = commits
	return code, nil
}
