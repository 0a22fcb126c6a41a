package fetch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bountylab/reviewd/internal/models"
)

func testClient(url string) *GitHub {
	return &GitHub{
		token:   "test-token",
		apiURL:  url,
		httpCli: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestParseRepoURL(t *testing.T) {
	owner, repo, err := ParseRepoURL("https://github.com/acme/vesting")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "vesting", repo)

	owner, repo, err = ParseRepoURL("https://github.com/acme/vesting.git")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "vesting", repo)

	_, _, err = ParseRepoURL("https://github.com/acme")
	assert.Error(t, err)
}

func TestParsePRURL(t *testing.T) {
	owner, repo, number, err := ParsePRURL("https://github.com/acme/vesting/pull/42")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "vesting", repo)
	assert.Equal(t, 42, number)

	_, _, _, err = ParsePRURL("https://github.com/acme/vesting/issues/42")
	assert.Error(t, err)

	_, _, _, err = ParsePRURL("https://github.com/acme/vesting/pull/abc")
	assert.Error(t, err)
}

func TestRepositoryData(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("pub mod vesting;"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/repos/acme/vesting":
			json.NewEncoder(w).Encode(map[string]string{"default_branch": "main"})
		case "/repos/acme/vesting/git/trees/main":
			json.NewEncoder(w).Encode(map[string]any{
				"tree": []map[string]any{
					{"path": "programs/vesting/src/lib.rs", "type": "blob", "size": 120},
					{"path": "README.md", "type": "blob", "size": 40},
					{"path": "node_modules/left-pad/index.js", "type": "blob", "size": 9000},
					{"path": "src", "type": "tree"},
				},
			})
		case "/repos/acme/vesting/contents/programs/vesting/src/lib.rs",
			"/repos/acme/vesting/contents/README.md":
			json.NewEncoder(w).Encode(map[string]string{"content": content, "encoding": "base64"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	code, err := testClient(srv.URL).RepositoryData(context.Background(), "https://github.com/acme/vesting")
	require.NoError(t, err)

	assert.Equal(t, models.CodeKindRepository, code.Kind)
	assert.Contains(t, code.FileTree, "programs/vesting/src/lib.rs")
	assert.Contains(t, code.FileTree, "node_modules/left-pad/index.js")

	// node_modules is excluded from key files, lib.rs ranks first.
	require.Len(t, code.KeyFiles, 2)
	assert.Equal(t, "programs/vesting/src/lib.rs", code.KeyFiles[0].Path)
	assert.Equal(t, models.ImportanceCritical, code.KeyFiles[0].Importance)
	assert.Equal(t, "pub mod vesting;", code.KeyFiles[0].Content)
	assert.Equal(t, "README.md", code.KeyFiles[1].Path)
}

func TestPRData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/repos/acme/vesting/pulls/7" && r.Header.Get("Accept") == "application/vnd.github.v3.diff":
			w.Write([]byte("diff --git a/main.go b/main.go"))
		case r.URL.Path == "/repos/acme/vesting/pulls/7":
			json.NewEncoder(w).Encode(map[string]string{"title": "Add vesting", "body": "Implements cliff."})
		case r.URL.Path == "/repos/acme/vesting/pulls/7/commits":
			json.NewEncoder(w).Encode([]map[string]any{
				{"sha": "abc123", "commit": map[string]string{"message": "add vesting"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	code, err := testClient(srv.URL).PRData(context.Background(), "https://github.com/acme/vesting/pull/7")
	require.NoError(t, err)

	assert.Equal(t, models.CodeKindPullRequest, code.Kind)
	assert.Equal(t, "Add vesting", code.PRTitle)
	assert.Equal(t, "Implements cliff.", code.PRDescription)
	assert.Contains(t, code.Diff, "diff --git")
	require.Len(t, code.Commits, 1)
	assert.Equal(t, "abc123", code.Commits[0].SHA)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		header map[string]string
		body   string
		want   ErrorKind
	}{
		{"not found", 404, nil, `{"message":"Not Found"}`, ErrNotFound},
		{"empty repo", 409, nil, `{"message":"Git Repository is empty."}`, ErrEmpty},
		{"bad token", 401, nil, `{"message":"Bad credentials"}`, ErrPrivate},
		{"forbidden", 403, nil, `{"message":"Must have admin rights"}`, ErrPrivate},
		{"rate limited", 403, map[string]string{"X-RateLimit-Remaining": "0"}, `{"message":"API rate limit exceeded"}`, ErrRateLimited},
		{"secondary rate limit", 429, nil, `{"message":"You have exceeded a secondary rate limit"}`, ErrRateLimited},
		{"server error", 502, nil, "bad gateway", ErrNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).RepositoryData(context.Background(), "https://github.com/acme/vesting")
			require.Error(t, err)
			assert.Equal(t, tc.want, KindOf(err))
		})
	}
}

func TestEmptyTree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/empty":
			json.NewEncoder(w).Encode(map[string]string{"default_branch": "main"})
		case "/repos/acme/empty/git/trees/main":
			json.NewEncoder(w).Encode(map[string]any{"tree": []map[string]any{}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).RepositoryData(context.Background(), "https://github.com/acme/empty")
	assert.Equal(t, ErrEmpty, KindOf(err))
}

func TestClassifyImportance(t *testing.T) {
	assert.Equal(t, models.ImportanceCritical, classifyImportance("programs/vesting/src/lib.rs"))
	assert.Equal(t, models.ImportanceCritical, classifyImportance("contracts/Vesting.sol"))
	assert.Equal(t, models.ImportanceCritical, classifyImportance("src/index.ts"))
	assert.Equal(t, models.ImportanceHigh, classifyImportance("src/utils/math.ts"))
	assert.Equal(t, models.ImportanceMedium, classifyImportance("tests/vesting.test.ts"))
	assert.Equal(t, models.ImportanceMedium, classifyImportance("Cargo.toml"))
	assert.Equal(t, models.ImportanceLow, classifyImportance("docs/ARCHITECTURE.md"))
}

func TestReviewable(t *testing.T) {
	assert.True(t, reviewable("src/lib.rs"))
	assert.False(t, reviewable("node_modules/pkg/index.js"))
	assert.False(t, reviewable("app/node_modules/pkg/index.js"))
	assert.False(t, reviewable("yarn.lock"))
	assert.False(t, reviewable("logo.png"))
}
