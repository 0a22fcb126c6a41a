package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bountylab/reviewd/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Reviews ---

// SaveReview inserts a review keyed by its submission ID. A submission
// that was already reviewed is left untouched and reported as not
// inserted, which keeps retried jobs idempotent.
func (s *SQLiteStore) SaveReview(ctx context.Context, r *models.SubmissionReview) (bool, error) {
	if r.ID == "" {
		r.ID = newULID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO submission_reviews (id, submission_id, external_id, bounty_title, score, label, result_json, model_used, tokens_used, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SubmissionID, r.ExternalID, r.BountyTitle, r.Score, string(r.Label),
		r.ResultJSON, r.ModelUsed, r.TokensUsed, r.Cost, r.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("save review: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

const reviewColumns = `id, submission_id, external_id, bounty_title, score, label, result_json, model_used, tokens_used, cost, created_at`

func scanReview(row interface{ Scan(...any) error }) (*models.SubmissionReview, error) {
	r := &models.SubmissionReview{}
	var label string
	err := row.Scan(&r.ID, &r.SubmissionID, &r.ExternalID, &r.BountyTitle, &r.Score,
		&label, &r.ResultJSON, &r.ModelUsed, &r.TokensUsed, &r.Cost, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Label = models.EarnLabel(label)
	return r, nil
}

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*models.SubmissionReview, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM submission_reviews WHERE id = ?`, id)
	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) GetReviewBySubmission(ctx context.Context, submissionID string) (*models.SubmissionReview, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM submission_reviews WHERE submission_id = ?`, submissionID)
	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review not found for submission: %s", submissionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get review by submission: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) ListReviews(ctx context.Context, limit int) ([]*models.SubmissionReview, error) {
	query := `SELECT ` + reviewColumns + ` FROM submission_reviews ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []*models.SubmissionReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// --- Validations ---

func (s *SQLiteStore) CreateValidation(ctx context.Context, v *models.ValidationRecord) error {
	if v.ID == "" {
		v.ID = newULID()
	}
	v.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validations (id, submission_id, ai_score, ai_label, human_score, human_label, score_accurate, label_accurate, score_delta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.SubmissionID, v.AIScore, string(v.AILabel), v.HumanScore, string(v.HumanLabel),
		boolToInt(v.ScoreAccurate), boolToInt(v.LabelAccurate), v.ScoreDelta, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create validation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListValidations(ctx context.Context, limit int) ([]*models.ValidationRecord, error) {
	query := `SELECT id, submission_id, ai_score, ai_label, human_score, human_label, score_accurate, label_accurate, score_delta, created_at
		FROM validations ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var validations []*models.ValidationRecord
	for rows.Next() {
		v := &models.ValidationRecord{}
		var aiLabel, humanLabel string
		if err := rows.Scan(&v.ID, &v.SubmissionID, &v.AIScore, &aiLabel,
			&v.HumanScore, &humanLabel,
			&v.ScoreAccurate, &v.LabelAccurate, &v.ScoreDelta, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		v.AILabel = models.EarnLabel(aiLabel)
		v.HumanLabel = models.EarnLabel(humanLabel)
		validations = append(validations, v)
	}
	return validations, rows.Err()
}
