package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/newm4n/pranoto.ai/pkg/types"
)

// ErrNotFound indicates no video record exists for the given id.
var ErrNotFound = errors.New("video not found")

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	MaxPool  int
}

type Store struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed video status store
func NewPostgresStore(cfg Config) (*Store, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool settings
	db.SetMaxOpenConns(cfg.MaxPool)
	db.SetMaxIdleConns(cfg.MaxPool / 2)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetVideo retrieves a video record by id.
func (s *Store) GetVideo(ctx context.Context, id string) (*types.Video, error) {
	video := &types.Video{}

	query := `
		SELECT id, title, type, status, url, text, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&video.ID,
		&video.Title,
		&video.Type,
		&video.Status,
		&video.URL,
		&video.Text,
		&video.CreatedAt,
		&video.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

// UpdateStatus sets the video's lifecycle status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status types.Status) error {
	query := `
		UPDATE videos
		SET status = $1,
		    updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, string(status), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	return checkAffected(result, id)
}

// Fields holds the optional columns of a partial video update. Nil pointers
// leave the column untouched.
type Fields struct {
	Status *types.Status
	Text   *string
	URL    *string
}

// UpdateFields applies a partial update to a video record.
func (s *Store) UpdateFields(ctx context.Context, id string, fields Fields) error {
	query := `
		UPDATE videos
		SET status = COALESCE($1, status),
		    text = COALESCE($2, text),
		    url = COALESCE($3, url),
		    updated_at = $4
		WHERE id = $5
	`

	var status *string
	if fields.Status != nil {
		v := string(*fields.Status)
		status = &v
	}

	result, err := s.db.ExecContext(ctx, query, status, fields.Text, fields.URL, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	return checkAffected(result, id)
}

// MarkFailed transitions the video to FAILED and records the failure reason.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	query := `
		UPDATE videos
		SET status = $1,
		    error_message = $2,
		    updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, string(types.StatusFailed), reason, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark video as failed: %w", err)
	}

	return checkAffected(result, id)
}

func checkAffected(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return nil
}
