package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/fathima-sithara/video-service/internal/models"
)

// SQLRepository stores videos in SQLite ("sqlite3") or Postgres ("postgres").
type SQLRepository struct {
	db     *sql.DB
	driver string
}

var _ VideoRepository = (*SQLRepository)(nil)

var ErrDuplicateID = errors.New("video id already exists")

const createVideosTable = `
CREATE TABLE IF NOT EXISTS videos (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT,
	video_url TEXT,
	video_key TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

func NewSQLRepository(ctx context.Context, driver, dsn string, connectTimeout time.Duration) (*SQLRepository, error) {
	if driver != "sqlite3" && driver != "postgres" {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// a single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := pingWithRetry(ctx, connectTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createVideosTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create videos table: %w", err)
	}
	return &SQLRepository{db: db, driver: driver}, nil
}

// rebind turns ? placeholders into $n for postgres.
func (r *SQLRepository) rebind(q string) string {
	if r.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *SQLRepository) Insert(ctx context.Context, v *models.Video) error {
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO videos (id, user_id, title, description, thumbnail_url, video_url, video_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		v.ID, v.UserID, v.Title, v.Description, v.ThumbnailURL, v.VideoURL, v.VideoKey, v.CreatedAt, v.UpdatedAt,
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return ErrDuplicateID
	}
	return err
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Video, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT id, user_id, title, description, thumbnail_url, video_url, video_key, created_at, updated_at
		FROM videos WHERE id = ?`), id)

	var (
		v              models.Video
		thumbURL, vURL sql.NullString
	)
	err := row.Scan(&v.ID, &v.UserID, &v.Title, &v.Description, &thumbURL, &vURL, &v.VideoKey, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if thumbURL.Valid {
		v.ThumbnailURL = &thumbURL.String
	}
	if vURL.Valid {
		v.VideoURL = &vURL.String
	}
	return &v, nil
}

func (r *SQLRepository) Update(ctx context.Context, v *models.Video) error {
	v.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, r.rebind(`
		UPDATE videos SET user_id = ?, title = ?, description = ?, thumbnail_url = ?, video_url = ?, video_key = ?, updated_at = ?
		WHERE id = ?`),
		v.UserID, v.Title, v.Description, v.ThumbnailURL, v.VideoURL, v.VideoKey, v.UpdatedAt, v.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Close(ctx context.Context) error {
	return r.db.Close()
}
