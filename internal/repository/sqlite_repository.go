package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso / libSQL
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS links (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		code         TEXT NOT NULL UNIQUE,
		target_url   TEXT NOT NULL,
		total_clicks INTEGER NOT NULL DEFAULT 0,
		last_clicked INTEGER,
		created_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_links_created_at ON links(created_at);
`

// SQLiteRepository LinkRepository поверх локального SQLite (modernc) или удалённого libSQL.
// Время хранится в микросекундах Unix.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository открывает базу и применяет схему. Драйвер выбирается по URL:
// libsql:// и wss:// уходят в libSQL, всё остальное в локальный SQLite.
func NewSQLiteRepository(ctx context.Context, dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.HasPrefix(dbURL, "libsql://") || strings.HasPrefix(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driverName, err)
	}

	if driverName == "sqlite" {
		// Один писатель: SQLite всё равно сериализует записи, а так не бывает SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driverName, err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Create(ctx context.Context, link *models.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO links (code, target_url, created_at)
		VALUES (?, ?, ?)
		RETURNING ` + linkColumns

	row := r.db.QueryRowContext(ctx, query, link.Code, link.TargetURL, link.CreatedAt.UnixMicro())
	if err := scanSQLiteLink(row, link); err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE code = ?`

	link := &models.Link{}
	if err := scanSQLiteLink(r.db.QueryRowContext(ctx, query, code), link); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []*models.Link{}
	for rows.Next() {
		link := &models.Link{}
		if err := scanSQLiteLink(rows, link); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if affected == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *SQLiteRepository) RecordClick(ctx context.Context, code string, at time.Time) (*models.Link, error) {
	query := `
		UPDATE links
		SET total_clicks = total_clicks + 1,
			last_clicked = MAX(COALESCE(last_clicked, 0), ?)
		WHERE code = ?
		RETURNING ` + linkColumns

	link := &models.Link{}
	if err := scanSQLiteLink(r.db.QueryRowContext(ctx, query, at.UnixMicro(), code), link); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	return link, nil
}

func scanSQLiteLink(row rowScanner, link *models.Link) error {
	var (
		lastClicked sql.NullInt64
		createdAt   int64
	)
	if err := row.Scan(
		&link.Code,
		&link.TargetURL,
		&link.TotalClicks,
		&lastClicked,
		&createdAt,
	); err != nil {
		return err
	}

	link.CreatedAt = time.UnixMicro(createdAt).UTC()
	link.LastClicked = nil
	if lastClicked.Valid {
		t := time.UnixMicro(lastClicked.Int64).UTC()
		link.LastClicked = &t
	}

	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	// libSQL отдаёт ошибку сервера строкой
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
