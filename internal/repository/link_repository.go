package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeExists   = errors.New("short code already exists")
)

// pgUniqueViolation код ошибки PostgreSQL unique_violation
const pgUniqueViolation = "23505"

// LinkRepository хранилище ссылок. Уникальность кода и атомарность
// счётчика кликов обеспечивает само хранилище.
type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByCode(ctx context.Context, code string) (*models.Link, error)
	List(ctx context.Context) ([]*models.Link, error)
	Delete(ctx context.Context, code string) error
	RecordClick(ctx context.Context, code string, at time.Time) (*models.Link, error)
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

const linkColumns = `code, target_url, total_clicks, last_clicked, created_at`

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO links (code, target_url, created_at)
		VALUES ($1, $2, $3)
		RETURNING ` + linkColumns

	err := scanLink(r.db.Pool.QueryRow(ctx, query, link.Code, link.TargetURL, link.CreatedAt), link)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE code = $1`

	link := &models.Link{}
	if err := scanLink(r.db.Pool.QueryRow(ctx, query, code), link); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *linkRepository) List(ctx context.Context) ([]*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []*models.Link{}
	for rows.Next() {
		link := &models.Link{}
		if err := scanLink(rows, link); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

func (r *linkRepository) Delete(ctx context.Context, code string) error {
	query := `DELETE FROM links WHERE code = $1`

	result, err := r.db.Pool.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// RecordClick увеличивает счётчик одним UPDATE, поэтому параллельные клики не теряются.
// GREATEST игнорирует NULL, так что первый клик просто выставляет last_clicked.
func (r *linkRepository) RecordClick(ctx context.Context, code string, at time.Time) (*models.Link, error) {
	query := `
		UPDATE links
		SET total_clicks = total_clicks + 1,
			last_clicked = GREATEST(last_clicked, $2)
		WHERE code = $1
		RETURNING ` + linkColumns

	link := &models.Link{}
	if err := scanLink(r.db.Pool.QueryRow(ctx, query, code, at), link); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	return link, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner, link *models.Link) error {
	var lastClicked *time.Time
	if err := row.Scan(
		&link.Code,
		&link.TargetURL,
		&link.TotalClicks,
		&lastClicked,
		&link.CreatedAt,
	); err != nil {
		return err
	}

	link.CreatedAt = link.CreatedAt.UTC()
	link.LastClicked = nil
	if lastClicked != nil {
		t := lastClicked.UTC()
		link.LastClicked = &t
	}

	return nil
}

// Проверка на нарушение уникальности
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
