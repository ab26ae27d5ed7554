package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"brandhub/domain/model"
	"brandhub/domain/repository"

	"github.com/lib/pq"
)

// ContentRepository reads content items and writes their publish status (PostgreSQL).
type ContentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) *ContentRepository { return &ContentRepository{db: db} }

var _ repository.IContent = (*ContentRepository)(nil)

const contentColumns = `id, brand_id, body, variations, media_urls, media_kind, link_url, hashtags, platforms, status, approval_status, scheduled_for, published_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContent(row rowScanner) (*model.ContentItem, error) {
	item := &model.ContentItem{}
	var (
		variations                     []byte
		mediaURLs, hashtags, platforms []string
		mediaKind, linkURL             sql.NullString
		scheduledFor, publishedAt      sql.NullTime
	)
	if err := row.Scan(&item.ID, &item.BrandID, &item.Body, &variations, pq.Array(&mediaURLs), &mediaKind, &linkURL,
		pq.Array(&hashtags), pq.Array(&platforms), &item.Status, &item.ApprovalStatus, &scheduledFor, &publishedAt,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if len(variations) > 0 {
		if err := json.Unmarshal(variations, &item.Variations); err != nil {
			return nil, fmt.Errorf("content %s: invalid variations: %w", item.ID, err)
		}
	}
	item.MediaURLs = mediaURLs
	item.Hashtags = hashtags
	item.MediaKind = model.MediaKind(mediaKind.String)
	item.LinkURL = linkURL.String
	for _, p := range platforms {
		item.Platforms = append(item.Platforms, model.Platform(p))
	}
	if scheduledFor.Valid {
		t := scheduledFor.Time
		item.ScheduledFor = &t
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		item.PublishedAt = &t
	}
	return item, nil
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (*model.ContentItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_items WHERE id=$1`, id)
	item, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (r *ContentRepository) UpdatePublishStatus(ctx context.Context, id string, status model.ContentStatus, publishedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE content_items SET status=$2, published_at=COALESCE($3, published_at), updated_at=$4 WHERE id=$1`,
		id, string(status), publishedAt, time.Now().UTC())
	return err
}

func (r *ContentRepository) ListDueScheduled(ctx context.Context, brandID string, now time.Time, limit int) ([]*model.ContentItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+contentColumns+` FROM content_items
		WHERE brand_id=$1 AND status=$2 AND approval_status=$3 AND scheduled_for <= $4
		ORDER BY scheduled_for ASC LIMIT $5`,
		brandID, string(model.ContentStatusScheduled), string(model.ApprovalStatusApproved), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

func (r *ContentRepository) ListBrandsWithDueScheduled(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT brand_id FROM content_items
		WHERE status=$1 AND approval_status=$2 AND scheduled_for <= $3 ORDER BY brand_id`,
		string(model.ContentStatusScheduled), string(model.ApprovalStatusApproved), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var brands []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}
