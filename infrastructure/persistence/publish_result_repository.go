package persistence

import (
	"context"
	"database/sql"
	"time"

	"brandhub/domain/model"
	"brandhub/domain/repository"
)

// PublishResultRepository is the append-only attempt log (PostgreSQL).
type PublishResultRepository struct {
	db *sql.DB
}

func NewPublishResultRepository(db *sql.DB) *PublishResultRepository {
	return &PublishResultRepository{db: db}
}

var _ repository.IPublishResult = (*PublishResultRepository)(nil)

func (r *PublishResultRepository) Create(ctx context.Context, res *model.PublishResult) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	q := `INSERT INTO publish_results (content_id, attempt_id, platform, success, platform_post_id, post_url, error_message, created_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`
	return r.db.QueryRowContext(ctx, q, res.ContentID, res.AttemptID, string(res.Platform), res.Success,
		res.PlatformPostID, res.PostURL, res.ErrorMessage, res.CreatedAt).Scan(&res.ID)
}

func (r *PublishResultRepository) ListByContent(ctx context.Context, contentID string) ([]*model.PublishResult, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, content_id, attempt_id, platform, success, platform_post_id, post_url, error_message, created_at
		FROM publish_results WHERE content_id=$1 ORDER BY created_at DESC, id DESC`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.PublishResult
	for rows.Next() {
		rec := &model.PublishResult{}
		var attemptID, postID, postURL, errMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ContentID, &attemptID, &rec.Platform, &rec.Success, &postID, &postURL, &errMsg, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.AttemptID = attemptID.String
		if postID.Valid {
			v := postID.String
			rec.PlatformPostID = &v
		}
		if postURL.Valid {
			v := postURL.String
			rec.PostURL = &v
		}
		if errMsg.Valid {
			v := errMsg.String
			rec.ErrorMessage = &v
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
