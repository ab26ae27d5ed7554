package persistence

import (
	"context"
	"database/sql"
	"time"

	"brandhub/domain/model"
	"brandhub/domain/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SocialAccountRepository stores brand platform credentials (PostgreSQL).
// Tokens arrive already encrypted.
type SocialAccountRepository struct{ db *sql.DB }

func NewSocialAccountRepository(db *sql.DB) *SocialAccountRepository {
	return &SocialAccountRepository{db: db}
}

var _ repository.ISocialAccount = (*SocialAccountRepository)(nil)

const accountColumns = `id, brand_id, platform, platform_account_id, display_name, access_token, refresh_token, token_expires_at, scope, status, last_error, created_at, updated_at`

func scanAccount(row rowScanner) (*model.SocialAccount, error) {
	acc := &model.SocialAccount{}
	var exp sql.NullTime
	var displayName, scope, lastErr sql.NullString
	if err := row.Scan(&acc.ID, &acc.BrandID, &acc.Platform, &acc.PlatformAccountID, &displayName, &acc.AccessToken, &acc.RefreshToken,
		&exp, &scope, &acc.Status, &lastErr, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	if exp.Valid {
		t := exp.Time
		acc.TokenExpiresAt = &t
	}
	acc.DisplayName = displayName.String
	acc.Scope = scope.String
	if lastErr.Valid {
		v := lastErr.String
		acc.LastError = &v
	}
	return acc, nil
}

func (r *SocialAccountRepository) list(ctx context.Context, q string, args ...interface{}) ([]*model.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.SocialAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, acc)
	}
	return list, rows.Err()
}

func (r *SocialAccountRepository) ListConnected(ctx context.Context, brandID string, platforms []model.Platform) ([]*model.SocialAccount, error) {
	if len(platforms) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, string(p))
	}
	return r.list(ctx, `SELECT `+accountColumns+` FROM social_accounts
		WHERE brand_id=$1 AND status=$2 AND platform = ANY($3) ORDER BY updated_at DESC`,
		brandID, string(model.AccountStatusConnected), pq.Array(names))
}

func (r *SocialAccountRepository) ListByBrand(ctx context.Context, brandID string) ([]*model.SocialAccount, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM social_accounts WHERE brand_id=$1 ORDER BY platform, created_at`, brandID)
}

func (r *SocialAccountRepository) Upsert(ctx context.Context, acc *model.SocialAccount) error {
	now := time.Now().UTC()
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now
	q := `INSERT INTO social_accounts (id, brand_id, platform, platform_account_id, display_name, access_token, refresh_token, token_expires_at, scope, status, last_error, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		  ON CONFLICT (brand_id, platform, platform_account_id) DO UPDATE SET
			display_name=EXCLUDED.display_name,
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			token_expires_at=EXCLUDED.token_expires_at,
			scope=EXCLUDED.scope,
			status=EXCLUDED.status,
			last_error=EXCLUDED.last_error,
			updated_at=EXCLUDED.updated_at
		  RETURNING id, created_at`
	row := r.db.QueryRowContext(ctx, q, acc.ID, acc.BrandID, string(acc.Platform), acc.PlatformAccountID, acc.DisplayName,
		acc.AccessToken, acc.RefreshToken, acc.TokenExpiresAt, acc.Scope, string(acc.Status), acc.LastError, acc.CreatedAt, acc.UpdatedAt)
	return row.Scan(&acc.ID, &acc.CreatedAt)
}

func (r *SocialAccountRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error {
	return r.exec(ctx, `UPDATE social_accounts SET access_token=$2, refresh_token=COALESCE(NULLIF($3, ''), refresh_token),
		token_expires_at=$4, status=$5, last_error=NULL, updated_at=$6 WHERE id=$1`,
		id, accessToken, refreshToken, expiresAt, string(model.AccountStatusConnected), time.Now().UTC())
}

func (r *SocialAccountRepository) MarkError(ctx context.Context, id, message string) error {
	return r.exec(ctx, `UPDATE social_accounts SET status=$2, last_error=$3, updated_at=$4 WHERE id=$1`,
		id, string(model.AccountStatusError), message, time.Now().UTC())
}

func (r *SocialAccountRepository) Disconnect(ctx context.Context, brandID, id string) error {
	return r.exec(ctx, `UPDATE social_accounts SET status=$3, access_token='', refresh_token='', token_expires_at=NULL, updated_at=$4
		WHERE id=$1 AND brand_id=$2`,
		id, brandID, string(model.AccountStatusDisconnected), time.Now().UTC())
}

func (r *SocialAccountRepository) exec(ctx context.Context, q string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
