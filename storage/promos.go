package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/steamtrust/backend/types"
)

// PromoRepository persists promo codes and their activations
type PromoRepository struct {
	db *sql.DB
}

// NewPromoRepository creates a promo repository
func NewPromoRepository(db *sql.DB) *PromoRepository {
	return &PromoRepository{db: db}
}

func scanPromoCode(row rowScanner) (*types.PromoCode, error) {
	var code types.PromoCode
	err := row.Scan(&code.ID, &code.Code, &code.BonusPercent, &code.CreatedAt, &code.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	code.CreatedAt = code.CreatedAt.UTC()
	code.UpdatedAt = code.UpdatedAt.UTC()
	return &code, nil
}

// CreateCode inserts a promo code
func (r *PromoRepository) CreateCode(ctx context.Context, code *types.PromoCode) error {
	now := time.Now().UTC()
	code.CreatedAt, code.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO promo_codes (id, code, bonus_percent, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		code.ID, code.Code, code.BonusPercent, code.CreatedAt, code.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert promo code: %w", err)
	}
	return nil
}

// UpdateCode replaces the code text and bonus of an existing promo code
func (r *PromoRepository) UpdateCode(ctx context.Context, code *types.PromoCode) error {
	code.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE promo_codes SET code = $1, bonus_percent = $2, updated_at = $3 WHERE id = $4`,
		code.Code, code.BonusPercent, code.UpdatedAt, code.ID,
	)
	if err != nil && IsUniqueViolation(err) {
		return ErrDuplicate
	}
	ok, err := affected(res, err, "update promo code")
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// GetCodeByID fetches a promo code by id
func (r *PromoRepository) GetCodeByID(ctx context.Context, id string) (*types.PromoCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, code, bonus_percent, created_at, updated_at FROM promo_codes WHERE id = $1`, id)
	return scanPromoCode(row)
}

// GetCodeByCode fetches a promo code by its lowercase code
func (r *PromoRepository) GetCodeByCode(ctx context.Context, code string) (*types.PromoCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, code, bonus_percent, created_at, updated_at FROM promo_codes WHERE code = $1`, code)
	return scanPromoCode(row)
}

// ListCodes returns a page of promo codes and the total count
func (r *PromoRepository) ListCodes(ctx context.Context, page types.Pagination) ([]*types.PromoCode, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM promo_codes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count promo codes: %w", err)
	}

	order := "ASC"
	if page.Desc {
		order = "DESC"
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, bonus_percent, created_at, updated_at FROM promo_codes ORDER BY created_at `+order+` LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list promo codes: %w", err)
	}
	defer rows.Close()

	codes := []*types.PromoCode{}
	for rows.Next() {
		code, err := scanPromoCode(rows)
		if err != nil {
			return nil, 0, err
		}
		codes = append(codes, code)
	}
	return codes, total, rows.Err()
}

// CreateActivation inserts an active activation. The partial unique index
// on active activations per email turns a concurrent second activation
// into ErrDuplicate.
func (r *PromoRepository) CreateActivation(ctx context.Context, activation *types.PromoActivation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO promo_activations (id, promo_code_id, email, status, activated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		activation.ID, activation.PromoCodeID, activation.Email, string(activation.Status), activation.ActivatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert promo activation: %w", err)
	}
	return nil
}

// GetActiveActivation returns the email's active activation and its promo code
func (r *PromoRepository) GetActiveActivation(ctx context.Context, tx *sql.Tx, email string) (*types.PromoActivation, *types.PromoCode, error) {
	var activation types.PromoActivation
	var code types.PromoCode
	var status string

	err := pick(r.db, tx).QueryRowContext(ctx, `
		SELECT a.id, a.promo_code_id, a.email, a.status, a.activated_at,
			c.id, c.code, c.bonus_percent, c.created_at, c.updated_at
		FROM promo_activations a
		JOIN promo_codes c ON c.id = a.promo_code_id
		WHERE a.email = $1 AND a.status = $2`,
		email, string(types.PromoActivationActive),
	).Scan(
		&activation.ID, &activation.PromoCodeID, &activation.Email, &status, &activation.ActivatedAt,
		&code.ID, &code.Code, &code.BonusPercent, &code.CreatedAt, &code.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get active activation: %w", err)
	}

	activation.Status = types.PromoActivationStatus(status)
	activation.ActivatedAt = activation.ActivatedAt.UTC()
	return &activation, &code, nil
}

// MarkApplied consumes an active activation. It reports whether the row
// was still active.
func (r *PromoRepository) MarkApplied(ctx context.Context, tx *sql.Tx, activationID string, appliedAt time.Time) (bool, error) {
	res, err := pick(r.db, tx).ExecContext(ctx,
		`UPDATE promo_activations SET status = $1, applied_at = $2 WHERE id = $3 AND status = $4`,
		string(types.PromoActivationApplied), appliedAt.UTC(), activationID, string(types.PromoActivationActive),
	)
	return affected(res, err, "mark activation applied")
}

// ExpireActivations moves active activations older than before to expired
func (r *PromoRepository) ExpireActivations(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE promo_activations SET status = $1 WHERE status = $2 AND activated_at < $3`,
		string(types.PromoActivationExpired), string(types.PromoActivationActive), before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("expire activations: %w", err)
	}
	return res.RowsAffected()
}

// EnsureCode inserts code unless a promo code with the same text exists.
// It reports whether a row was created.
func (r *PromoRepository) EnsureCode(ctx context.Context, code *types.PromoCode) (bool, error) {
	now := time.Now().UTC()
	code.CreatedAt, code.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO promo_codes (id, code, bonus_percent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING`,
		code.ID, code.Code, code.BonusPercent, code.CreatedAt, code.UpdatedAt,
	)
	return affected(res, err, "seed promo code")
}
