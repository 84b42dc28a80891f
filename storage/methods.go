package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/steamtrust/backend/types"
)

const methodColumns = `id, provider_method, provider, from_currency_code, to_currency_code, min_amount, max_amount,
	relative_commission, relative_provider_commission, is_active, created_at, updated_at`

// MethodRepository persists payment methods
type MethodRepository struct {
	db *sql.DB
}

// NewMethodRepository creates a payment method repository
func NewMethodRepository(db *sql.DB) *MethodRepository {
	return &MethodRepository{db: db}
}

func scanMethod(row rowScanner) (*types.PaymentMethod, error) {
	var m types.PaymentMethod
	var provider string

	err := row.Scan(
		&m.ID, &m.ProviderMethod, &provider, &m.FromCurrencyCode, &m.ToCurrencyCode, &m.Min, &m.Max,
		&m.RelativeCommission, &m.RelativeProviderCommission, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	m.Provider = types.PaymentProvider(provider)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return &m, nil
}

// Create inserts a payment method
func (r *MethodRepository) Create(ctx context.Context, m *types.PaymentMethod) error {
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_methods (`+methodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.ProviderMethod, string(m.Provider), m.FromCurrencyCode, m.ToCurrencyCode, m.Min, m.Max,
		m.RelativeCommission, m.RelativeProviderCommission, m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}

// GetByID fetches a payment method
func (r *MethodRepository) GetByID(ctx context.Context, id string) (*types.PaymentMethod, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+methodColumns+` FROM payment_methods WHERE id = $1`, id)
	return scanMethod(row)
}

// GetByCode fetches a payment method by its provider method code
func (r *MethodRepository) GetByCode(ctx context.Context, code string) (*types.PaymentMethod, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+methodColumns+` FROM payment_methods WHERE provider_method = $1`, code)
	return scanMethod(row)
}

// Update replaces the commission schedule and optionally the active flag
func (r *MethodRepository) Update(ctx context.Context, m *types.PaymentMethod) error {
	m.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_methods
		SET relative_commission = $1, relative_provider_commission = $2, is_active = $3, updated_at = $4
		WHERE id = $5`,
		m.RelativeCommission, m.RelativeProviderCommission, m.IsActive, m.UpdatedAt, m.ID,
	)
	ok, err := affected(res, err, "update payment method")
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// List returns a filtered page of payment methods and the total match count
func (r *MethodRepository) List(ctx context.Context, filter types.MethodFilter, page types.Pagination) ([]*types.PaymentMethod, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Provider != "" {
		args = append(args, string(filter.Provider))
		conditions = append(conditions, fmt.Sprintf("provider = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_methods`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payment methods: %w", err)
	}

	order := "ASC"
	if page.Desc {
		order = "DESC"
	}
	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM payment_methods%s ORDER BY created_at %s LIMIT $%d OFFSET $%d`,
		methodColumns, where, order, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	methods := []*types.PaymentMethod{}
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, 0, err
		}
		methods = append(methods, m)
	}
	return methods, total, rows.Err()
}
