package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/types"
)

const paymentColumns = `id, provider, provider_transaction_id, email, currency, amount, paid_amount,
	final_amount, bonus, commission, status, payment_link, account, b2b_transaction_id, metadata,
	created_at, updated_at`

// PaymentRepository persists payments
type PaymentRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewPaymentRepository creates a payment repository
func NewPaymentRepository(db *sql.DB, dialect Dialect) *PaymentRepository {
	return &PaymentRepository{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*types.Payment, error) {
	var p types.Payment
	var provider, status string
	var metadata []byte

	err := row.Scan(
		&p.ID, &provider, &p.ProviderTransactionID, &p.Email, &p.Currency, &p.Amount, &p.PaidAmount,
		&p.FinalAmount, &p.Bonus, &p.Commission, &status, &p.PaymentLink, &p.Account, &p.B2BTransactionID,
		&metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Provider = types.PaymentProvider(provider)
	p.Status = types.PaymentStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	p.Metadata = types.Metadata{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}

	return &p, nil
}

func encodeMetadata(metadata types.Metadata) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(raw), nil
}

// Create inserts a new payment
func (r *PaymentRepository) Create(ctx context.Context, tx *sql.Tx, p *types.Payment) error {
	metadata, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err = pick(r.db, tx).ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		p.ID, string(p.Provider), p.ProviderTransactionID, p.Email, p.Currency, p.Amount, p.PaidAmount,
		p.FinalAmount, p.Bonus, p.Commission, string(p.Status), p.PaymentLink, p.Account, p.B2BTransactionID,
		metadata, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment
func (r *PaymentRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*types.Payment, error) {
	row := pick(r.db, tx).QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

// GetByIDAndStatus fetches a payment only while it is in status. Inside a
// postgres transaction the row is locked until commit.
func (r *PaymentRepository) GetByIDAndStatus(ctx context.Context, tx *sql.Tx, id string, status types.PaymentStatus) (*types.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND status = $2`
	if tx != nil && r.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}
	row := pick(r.db, tx).QueryRowContext(ctx, query, id, string(status))
	return scanPayment(row)
}

// CountByStatus counts an email's payments with provider in status
func (r *PaymentRepository) CountByStatus(ctx context.Context, email string, provider types.PaymentProvider, status types.PaymentStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE email = $1 AND provider = $2 AND status = $3`,
		email, string(provider), string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return count, nil
}

// SumAmountSince totals the amount of an email's payments to account in
// status created at or after since. Summation happens in Go so both
// dialects keep exact decimal arithmetic.
func (r *PaymentRepository) SumAmountSince(ctx context.Context, email, account string, status types.PaymentStatus, since time.Time) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount FROM payments WHERE email = $1 AND account = $2 AND status = $3 AND created_at >= $4`,
		email, account, string(status), since.UTC(),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

// ListByStatus returns up to limit payments in status, newest first
func (r *PaymentRepository) ListByStatus(ctx context.Context, status types.PaymentStatus, limit int) ([]*types.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = $1 ORDER BY created_at DESC LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*types.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// List returns a filtered page of payments and the total match count
func (r *PaymentRepository) List(ctx context.Context, filter types.PaymentFilter, page types.Pagination) ([]*types.Payment, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		conditions = append(conditions, fmt.Sprintf("email = $%d", len(args)))
	}
	if filter.Account != "" {
		args = append(args, filter.Account)
		conditions = append(conditions, fmt.Sprintf("account = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	order := "ASC"
	if page.Desc {
		order = "DESC"
	}
	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM payments%s ORDER BY created_at %s LIMIT $%d OFFSET $%d`,
		paymentColumns, where, order, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []*types.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	return payments, total, rows.Err()
}

// AttachProviderDetails stores the provider checkout data on a payment that
// is still pending and has no link yet. It reports whether the row was updated.
func (r *PaymentRepository) AttachProviderDetails(ctx context.Context, p *types.Payment) (bool, error) {
	metadata, err := encodeMetadata(p.Metadata)
	if err != nil {
		return false, err
	}

	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET payment_link = $1, provider_transaction_id = $2, metadata = $3, updated_at = $4
		WHERE id = $5 AND status = $6 AND payment_link = ''`,
		p.PaymentLink, p.ProviderTransactionID, metadata, p.UpdatedAt,
		p.ID, string(types.PaymentStatusPending),
	)
	return affected(res, err, "attach provider details")
}

// Transition moves a payment from one status to another, replacing its
// metadata. Zero affected rows means another writer moved it first.
func (r *PaymentRepository) Transition(ctx context.Context, tx *sql.Tx, id string, from, to types.PaymentStatus, metadata types.Metadata) (bool, error) {
	encoded, err := encodeMetadata(metadata)
	if err != nil {
		return false, err
	}

	res, err := pick(r.db, tx).ExecContext(ctx, `
		UPDATE payments SET status = $1, metadata = $2, updated_at = $3
		WHERE id = $4 AND status = $5`,
		string(to), encoded, time.Now().UTC(), id, string(from),
	)
	return affected(res, err, "transition payment")
}

// ApplyDeposit writes the deposit outcome of a payment that is still in from
func (r *PaymentRepository) ApplyDeposit(ctx context.Context, tx *sql.Tx, p *types.Payment, from types.PaymentStatus) (bool, error) {
	metadata, err := encodeMetadata(p.Metadata)
	if err != nil {
		return false, err
	}

	p.UpdatedAt = time.Now().UTC()
	res, err := pick(r.db, tx).ExecContext(ctx, `
		UPDATE payments
		SET status = $1, paid_amount = $2, final_amount = $3, bonus = $4, currency = $5, metadata = $6, updated_at = $7
		WHERE id = $8 AND status = $9`,
		string(p.Status), p.PaidAmount, p.FinalAmount, p.Bonus, p.Currency, metadata, p.UpdatedAt,
		p.ID, string(from),
	)
	return affected(res, err, "apply deposit")
}

func affected(res sql.Result, err error, op string) (bool, error) {
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
