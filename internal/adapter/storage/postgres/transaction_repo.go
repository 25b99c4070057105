package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerbook/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, user_id, customer_id, customer_name, amount, type, note, date, created_at, updated_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.UserID, t.CustomerID, t.CustomerName,
		t.Amount, t.Type, t.Note, t.Date,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches an owned transaction.
func (r *TransactionRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`
	return scanTransaction(r.pool.QueryRow(ctx, query, id, userID))
}

// GetByIDForUpdate fetches an owned transaction and locks its row.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return scanTransaction(tx.QueryRow(ctx, query, id, userID))
}

// Update writes the mutable fields. customer_id and customer_name are never
// touched here.
func (r *TransactionRepo) Update(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `UPDATE transactions SET amount = $1, type = $2, note = $3, date = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7`

	tag, err := tx.Exec(ctx, query, t.Amount, t.Type, t.Note, t.Date, t.UpdatedAt, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", t.ID)
	}
	return nil
}

// Delete removes an owned transaction.
func (r *TransactionRepo) Delete(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// ListByCustomer returns the transactions linked to customerID by identity.
func (r *TransactionRepo) ListByCustomer(ctx context.Context, tx pgx.Tx, userID, customerID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND customer_id = $2`
	return collectTransactions(conn(r.pool, tx).Query(ctx, query, userID, customerID))
}

// ListForCustomerView matches by identity or exact snapshot name in one
// query, so a row matching both appears once.
func (r *TransactionRepo) ListForCustomerView(ctx context.Context, userID, customerID uuid.UUID, name string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = $1 AND (customer_id = $2 OR customer_name = $3)
		ORDER BY date DESC, created_at DESC`
	return collectTransactions(r.pool.Query(ctx, query, userID, customerID, name))
}

// List returns the owner's transactions in the optional inclusive date range.
func (r *TransactionRepo) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	where, args := dateRangeWhere(filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions ` + where + ` ORDER BY date DESC, created_at DESC`
	return collectTransactions(r.pool.Query(ctx, query, args...))
}

// DistinctUnlinkedNames returns snapshot names of transactions with no
// customer link, skipping blank names.
func (r *TransactionRepo) DistinctUnlinkedNames(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]string, error) {
	query := `SELECT DISTINCT customer_name FROM transactions
		WHERE user_id = $1 AND customer_id IS NULL AND btrim(customer_name) <> ''
		ORDER BY customer_name`

	rows, err := conn(r.pool, tx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlinked names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan unlinked name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unlinked names: %w", err)
	}
	return names, nil
}

// LinkByName sets customer_id on unlinked transactions whose snapshot is
// exactly name. Already linked rows are never relinked.
func (r *TransactionRepo) LinkByName(ctx context.Context, tx pgx.Tx, userID uuid.UUID, name string, customerID uuid.UUID) (int64, error) {
	query := `UPDATE transactions SET customer_id = $1, updated_at = NOW()
		WHERE user_id = $2 AND customer_id IS NULL AND customer_name = $3`

	tag, err := tx.Exec(ctx, query, customerID, userID, name)
	if err != nil {
		return 0, fmt.Errorf("link transactions by name: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SummaryByCustomer groups signed totals by snapshot name. Blank names fall
// into the cash bucket.
func (r *TransactionRepo) SummaryByCustomer(ctx context.Context, filter domain.TransactionFilter) ([]domain.CustomerSummary, error) {
	where, args := dateRangeWhere(filter)
	query := `SELECT COALESCE(NULLIF(btrim(customer_name), ''), 'Cash Transactions') AS customer_name,
		SUM(CASE WHEN type = 'credit' THEN amount ELSE -amount END) AS total_amount,
		MAX(date) AS last_transaction
		FROM transactions ` + where + `
		GROUP BY 1
		ORDER BY last_transaction DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize transactions: %w", err)
	}
	defer rows.Close()

	summaries := []domain.CustomerSummary{}
	for rows.Next() {
		var s domain.CustomerSummary
		if err := rows.Scan(&s.CustomerName, &s.TotalAmount, &s.LastTransaction); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return summaries, nil
}

// MonthlySummary aggregates credits and debits per calendar month since the
// given instant, oldest month first.
func (r *TransactionRepo) MonthlySummary(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.MonthlySummary, error) {
	query := `SELECT EXTRACT(YEAR FROM date)::int AS year,
		EXTRACT(MONTH FROM date)::int AS month,
		COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0) AS credit,
		COALESCE(SUM(amount) FILTER (WHERE type = 'debit'), 0) AS debit
		FROM transactions
		WHERE user_id = $1 AND date >= $2
		GROUP BY 1, 2
		ORDER BY 1, 2`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}
	defer rows.Close()

	months := []domain.MonthlySummary{}
	for rows.Next() {
		var m domain.MonthlySummary
		if err := rows.Scan(&m.Year, &m.Month, &m.Credit, &m.Debit); err != nil {
			return nil, fmt.Errorf("scan monthly row: %w", err)
		}
		months = append(months, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly rows: %w", err)
	}
	return months, nil
}

func dateRangeWhere(filter domain.TransactionFilter) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{filter.UserID}

	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func collectTransactions(rows pgx.Rows, err error) ([]domain.Transaction, error) {
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransactionFields(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t, err := scanTransactionFields(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

func scanTransactionFields(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.CustomerID, &t.CustomerName,
		&t.Amount, &t.Type, &t.Note, &t.Date,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
