package postgres

import (
	"context"
	"errors"
	"fmt"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const customerColumns = `id, user_id, name, phone, balance, created_at, updated_at`

// CustomerRepo implements ports.CustomerRepository. Every query is scoped
// by user_id.
type CustomerRepo struct {
	pool Pool
}

// NewCustomerRepo creates a new CustomerRepo.
func NewCustomerRepo(pool Pool) *CustomerRepo {
	return &CustomerRepo{pool: pool}
}

// Create inserts a customer. The (user_id, lower(name)) unique index maps to
// ports.ErrUniqueViolation.
func (r *CustomerRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Customer) error {
	query := `INSERT INTO customers (` + customerColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := conn(r.pool, tx).Exec(ctx, query,
		c.ID, c.UserID, c.Name, c.Phone, c.Balance, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert customer: %w", ports.ErrUniqueViolation)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID fetches an owned customer.
func (r *CustomerRepo) GetByID(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND user_id = $2`
	return scanCustomer(conn(r.pool, tx).QueryRow(ctx, query, id, userID))
}

// GetByIDForUpdate fetches an owned customer and locks its row.
func (r *CustomerRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return scanCustomer(tx.QueryRow(ctx, query, id, userID))
}

// FindByName matches the trimmed name case-insensitively.
func (r *CustomerRepo) FindByName(ctx context.Context, tx pgx.Tx, userID uuid.UUID, name string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE user_id = $1 AND lower(name) = lower($2)`
	return scanCustomer(conn(r.pool, tx).QueryRow(ctx, query, userID, domain.NormalizeName(name)))
}

// ListByUser returns the owner's customers, newest first.
func (r *CustomerRepo) ListByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := conn(r.pool, tx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := []domain.Customer{}
	for rows.Next() {
		c, err := scanCustomerFields(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer rows: %w", err)
	}
	return customers, nil
}

// Update writes name and phone.
func (r *CustomerRepo) Update(ctx context.Context, tx pgx.Tx, c *domain.Customer) error {
	query := `UPDATE customers SET name = $1, phone = $2, updated_at = $3 WHERE id = $4 AND user_id = $5`

	tag, err := conn(r.pool, tx).Exec(ctx, query, c.Name, c.Phone, c.UpdatedAt, c.ID, c.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update customer: %w", ports.ErrUniqueViolation)
		}
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer not found: %s", c.ID)
	}
	return nil
}

// UpdateBalance overwrites the cached balance.
func (r *CustomerRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE customers SET balance = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`

	tag, err := conn(r.pool, tx).Exec(ctx, query, balance, id, userID)
	if err != nil {
		return fmt.Errorf("update customer balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer not found: %s", id)
	}
	return nil
}

// Delete removes the customer. transactions.customer_id is ON DELETE SET
// NULL, so linked transactions keep their snapshot name and become unlinked.
func (r *CustomerRepo) Delete(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) error {
	tag, err := conn(r.pool, tx).Exec(ctx, `DELETE FROM customers WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer not found: %s", id)
	}
	return nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	c, err := scanCustomerFields(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return c, nil
}

func scanCustomerFields(row pgx.Row) (*domain.Customer, error) {
	c := &domain.Customer{}
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Balance, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}
