package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCustomer(userID uuid.UUID, name string) *domain.Customer {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Customer{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Phone:     "+15550100",
		Balance:   decimal.RequireFromString("90"),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func customerCols() []string {
	return []string{"id", "user_id", "name", "phone", "balance", "created_at", "updated_at"}
}

func customerRow(rows *pgxmock.Rows, c *domain.Customer) *pgxmock.Rows {
	return rows.AddRow(c.ID, c.UserID, c.Name, c.Phone, c.Balance, c.CreatedAt, c.UpdatedAt)
}

func TestCustomerRepo_Create_OnPool(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	c := newTestCustomer(uuid.New(), "Alice")

	mock.ExpectExec("INSERT INTO customers").
		WithArgs(c.ID, c.UserID, c.Name, c.Phone, pgxmock.AnyArg(), c.CreatedAt, c.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), nil, c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_Create_DuplicateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO customers").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "customers_user_name_uq"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, newTestCustomer(uuid.New(), "Bob"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrUniqueViolation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_GetByID_ScopedByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	owner, other := uuid.New(), uuid.New()
	c := newTestCustomer(owner, "Alice")

	mock.ExpectQuery("SELECT .+ FROM customers WHERE id = .+ AND user_id = ").
		WithArgs(c.ID, owner).
		WillReturnRows(customerRow(pgxmock.NewRows(customerCols()), c))
	mock.ExpectQuery("SELECT .+ FROM customers WHERE id = .+ AND user_id = ").
		WithArgs(c.ID, other).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), nil, owner, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, decimal.NewFromInt(90).Equal(got.Balance))

	got, err = repo.GetByID(context.Background(), nil, other, c.ID)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	c := newTestCustomer(uuid.New(), "Alice")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM customers WHERE id .+ FOR UPDATE").
		WithArgs(c.ID, c.UserID).
		WillReturnRows(customerRow(pgxmock.NewRows(customerCols()), c))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	got, err := repo.GetByIDForUpdate(context.Background(), tx, c.UserID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_FindByName_TrimsInput(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	c := newTestCustomer(uuid.New(), "Alice")

	mock.ExpectQuery("SELECT .+ FROM customers WHERE user_id = .+ AND lower.name. = lower").
		WithArgs(c.UserID, "ALICE").
		WillReturnRows(customerRow(pgxmock.NewRows(customerCols()), c))

	got, err := repo.FindByName(context.Background(), nil, c.UserID, "  ALICE ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	owner := uuid.New()
	rows := pgxmock.NewRows(customerCols())
	customerRow(rows, newTestCustomer(owner, "Bob"))
	customerRow(rows, newTestCustomer(owner, "Alice"))

	mock.ExpectQuery("SELECT .+ FROM customers WHERE user_id = .+ ORDER BY created_at DESC").
		WithArgs(owner).
		WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), nil, owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bob", got[0].Name)
}

func TestCustomerRepo_ListByUser_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	owner := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM customers").
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows(customerCols()))

	got, err := repo.ListByUser(context.Background(), nil, owner)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCustomerRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	c := newTestCustomer(uuid.New(), "Alicia")

	mock.ExpectExec("UPDATE customers SET name").
		WithArgs(c.Name, c.Phone, c.UpdatedAt, c.ID, c.UserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE customers SET name").
		WithArgs(c.Name, c.Phone, c.UpdatedAt, c.ID, c.UserID).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectExec("UPDATE customers SET name").
		WithArgs(c.Name, c.Phone, c.UpdatedAt, c.ID, c.UserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.Update(context.Background(), nil, c))

	err = repo.Update(context.Background(), nil, c)
	assert.True(t, errors.Is(err, ports.ErrUniqueViolation))

	err = repo.Update(context.Background(), nil, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	owner, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE customers SET balance").
		WithArgs(pgxmock.AnyArg(), id, owner).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateBalance(context.Background(), tx, owner, id, decimal.NewFromInt(120)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCustomerRepo(mock)
	owner, id := uuid.New(), uuid.New()

	mock.ExpectExec("DELETE FROM customers WHERE id").
		WithArgs(id, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM customers WHERE id").
		WithArgs(id, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.Delete(context.Background(), nil, owner, id))
	assert.Error(t, repo.Delete(context.Background(), nil, owner, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}
