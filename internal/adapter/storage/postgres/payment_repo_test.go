package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerbook/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &domain.Payment{
		ID:         uuid.New(),
		SenderID:   uuid.New(),
		ReceiverID: uuid.New(),
		Amount:     decimal.NewFromInt(50),
		Status:     domain.PaymentStatusCompleted,
		Note:       "lunch",
		Date:       now,
		CreatedAt:  now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(p.ID, p.SenderID, p.ReceiverID, pgxmock.AnyArg(), p.Status, p.Note, p.Date, p.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Create(context.Background(), tx, p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	me, other := uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	myEmail := "me@example.com"
	otherPhone := "+15550003"

	cols := []string{"id", "sender_id", "receiver_id", "amount", "status", "note", "date", "created_at",
		"s_name", "s_email", "s_phone", "r_name", "r_email", "r_phone"}
	rows := pgxmock.NewRows(cols).
		AddRow(uuid.New(), me, other, decimal.NewFromInt(20), domain.PaymentStatusCompleted, "", now, now,
			"Me", &myEmail, (*string)(nil), "Other", (*string)(nil), &otherPhone).
		AddRow(uuid.New(), other, me, decimal.NewFromInt(5), domain.PaymentStatusCompleted, "back", now.Add(-time.Hour), now,
			"Other", (*string)(nil), &otherPhone, "Me", &myEmail, (*string)(nil))

	mock.ExpectQuery("FROM payments p JOIN users s .+ WHERE p.sender_id = .+ OR p.receiver_id = ").
		WithArgs(me).
		WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), me)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sent", got[0].Direction(me))
	assert.Equal(t, "received", got[1].Direction(me))
	assert.Equal(t, other, got[0].Receiver.ID)
	assert.Equal(t, "Other", got[1].Sender.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepo_ListByUser_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepo(mock)
	userID := uuid.New()
	mock.ExpectQuery("FROM payments").
		WithArgs(userID).
		WillReturnError(errors.New("conn reset"))

	_, err = repo.ListByUser(context.Background(), userID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
