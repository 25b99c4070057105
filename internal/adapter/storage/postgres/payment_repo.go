package postgres

import (
	"context"
	"fmt"

	"ledgerbook/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a payment within a database transaction.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	query := `INSERT INTO payments (id, sender_id, receiver_id, amount, status, note, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.SenderID, p.ReceiverID, p.Amount, p.Status, p.Note, p.Date, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// ListByUser returns payments the user sent or received, joined with both
// parties, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentRecord, error) {
	query := `SELECT p.id, p.sender_id, p.receiver_id, p.amount, p.status, p.note, p.date, p.created_at,
		s.name, s.email, s.phone, rc.name, rc.email, rc.phone
		FROM payments p
		JOIN users s ON s.id = p.sender_id
		JOIN users rc ON rc.id = p.receiver_id
		WHERE p.sender_id = $1 OR p.receiver_id = $1
		ORDER BY p.date DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	records := []domain.PaymentRecord{}
	for rows.Next() {
		var rec domain.PaymentRecord
		err := rows.Scan(
			&rec.ID, &rec.SenderID, &rec.ReceiverID, &rec.Amount, &rec.Status, &rec.Note, &rec.Date, &rec.CreatedAt,
			&rec.Sender.Name, &rec.Sender.Email, &rec.Sender.Phone,
			&rec.Receiver.Name, &rec.Receiver.Email, &rec.Receiver.Phone,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		rec.Sender.ID = rec.SenderID
		rec.Receiver.ID = rec.ReceiverID
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return records, nil
}
