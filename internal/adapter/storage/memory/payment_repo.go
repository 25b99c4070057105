package memory

import (
	"context"
	"fmt"
	"sort"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	s *Store
}

// NewPaymentRepo creates a PaymentRepo on s.
func NewPaymentRepo(s *Store) *PaymentRepo {
	return &PaymentRepo{s: s}
}

func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	return r.s.inTx(tx, func(st *state) error {
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *PaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentRecord, error) {
	out := []domain.PaymentRecord{}
	err := r.s.view(nil, func(st *state) error {
		for _, p := range st.payments {
			if p.SenderID != userID && p.ReceiverID != userID {
				continue
			}
			out = append(out, domain.PaymentRecord{
				Payment:  p,
				Sender:   party(st, p.SenderID),
				Receiver: party(st, p.ReceiverID),
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, err
}

func party(st *state, id uuid.UUID) domain.PaymentParty {
	u := st.users[id]
	return domain.PaymentParty{ID: id, Name: u.Name, Email: copyStr(u.Email), Phone: copyStr(u.Phone)}
}

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	s *Store
}

// NewIdempotencyRepo creates an IdempotencyRepo on s.
func NewIdempotencyRepo(s *Store) *IdempotencyRepo {
	return &IdempotencyRepo{s: s}
}

func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	return r.s.inTx(tx, func(st *state) error {
		if _, ok := st.idempotency[log.Key]; ok {
			return fmt.Errorf("insert idempotency log: %w", ports.ErrUniqueViolation)
		}
		cp := *log
		cp.ResponseJSON = append([]byte(nil), log.ResponseJSON...)
		st.idempotency[log.Key] = cp
		return nil
	})
}

func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	var out *domain.IdempotencyLog
	err := r.s.view(nil, func(st *state) error {
		if l, ok := st.idempotency[key]; ok {
			out = &l
		}
		return nil
	})
	return out, err
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	s *Store
}

// NewAuditRepo creates an AuditRepo on s.
func NewAuditRepo(s *Store) *AuditRepo {
	return &AuditRepo{s: s}
}

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.s.view(nil, func(st *state) error {
		st.audit = append(st.audit, *log)
		return nil
	})
}

// Entries returns a copy of the recorded audit log.
func (r *AuditRepo) Entries() []domain.AuditLog {
	var out []domain.AuditLog
	_ = r.s.view(nil, func(st *state) error {
		out = append(out, st.audit...)
		return nil
	})
	return out
}
