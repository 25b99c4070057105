package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ledgerbook/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	s *Store
}

// NewTransactionRepo creates a TransactionRepo on s.
func NewTransactionRepo(s *Store) *TransactionRepo {
	return &TransactionRepo{s: s}
}

func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	return r.s.inTx(tx, func(st *state) error {
		cp := *t
		cp.CustomerID = copyID(t.CustomerID)
		st.transactions[t.ID] = cp
		return nil
	})
}

func (r *TransactionRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.s.view(nil, func(st *state) error {
		out = findTransaction(st, userID, id)
		return nil
	})
	return out, err
}

func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.s.inTx(tx, func(st *state) error {
		out = findTransaction(st, userID, id)
		return nil
	})
	return out, err
}

func (r *TransactionRepo) Update(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	return r.s.inTx(tx, func(st *state) error {
		cur, ok := st.transactions[t.ID]
		if !ok || cur.UserID != t.UserID {
			return fmt.Errorf("transaction not found: %s", t.ID)
		}
		cur.Amount = t.Amount
		cur.Type = t.Type
		cur.Note = t.Note
		cur.Date = t.Date
		cur.UpdatedAt = t.UpdatedAt
		st.transactions[t.ID] = cur
		return nil
	})
}

func (r *TransactionRepo) Delete(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) error {
	return r.s.inTx(tx, func(st *state) error {
		cur, ok := st.transactions[id]
		if !ok || cur.UserID != userID {
			return fmt.Errorf("transaction not found: %s", id)
		}
		delete(st.transactions, id)
		return nil
	})
}

func (r *TransactionRepo) ListByCustomer(ctx context.Context, tx pgx.Tx, userID, customerID uuid.UUID) ([]domain.Transaction, error) {
	return r.collect(tx, func(t domain.Transaction) bool {
		return t.UserID == userID && t.CustomerID != nil && *t.CustomerID == customerID
	})
}

func (r *TransactionRepo) ListForCustomerView(ctx context.Context, userID, customerID uuid.UUID, name string) ([]domain.Transaction, error) {
	out, err := r.collect(nil, func(t domain.Transaction) bool {
		if t.UserID != userID {
			return false
		}
		return (t.CustomerID != nil && *t.CustomerID == customerID) || t.CustomerName == name
	})
	sortByDateDesc(out)
	return out, err
}

func (r *TransactionRepo) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	out, err := r.collect(nil, func(t domain.Transaction) bool { return inRange(t, filter) })
	sortByDateDesc(out)
	return out, err
}

func (r *TransactionRepo) DistinctUnlinkedNames(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]string, error) {
	seen := map[string]struct{}{}
	var names []string
	err := r.s.view(tx, func(st *state) error {
		for _, t := range st.transactions {
			if t.UserID != userID || t.CustomerID != nil || domain.NormalizeName(t.CustomerName) == "" {
				continue
			}
			if _, ok := seen[t.CustomerName]; ok {
				continue
			}
			seen[t.CustomerName] = struct{}{}
			names = append(names, t.CustomerName)
		}
		return nil
	})
	sort.Strings(names)
	return names, err
}

func (r *TransactionRepo) LinkByName(ctx context.Context, tx pgx.Tx, userID uuid.UUID, name string, customerID uuid.UUID) (int64, error) {
	var n int64
	err := r.s.inTx(tx, func(st *state) error {
		now := time.Now().UTC()
		for id, t := range st.transactions {
			if t.UserID == userID && t.CustomerID == nil && t.CustomerName == name {
				t.CustomerID = copyID(&customerID)
				t.UpdatedAt = now
				st.transactions[id] = t
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *TransactionRepo) SummaryByCustomer(ctx context.Context, filter domain.TransactionFilter) ([]domain.CustomerSummary, error) {
	txns, err := r.collect(nil, func(t domain.Transaction) bool { return inRange(t, filter) })
	if err != nil {
		return nil, err
	}

	byName := map[string]*domain.CustomerSummary{}
	for i := range txns {
		name := domain.NormalizeName(txns[i].CustomerName)
		if name == "" {
			name = domain.CashCustomerName
		}
		s, ok := byName[name]
		if !ok {
			s = &domain.CustomerSummary{CustomerName: name, TotalAmount: decimal.Zero}
			byName[name] = s
		}
		s.TotalAmount = s.TotalAmount.Add(txns[i].Signed())
		if txns[i].Date.After(s.LastTransaction) {
			s.LastTransaction = txns[i].Date
		}
	}

	out := make([]domain.CustomerSummary, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastTransaction.After(out[j].LastTransaction) })
	return out, nil
}

func (r *TransactionRepo) MonthlySummary(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.MonthlySummary, error) {
	txns, err := r.collect(nil, func(t domain.Transaction) bool {
		return t.UserID == userID && !t.Date.Before(since)
	})
	if err != nil {
		return nil, err
	}

	type ym struct{ y, m int }
	byMonth := map[ym]*domain.MonthlySummary{}
	for i := range txns {
		d := txns[i].Date.UTC()
		k := ym{d.Year(), int(d.Month())}
		s, ok := byMonth[k]
		if !ok {
			s = &domain.MonthlySummary{Year: k.y, Month: k.m, Credit: decimal.Zero, Debit: decimal.Zero}
			byMonth[k] = s
		}
		if txns[i].Type == domain.TransactionTypeDebit {
			s.Debit = s.Debit.Add(txns[i].Amount)
		} else {
			s.Credit = s.Credit.Add(txns[i].Amount)
		}
	}

	out := make([]domain.MonthlySummary, 0, len(byMonth))
	for _, s := range byMonth {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (r *TransactionRepo) collect(tx pgx.Tx, keep func(domain.Transaction) bool) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	err := r.s.view(tx, func(st *state) error {
		for _, t := range st.transactions {
			if keep(t) {
				t.CustomerID = copyID(t.CustomerID)
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

func findTransaction(st *state, userID, id uuid.UUID) *domain.Transaction {
	t, ok := st.transactions[id]
	if !ok || t.UserID != userID {
		return nil
	}
	t.CustomerID = copyID(t.CustomerID)
	return &t
}

func inRange(t domain.Transaction, f domain.TransactionFilter) bool {
	if t.UserID != f.UserID {
		return false
	}
	if f.From != nil && t.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && t.Date.After(*f.To) {
		return false
	}
	return true
}

func sortByDateDesc(txns []domain.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
}
