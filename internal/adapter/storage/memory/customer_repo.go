package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CustomerRepo implements ports.CustomerRepository.
type CustomerRepo struct {
	s *Store
}

// NewCustomerRepo creates a CustomerRepo on s.
func NewCustomerRepo(s *Store) *CustomerRepo {
	return &CustomerRepo{s: s}
}

func (r *CustomerRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Customer) error {
	return r.s.view(tx, func(st *state) error {
		if nameTaken(st, c.UserID, c.Name, uuid.Nil) {
			return fmt.Errorf("insert customer: %w", ports.ErrUniqueViolation)
		}
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *CustomerRepo) GetByID(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.s.view(tx, func(st *state) error {
		out = findCustomer(st, userID, id)
		return nil
	})
	return out, err
}

func (r *CustomerRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.s.inTx(tx, func(st *state) error {
		out = findCustomer(st, userID, id)
		return nil
	})
	return out, err
}

func (r *CustomerRepo) FindByName(ctx context.Context, tx pgx.Tx, userID uuid.UUID, name string) (*domain.Customer, error) {
	var out *domain.Customer
	key := domain.NameKey(name)
	err := r.s.view(tx, func(st *state) error {
		for _, c := range st.customers {
			if c.UserID == userID && domain.NameKey(c.Name) == key {
				cp := c
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *CustomerRepo) ListByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]domain.Customer, error) {
	out := []domain.Customer{}
	err := r.s.view(tx, func(st *state) error {
		for _, c := range st.customers {
			if c.UserID == userID {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *CustomerRepo) Update(ctx context.Context, tx pgx.Tx, c *domain.Customer) error {
	return r.s.view(tx, func(st *state) error {
		cur, ok := st.customers[c.ID]
		if !ok || cur.UserID != c.UserID {
			return fmt.Errorf("customer not found: %s", c.ID)
		}
		if nameTaken(st, c.UserID, c.Name, c.ID) {
			return fmt.Errorf("update customer: %w", ports.ErrUniqueViolation)
		}
		cur.Name = c.Name
		cur.Phone = c.Phone
		cur.UpdatedAt = c.UpdatedAt
		st.customers[c.ID] = cur
		return nil
	})
}

func (r *CustomerRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID, balance decimal.Decimal) error {
	return r.s.view(tx, func(st *state) error {
		cur, ok := st.customers[id]
		if !ok || cur.UserID != userID {
			return fmt.Errorf("customer not found: %s", id)
		}
		cur.Balance = balance
		cur.UpdatedAt = time.Now().UTC()
		st.customers[id] = cur
		return nil
	})
}

// Delete removes the customer and unlinks its transactions, keeping their
// snapshot names.
func (r *CustomerRepo) Delete(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) error {
	return r.s.view(tx, func(st *state) error {
		cur, ok := st.customers[id]
		if !ok || cur.UserID != userID {
			return fmt.Errorf("customer not found: %s", id)
		}
		delete(st.customers, id)
		for tid, t := range st.transactions {
			if t.CustomerID != nil && *t.CustomerID == id {
				t.CustomerID = nil
				st.transactions[tid] = t
			}
		}
		return nil
	})
}

func findCustomer(st *state, userID, id uuid.UUID) *domain.Customer {
	c, ok := st.customers[id]
	if !ok || c.UserID != userID {
		return nil
	}
	return &c
}

func nameTaken(st *state, userID uuid.UUID, name string, except uuid.UUID) bool {
	key := domain.NameKey(name)
	for _, c := range st.customers {
		if c.UserID == userID && c.ID != except && domain.NameKey(c.Name) == key {
			return true
		}
	}
	return false
}
