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

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	s *Store
}

// NewUserRepo creates a UserRepo on s.
func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{s: s}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.s.view(nil, func(st *state) error {
		for _, existing := range st.users {
			if sameIdentifier(existing.Email, u.Email) || sameIdentifier(existing.Phone, u.Phone) {
				return fmt.Errorf("insert user: %w", ports.ErrUniqueViolation)
			}
		}
		st.users[u.ID] = copyUser(*u)
		return nil
	})
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	err := r.s.view(nil, func(st *state) error {
		out = findUser(st, id)
		return nil
	})
	return out, err
}

func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	var out *domain.User
	err := r.s.view(nil, func(st *state) error {
		for _, u := range st.users {
			if (u.Email != nil && *u.Email == identifier) || (u.Phone != nil && *u.Phone == identifier) {
				c := copyUser(u)
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *UserRepo) ListExcept(ctx context.Context, id uuid.UUID) ([]domain.User, error) {
	var out []domain.User
	err := r.s.view(nil, func(st *state) error {
		for _, u := range st.users {
			if u.ID != id {
				out = append(out, copyUser(u))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *UserRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var users []domain.User
	err := r.s.view(nil, func(st *state) error {
		for _, u := range st.users {
			users = append(users, u)
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, err
}

func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	err := r.s.inTx(tx, func(st *state) error {
		out = findUser(st, id)
		return nil
	})
	return out, err
}

func (r *UserRepo) UpdateWalletBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	return r.s.inTx(tx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return fmt.Errorf("user not found: %s", id)
		}
		u.WalletBalance = balance
		u.UpdatedAt = time.Now().UTC()
		st.users[id] = u
		return nil
	})
}

func findUser(st *state, id uuid.UUID) *domain.User {
	u, ok := st.users[id]
	if !ok {
		return nil
	}
	c := copyUser(u)
	return &c
}

func copyUser(u domain.User) domain.User {
	u.Email = copyStr(u.Email)
	u.Phone = copyStr(u.Phone)
	return u
}

func sameIdentifier(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
