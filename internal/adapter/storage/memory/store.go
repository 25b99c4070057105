// Package memory is an in-process implementation of the ledger store ports.
// All state lives behind one mutex. A transaction holds that mutex from
// Begin until Commit or Rollback and restores a snapshot on Rollback, so
// transactions are fully serialized.
package memory

import (
	"context"
	"errors"
	"sync"

	"ledgerbook/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errNoTx = errors.New("memory: operation requires a transaction from this store")

type state struct {
	users        map[uuid.UUID]domain.User
	customers    map[uuid.UUID]domain.Customer
	transactions map[uuid.UUID]domain.Transaction
	payments     map[uuid.UUID]domain.Payment
	idempotency  map[string]domain.IdempotencyLog
	audit        []domain.AuditLog
}

func newState() *state {
	return &state{
		users:        make(map[uuid.UUID]domain.User),
		customers:    make(map[uuid.UUID]domain.Customer),
		transactions: make(map[uuid.UUID]domain.Transaction),
		payments:     make(map[uuid.UUID]domain.Payment),
		idempotency:  make(map[string]domain.IdempotencyLog),
	}
}

// clone copies every map. Stored values are never mutated in place, so a
// shallow copy of each value is a faithful snapshot.
func (s *state) clone() *state {
	c := &state{
		users:        make(map[uuid.UUID]domain.User, len(s.users)),
		customers:    make(map[uuid.UUID]domain.Customer, len(s.customers)),
		transactions: make(map[uuid.UUID]domain.Transaction, len(s.transactions)),
		payments:     make(map[uuid.UUID]domain.Payment, len(s.payments)),
		idempotency:  make(map[string]domain.IdempotencyLog, len(s.idempotency)),
		audit:        append([]domain.AuditLog(nil), s.audit...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	return c
}

// Store holds all in-memory state and implements ports.DBTransactor.
type Store struct {
	mu sync.Mutex
	st *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// Begin locks the store and snapshots it.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memTx{store: s, snapshot: s.st.clone()}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "memory"
}

// view runs fn against the live state. Inside a transaction of this store
// the lock is already held.
func (s *Store) view(tx pgx.Tx, fn func(st *state) error) error {
	if mt, ok := tx.(*memTx); ok && mt.store == s && !mt.done {
		return fn(s.st)
	}
	if tx != nil {
		return errNoTx
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// inTx is view for operations that must run inside a transaction.
func (s *Store) inTx(tx pgx.Tx, fn func(st *state) error) error {
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s || mt.done {
		return errNoTx
	}
	return fn(s.st)
}

// memTx satisfies pgx.Tx for the services. Only Commit and Rollback are
// meaningful; repositories of this package never issue SQL on it.
type memTx struct {
	pgx.Tx
	store    *Store
	snapshot *state
	done     bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.snapshot = nil
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.st = t.snapshot
	t.snapshot = nil
	t.store.mu.Unlock()
	return nil
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
