package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"
	"ledgerbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultIdempotencyTTL is how long a transfer result stays in the cache.
const DefaultIdempotencyTTL = 24 * time.Hour

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	userRepo       ports.UserRepository
	paymentRepo    ports.PaymentRepository
	idempRepo      ports.IdempotencyRepository
	idempCache     ports.IdempotencyCache // nil without redis
	transactor     ports.DBTransactor
	idempotencyTTL time.Duration
	log            zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl. idempCache may be nil.
func NewWalletService(
	userRepo ports.UserRepository,
	paymentRepo ports.PaymentRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	idempotencyTTL time.Duration,
	log zerolog.Logger,
) *WalletServiceImpl {
	if idempotencyTTL <= 0 {
		idempotencyTTL = DefaultIdempotencyTTL
	}
	return &WalletServiceImpl{
		userRepo:       userRepo,
		paymentRepo:    paymentRepo,
		idempRepo:      idempRepo,
		idempCache:     idempCache,
		transactor:     transactor,
		idempotencyTTL: idempotencyTTL,
		log:            log,
	}
}

// Transfer moves amount from the sender's wallet to the receiver's. Both
// user rows are locked in id order and the sender's balance is checked again
// under the lock, so concurrent transfers can never overdraw.
func (s *WalletServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.TransferResult, error) {
	if req.ReceiverID == nil || !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidRequest("receiver and a positive amount are required")
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildTransferIdempotencyKey(req.SenderID, req.IdempotencyKey)
		if res, err := s.replay(ctx, idempKey); res != nil || err != nil {
			return res, err
		}
	}

	receiver, err := s.userRepo.GetByID(ctx, *req.ReceiverID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find receiver: %w", err))
	}
	if receiver == nil {
		return nil, apperror.ErrReceiverNotFound()
	}
	if receiver.ID == req.SenderID {
		return nil, apperror.ErrSelfTransfer()
	}

	sender, err := s.userRepo.GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find sender: %w", err))
	}
	if sender == nil {
		return nil, apperror.ErrNotFound("user")
	}
	if !sender.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sender, receiver, err = s.lockPair(ctx, dbTx, req.SenderID, *req.ReceiverID)
	if err != nil {
		return nil, err
	}
	if !sender.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	newSenderBalance := sender.WalletBalance.Sub(req.Amount)
	if err := s.userRepo.UpdateWalletBalance(ctx, dbTx, sender.ID, newSenderBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit sender: %w", err))
	}
	if err := s.userRepo.UpdateWalletBalance(ctx, dbTx, receiver.ID, receiver.WalletBalance.Add(req.Amount)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit receiver: %w", err))
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		ID:         uuid.New(),
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Amount:     req.Amount,
		Status:     domain.PaymentStatusCompleted,
		Note:       req.Note,
		Date:       now,
		CreatedAt:  now,
	}
	if err := s.paymentRepo.Create(ctx, dbTx, &payment); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	result := &domain.TransferResult{NewBalance: newSenderBalance, Payment: payment}

	var respJSON []byte
	if idempKey != "" {
		respJSON, err = json.Marshal(result)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		entry := &domain.IdempotencyLog{Key: idempKey, PaymentID: payment.ID, ResponseJSON: respJSON, CreatedAt: now}
		if err := s.idempRepo.Create(ctx, dbTx, entry); err != nil {
			if errors.Is(err, ports.ErrUniqueViolation) {
				// A concurrent request with the same key committed first.
				_ = dbTx.Rollback(ctx)
				return s.replay(ctx, idempKey)
			}
			return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" && s.idempCache != nil {
		if err := s.idempCache.Set(ctx, idempKey, respJSON, s.idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
		}
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("sender_id", sender.ID.String()).
		Str("receiver_id", receiver.ID.String()).
		Str("amount", req.Amount.String()).
		Msg("transfer completed")

	return result, nil
}

// lockPair locks both users in ascending id order.
func (s *WalletServiceImpl) lockPair(ctx context.Context, tx pgx.Tx, senderID, receiverID uuid.UUID) (*domain.User, *domain.User, error) {
	first, second := senderID, receiverID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	locked := make(map[uuid.UUID]*domain.User, 2)
	for _, id := range []uuid.UUID{first, second} {
		u, err := s.userRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("lock user: %w", err))
		}
		locked[id] = u
	}

	if locked[receiverID] == nil {
		return nil, nil, apperror.ErrReceiverNotFound()
	}
	if locked[senderID] == nil {
		return nil, nil, apperror.ErrNotFound("user")
	}
	return locked[senderID], locked[receiverID], nil
}

// replay returns the stored result for key, checking redis first and the
// database log second. (nil, nil) means the key is unused.
func (s *WalletServiceImpl) replay(ctx context.Context, key string) (*domain.TransferResult, error) {
	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return decodeTransferResult(cached)
		}
	}

	entry, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if entry == nil {
		return nil, nil
	}
	return decodeTransferResult(entry.ResponseJSON)
}

func decodeTransferResult(data []byte) (*domain.TransferResult, error) {
	var res domain.TransferResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached transfer: %w", err))
	}
	return &res, nil
}

// Topup credits the user's own wallet.
func (s *WalletServiceImpl) Topup(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperror.ErrInvalidRequest("a positive amount is required")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	user, err := s.userRepo.GetByIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("lock user: %w", err))
	}
	if user == nil {
		return decimal.Zero, apperror.ErrNotFound("user")
	}

	newBalance := user.WalletBalance.Add(amount)
	if err := s.userRepo.UpdateWalletBalance(ctx, dbTx, userID, newBalance); err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("user_id", userID.String()).Str("amount", amount.String()).Msg("wallet topped up")
	return newBalance, nil
}

func (s *WalletServiceImpl) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return decimal.Zero, apperror.ErrNotFound("user")
	}
	return user.WalletBalance, nil
}

func (s *WalletServiceImpl) History(ctx context.Context, userID uuid.UUID) ([]domain.PaymentRecord, error) {
	records, err := s.paymentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list payments: %w", err))
	}
	return records, nil
}

// Recipients lists every other user as a possible transfer target.
func (s *WalletServiceImpl) Recipients(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	users, err := s.userRepo.ListExcept(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list users: %w", err))
	}
	return users, nil
}
