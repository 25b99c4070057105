// Package app assembles storage and services from configuration. Both the
// API server and the backfill command start from here.
package app

import (
	"context"
	"fmt"

	"ledgerbook/config"
	"ledgerbook/internal/adapter/storage/memory"
	pgStorage "ledgerbook/internal/adapter/storage/postgres"
	redisStorage "ledgerbook/internal/adapter/storage/redis"
	"ledgerbook/internal/core/ports"
	"ledgerbook/internal/service"
	"ledgerbook/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Storage is the set of repositories behind one storage driver.
type Storage struct {
	Users       ports.UserRepository
	Customers   ports.CustomerRepository
	Txns        ports.TransactionRepository
	Payments    ports.PaymentRepository
	Idempotency ports.IdempotencyRepository
	Audit       ports.AuditRepository
	Transactor  ports.DBTransactor
	Health      ports.HealthChecker

	close func()
}

// Close releases the driver's resources.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects the configured driver. The postgres driver applies
// the schema when database.auto_migrate is set.
func OpenStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store := memory.New()
		log.Warn().Msg("using in-memory storage, data is lost on exit")
		return &Storage{
			Users:       memory.NewUserRepo(store),
			Customers:   memory.NewCustomerRepo(store),
			Txns:        memory.NewTransactionRepo(store),
			Payments:    memory.NewPaymentRepo(store),
			Idempotency: memory.NewIdempotencyRepo(store),
			Audit:       memory.NewAuditRepo(store),
			Transactor:  store,
			Health:      store,
		}, nil

	case config.StorageDriverPostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := pgStorage.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Storage{
			Users:       pgStorage.NewUserRepo(pool),
			Customers:   pgStorage.NewCustomerRepo(pool),
			Txns:        pgStorage.NewTransactionRepo(pool),
			Payments:    pgStorage.NewPaymentRepo(pool),
			Idempotency: pgStorage.NewIdempotencyRepo(pool),
			Audit:       pgStorage.NewAuditRepo(pool),
			Transactor:  pgStorage.NewTransactor(pool),
			Health:      pgStorage.NewHealthCheck(pool),
			close:       pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// OpenRedis connects redis when enabled. A nil client means the redis
// features (transfer cache, rate limiting) are off.
func OpenRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*goredis.Client, error) {
	if !cfg.Redis.Enabled {
		log.Info().Msg("redis disabled")
		return nil, nil
	}
	return redisStorage.NewClient(ctx, cfg.Redis, log)
}

// Services holds the business services built on one Storage.
type Services struct {
	Auth     ports.AuthService
	Customer ports.CustomerService
	Ledger   ports.LedgerService
	Wallet   ports.WalletService
	Audit    ports.AuditService
	Token    ports.TokenService
}

// NewServices builds every service. rdb may be nil.
func NewServices(cfg *config.Config, st *Storage, rdb *goredis.Client, log zerolog.Logger) *Services {
	var cache ports.IdempotencyCache
	if rdb != nil {
		cache = redisStorage.NewIdempotencyCache(rdb)
	}

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	recalc := service.NewBalanceRecalculator(st.Customers, st.Txns, logger.Component(log, "balance"))
	customerSvc := service.NewCustomerService(st.Customers, st.Txns, st.Users, recalc, st.Transactor, logger.Component(log, "customer"))

	return &Services{
		Auth:     service.NewAuthService(st.Users, service.NewArgon2HashService(), tokenSvc, logger.Component(log, "auth")),
		Customer: customerSvc,
		Ledger: service.NewLedgerService(st.Txns, st.Customers, customerSvc, recalc, st.Transactor,
			cfg.Ledger.SummaryMonths, logger.Component(log, "ledger")),
		Wallet: service.NewWalletService(st.Users, st.Payments, st.Idempotency, cache, st.Transactor,
			cfg.Wallet.IdempotencyTTL, logger.Component(log, "wallet")),
		Audit: service.NewAuditService(st.Audit, logger.Component(log, "audit")),
		Token: tokenSvc,
	}
}
