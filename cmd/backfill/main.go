// Command backfill links transactions that carry only a customer name to
// customer records and recomputes every affected balance. It is safe to
// run repeatedly.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ledgerbook/config"
	"ledgerbook/internal/app"
	"ledgerbook/internal/core/domain"
	"ledgerbook/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type options struct {
	configPath string
	user       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "backfill: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// parseFlags binds explicitly set flags into v so they win over file and
// environment values.
func parseFlags(args []string, v *viper.Viper) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("backfill", pflag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	fs.StringVar(&opts.user, "user", "", "backfill a single user id (default: every user)")
	fs.String("storage-driver", "", "override storage.driver (postgres, memory)")
	fs.String("log-level", "", "override log.level")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	for key, flag := range map[string]string{"storage.driver": "storage-driver", "log.level": "log-level"} {
		if f := fs.Lookup(flag); f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return opts, err
			}
		}
	}
	return opts, nil
}

func run(ctx context.Context, args []string) error {
	v := viper.New()
	opts, err := parseFlags(args, v)
	if err != nil {
		return err
	}

	var userID uuid.UUID
	if opts.user != "" {
		if userID, err = uuid.Parse(opts.user); err != nil {
			return fmt.Errorf("invalid --user %q: %w", opts.user, err)
		}
	}

	cfg, err := config.LoadWith(v, opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Component(logger.New(cfg.Log.Level, cfg.Log.Pretty), "backfill")

	st, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	// Backfill never touches the transfer cache.
	svc := app.NewServices(cfg, st, nil, log)

	var reports []domain.BackfillReport
	if opts.user != "" {
		report, err := svc.Customer.Backfill(ctx, userID)
		if err != nil {
			return err
		}
		reports = append(reports, *report)
	} else {
		reports, err = svc.Customer.BackfillAll(ctx)
		if err != nil {
			log.Error().Err(err).Int("users_done", len(reports)).Msg("backfill stopped")
			return err
		}
	}

	logReports(log, reports)
	return nil
}

func logReports(log zerolog.Logger, reports []domain.BackfillReport) {
	var created int
	var linked int64
	for _, r := range reports {
		created += r.CustomersCreated
		linked += r.TransactionsLinked
	}
	log.Info().
		Int("users", len(reports)).
		Int("customers_created", created).
		Int64("transactions_linked", linked).
		Msg("backfill complete")
}
