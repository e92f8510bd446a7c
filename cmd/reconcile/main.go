// Command reconcile converges passenger payment state with paid payments and
// resolves stale pending payments. It runs the same jobs as the admin
// reconcile endpoints, from a shell or a cron entry.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"tripbook/internal/cache"
	intconfig "tripbook/internal/config"
	"tripbook/internal/repositories"
	"tripbook/internal/services"
	"tripbook/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "reconcile",
		Short:   "Payment reconciliation jobs",
		Version: Version,
	}
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Minute, "Overall job timeout")

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(syncPaymentCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withService connects to the store and runs fn with a ready service.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc services.ReconciliationService) (any, error)) error {
	env := intconfig.LoadEnv()
	logger, err := utils.InitLogger(env.IsProduction())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := intconfig.ConnectDB(env.DBDSN, env.DBMaxOpenConns)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer intconfig.CloseDB()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	svc := services.ReconciliationService{
		Payments:   repositories.PaymentRepository{DB: db},
		Passengers: repositories.PassengerRepository{DB: db},
		Logger:     logger,
		RequestID:  "cli-" + cmd.Name(),
	}
	if store, closeFn := statusStore(ctx, env, logger); store != nil {
		defer closeFn()
		svc.Cache = store
	}
	out, err := fn(ctx, svc)
	if err != nil {
		logger.Error("reconcile job failed", zap.String("job", cmd.Name()), zap.Error(err))
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// statusStore connects the payment status cache so CLI transitions invalidate
// it like the server does. It returns nil when Redis is off or unreachable.
func statusStore(ctx context.Context, env intconfig.Env, logger *zap.Logger) (services.StatusStore, func()) {
	if !env.RedisEnabled() {
		return nil, func() {}
	}
	rdb, err := cache.NewRedisClient(ctx, env.RedisAddr, env.RedisPassword, env.RedisCacheDB)
	if err != nil {
		logger.Warn("redis tidak tersedia; cache status tidak diinvalidasi", zap.Error(err))
		return nil, func() {}
	}
	return cache.NewStatusCache(rdb), func() { _ = rdb.Close() }
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Force every passenger of every paid payment to Paid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc services.ReconciliationService) (any, error) {
				return svc.SyncPaidPayments(ctx)
			})
		},
	}
}

func syncPaymentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-payment [payment-id]",
		Short: "Re-apply one paid payment to its passengers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc services.ReconciliationService) (any, error) {
				n, err := svc.SyncPayment(ctx, args[0])
				return map[string]any{"paymentId": args[0], "passengersUpdated": n}, err
			})
		},
	}
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report drift between the latest payment and its passengers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, _ := cmd.Flags().GetBool("strict")
			return withService(cmd, func(ctx context.Context, svc services.ReconciliationService) (any, error) {
				rep, err := svc.CheckLatest(ctx)
				if err == nil && strict && !rep.InSync {
					return rep, fmt.Errorf("payment %s out of sync", rep.PaymentID)
				}
				return rep, err
			})
		},
	}
	cmd.Flags().Bool("strict", false, "Exit non-zero when drift is found")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire or fail pending payments the gateway will never complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc services.ReconciliationService) (any, error) {
				return svc.SweepStale(ctx, utils.NowUTC())
			})
		},
	}
}
