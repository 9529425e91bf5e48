package leasepay

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tn-tools/leasepay/internal/cache"
	"github.com/tn-tools/leasepay/internal/client"
	"github.com/tn-tools/leasepay/internal/config"
	"github.com/tn-tools/leasepay/internal/metrics"
	"github.com/tn-tools/leasepay/internal/runner"
)

const defaultRequestTimeout = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch blocks, rebuild the lease ledger, and write the payment file",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg config.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			return errors.WithMessage(err, "decoding configuration")
		}
		if err := cfg.Validate(); err != nil {
			return errors.WithMessage(err, "invalid configuration")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := newStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		r := runner.New(cfg, client.New(cfg.Node, cfg.RequestTimeout), store)
		r.ShowProgress = true

		if cfg.MetricsListen == "" {
			return r.Run(ctx)
		}

		// Serve /metrics for the lifetime of the run; both sides tear
		// down together.
		runCtx, cancel := context.WithCancel(ctx)
		g, gctx := errgroup.WithContext(runCtx)
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsListen)
		})
		g.Go(func() error {
			defer cancel()
			return r.Run(gctx)
		})
		return g.Wait()
	},
}

func newStore(cfg config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.BackendPostgres:
		return cache.NewPostgresStore(cfg.PostgresDSN)
	default:
		return cache.NewFileStore(cfg.CacheFile), nil
	}
}

func init() {
	runCmd.Flags().String("address", "", "Beneficiary node address to distribute from")
	runCmd.Flags().String("alias", "", "Alias of the beneficiary address")
	runCmd.Flags().String("chain-id", "L", "Network byte used in alias recipient encodings")
	runCmd.Flags().Uint64("start-height", 149634, "First height eligible for distribution")
	runCmd.Flags().Uint64("end-height", 0, "Last height (inclusive) to process")
	runCmd.Flags().Float64("token-per-block", 10, "Token emission distributed per forged block")
	runCmd.Flags().Float64("fee-percentage", 90, "Percentage of the smoothed fee pool to distribute")
	runCmd.Flags().String("output", "payment.json", "Payment instruction output file")
	runCmd.Flags().String("node", "", "Node base URL, e.g. http://127.0.0.1:6861")
	runCmd.Flags().String("cache-file", "blocks.json", "Block summary cache file")
	runCmd.Flags().String("cache-backend", config.BackendFile, "Cache backend (file or postgres)")
	runCmd.Flags().String("postgres-dsn", "", "Postgres DSN for the postgres cache backend")
	runCmd.Flags().Duration("request-timeout", defaultRequestTimeout, "Per-request node timeout")
	runCmd.Flags().String("metrics-listen", "", "Address to serve /metrics on during the run")
	runCmd.Flags().String("attachment", "", "Attachment string for every payment instruction")
	runCmd.Flags().Int64("payment-fee", 2_000_000, "Fee attached to every payment instruction")
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(runCmd)
}
