// Command saleledger runs a fixed-supply token sale against a local
// snapshot file: initialize the sale once, then mint, withdraw and manage
// royalties from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"github.com/xraph/saleledger"
	audit_hook "github.com/xraph/saleledger/audit_hook"
	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/store/memory"
)

var (
	// Global flags
	verbose    bool
	configPath string
	nowUnix    int64

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "saleledger",
	Short: "Fixed-supply token sale ledger",
	Long: `saleledger sells a fixed number of tokens in two timed phases
(pre-sale, then public sale), refunds overpayment, lets the owner
withdraw proceeds and answers royalty queries.

State lives in a JSON snapshot next to the sale file written by 'init'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			return nil
		}
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "saleledger.yaml", "Sale file")
	rootCmd.PersistentFlags().Int64Var(&nowUnix, "at", 0, "Evaluate at this unix time instead of now")

	rootCmd.AddCommand(
		initCmd,
		statusCmd,
		mintCmd,
		receiveCmd,
		withdrawCmd,
		tokensCmd,
		uriCmd,
		royaltyCmd,
		setRoyaltyCmd,
		transferOwnershipCmd,
		journalCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func clock() time.Time {
	if nowUnix != 0 {
		return time.Unix(nowUnix, 0).UTC()
	}
	return time.Now()
}

// withLedger opens the configured sale, runs fn and persists the result.
func withLedger(ctx context.Context, fn func(ctx context.Context, l *saleledger.Ledger) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	return runLedger(ctx, cfg, fn)
}

// newSlogLogger routes the ledger's slog output into the CLI's zap core.
func newSlogLogger(l *zap.Logger) *slog.Logger {
	return slog.New(zapslog.NewHandler(l.Core()))
}

func runLedger(ctx context.Context, cfg *cliConfig, fn func(ctx context.Context, l *saleledger.Ledger) error) error {
	saleCfg, err := cfg.saleConfig()
	if err != nil {
		return err
	}

	st, err := memory.Open(cfg.Data)
	if err != nil {
		return err
	}

	slogger := newSlogLogger(logger)
	opts := []saleledger.Option{
		saleledger.WithLogger(slogger),
		saleledger.WithClock(clock),
		saleledger.WithJournalConfig(cfg.JournalBatchSize, cfg.JournalFlushInterval),
		saleledger.WithPlugin(audit_hook.New(
			audit_hook.RecorderFunc(func(_ context.Context, evt *audit_hook.AuditEvent) error {
				logger.Info("audit",
					zap.String("action", evt.Action),
					zap.String("resource", evt.Resource),
					zap.String("resource_id", evt.ResourceID),
					zap.String("outcome", evt.Outcome),
					zap.Any("metadata", evt.Metadata),
				)
				return nil
			}),
			audit_hook.WithLogger(slogger),
		)),
	}
	if cfg.SaleID != "" {
		saleID, err := id.ParseSaleID(cfg.SaleID)
		if err != nil {
			return fmt.Errorf("config: sale_id: %w", err)
		}
		opts = append(opts, saleledger.WithSaleID(saleID))
	}
	if cfg.DepositsOutsideSale {
		opts = append(opts, saleledger.WithDepositsOutsideSale())
	}

	l, err := saleledger.New(st, saleCfg, opts...)
	if err != nil {
		return err
	}
	if err := l.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx, l)
	if err := l.Stop(); err != nil {
		logger.Error("failed to persist ledger", zap.String("data", cfg.Data), zap.Error(err))
		if runErr == nil {
			return err
		}
	}
	return runErr
}
