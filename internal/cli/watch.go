package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stimguard/stimguard/internal/daemon"
	"github.com/stimguard/stimguard/internal/kernel"
	"github.com/stimguard/stimguard/internal/limits"
)

var (
	watchInbox   string
	watchOutbox  string
	watchArchive string
	watchLimits  string
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchInbox, "inbox", "", "Directory to watch for actuation request JSON files (required)")
	watchCmd.Flags().StringVar(&watchOutbox, "outbox", "", "Directory decisions are written to (required)")
	watchCmd.Flags().StringVar(&watchArchive, "archive", "", "SQLite archive path (optional, disables archiving when empty)")
	watchCmd.Flags().StringVar(&watchLimits, "limits", "", "Path to limits YAML (optional)")
	watchCmd.MarkFlagRequired("inbox")
	watchCmd.MarkFlagRequired("outbox")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the inbox/outbox request gateway",
	Long: "Watches a spool directory for actuation request JSON files dropped by an\n" +
		"upstream controller, evaluates each through one kernel instance, and writes\n" +
		"the decision to the outbox. One gateway per device/patient: the kernel and\n" +
		"its decision log are never shared.",
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, hash, err := limits.LoadConfigWithHash(watchLimits)
	if err != nil {
		return err
	}
	k := kernel.New(cfg.Registry(hash))

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	gw, err := daemon.NewGateway(daemon.GatewayConfig{
		Inbox:   watchInbox,
		Outbox:  watchOutbox,
		Archive: watchArchive,
	}, k, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("gateway started",
		zap.String("kernel", k.ID()),
		zap.String("limits_hash", hash),
		zap.String("inbox", watchInbox),
		zap.String("outbox", watchOutbox),
	)

	return gw.Run(ctx)
}
