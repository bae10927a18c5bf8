package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jholhewres/kfc/pkg/kfc"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// newServeCmd creates the `kfcd serve` command that starts the persistence
// and scheduling substrate (SQLite session store, WaitChecker,
// ProactiveThinker). A host embeds pkg/kfc.Engine directly to drive
// DialogueLoop ticks against its own channels; this command exists so an
// operator can validate configuration and exercise the background
// schedulers standalone.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session store and background schedulers",
		Long: `Starts the SQLite-backed session store and the WaitChecker /
ProactiveThinker background schedulers on their configured intervals.

Examples:
  kfcd serve
  kfcd serve --db kfc.sqlite3`,
		RunE: runServe,
	}

	cmd.Flags().String("db", "kfc.sqlite3", "path to the SQLite session store")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	// ── Load config ──
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// ── Configure logger ──
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	// ── Open storage ──
	dbPath, _ := cmd.Flags().GetString("db")
	kv, err := kfc.NewSQLiteKVStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer kv.Close()

	store := kfc.NewSessionStore(kv, cfg.Prompt.MaxLogEntries, logger)

	// ── Create context ──
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Start background schedulers ──
	sched := kfc.NewCronScheduler(ctx)

	waitChecker := kfc.NewWaitChecker(store, cfg, nil, logger)
	if err := sched.RegisterRecurring("wait_checker", cfg.ContinuousThinking.MinInterval, waitChecker.Tick); err != nil {
		return fmt.Errorf("registering wait checker: %w", err)
	}

	proactive := kfc.NewProactiveThinker(store, cfg, nil, logger)
	if err := sched.RegisterRecurring("proactive_thinker", float64(cfg.Proactive.CheckInterval), proactive.Tick); err != nil {
		return fmt.Errorf("registering proactive thinker: %w", err)
	}

	sched.Start()
	logger.Info("kfcd schedulers running; a host process should embed pkg/kfc.Engine to drive DialogueLoop ticks",
		"db", dbPath,
		"continuous_thinking_interval", cfg.ContinuousThinking.MinInterval,
		"proactive_check_interval", cfg.Proactive.CheckInterval,
	)

	// ── Wait for shutdown ──
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")
	sched.Stop()
	return nil
}
