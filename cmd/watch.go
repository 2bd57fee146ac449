package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitpulse/internal/daemon"
	"gitpulse/internal/engine"
	"gitpulse/internal/gitrepo"
	"gitpulse/internal/logger"
	"gitpulse/internal/notify"
	"gitpulse/internal/repository"
)

var watchRootFlag string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the repository and auto-sync on changes",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	if watchRootFlag != "" {
		cfg.WatchRoot = watchRootFlag
	}

	client := gitrepo.NewClient(cfg.WatchRoot, cfg.CommandTimeout)
	notifier := notify.New(cfg.SilentMode)
	histRepo := repository.NewHistoryRepository()

	sup := engine.NewSupervisor(cfg, client, notifier, histRepo)
	if err := sup.Start(); err != nil {
		return err
	}

	srv := daemon.NewServer(sup, histRepo, cfg.DaemonPort)
	srv.Start()

	logger.Log.Info("gitpulse daemon started",
		zap.String("root", cfg.WatchRoot),
		zap.Int("port", cfg.DaemonPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("stop requested via API")
	}

	if err := sup.Stop(); err != nil {
		logger.Log.Warn("supervisor stop",
			zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func init() {
	watchCmd.Flags().StringVar(&watchRootFlag, "root", "", "Repository to watch (default: configured watch_root)")
	rootCmd.AddCommand(watchCmd)
}
