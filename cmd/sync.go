package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitpulse/internal/engine"
	"gitpulse/internal/gitrepo"
	"gitpulse/internal/logger"
	"gitpulse/internal/model"
	"gitpulse/internal/repository"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger one sync immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		// Prefer the running daemon so the attempt goes through its
		// single-flight pipeline.
		resp, err := http.Post(daemonURL("/sync?reason=cli"), "application/json", nil)
		if err == nil {
			defer func(Body io.ReadCloser) {
				_ = Body.Close()
			}(resp.Body)

			if resp.StatusCode == http.StatusAccepted {
				fmt.Println("sync requested")
				return nil
			}
			return fmt.Errorf("daemon refused sync request (%d)", resp.StatusCode)
		}

		// No daemon; run one attempt directly.
		client := gitrepo.NewClient(cfg.WatchRoot, cfg.CommandTimeout)
		pipe := engine.NewPipeline(client, cfg.MaxRetries, cfg.RetryBackoff)

		req := model.SyncRequest{Reason: "manual sync", RequestedAt: time.Now()}
		result := pipe.Attempt(context.Background(), req)

		if result.Outcome != model.OutcomeNoChanges {
			repo := repository.NewHistoryRepository()
			if err := repo.Save(result); err != nil {
				logger.Log.Warn("failed to save history",
					zap.Error(err))
			}
		}

		switch result.Outcome {
		case model.OutcomeNoChanges:
			fmt.Println("nothing to sync")
		case model.OutcomeSuccess:
			fmt.Printf("synced in %d attempt(s)\n", result.Attempts)
		case model.OutcomeFailed:
			return fmt.Errorf("sync failed after %d attempt(s): %s", result.Attempts, result.LastError)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
