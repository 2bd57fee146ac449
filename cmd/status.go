package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"gitpulse/internal/engine"
	"gitpulse/internal/model"
	"gitpulse/internal/repository"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/status"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var result struct {
			Running bool               `json:"running"`
			Stats   engine.Stats       `json:"stats"`
			Health  model.HealthStatus `json:"health"`
			Totals  *repository.Stats  `json:"totals"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		lastSync := "-"
		if result.Stats.LastSync != nil {
			lastSync = result.Stats.LastSync.Format("2006-01-02 15:04:05")
		}

		fmt.Printf("state:   %s\n", result.Stats.State)
		fmt.Printf("uptime:  %s\n", time.Since(result.Stats.StartedAt).Round(time.Second))
		fmt.Printf("synced:  %d\n", result.Stats.Synced)
		fmt.Printf("failed:  %d\n", result.Stats.Failed)
		fmt.Printf("last:    %s\n", lastSync)
		fmt.Printf("health:  git=%v repo=%v remote=%v (checked %s)\n",
			result.Health.VcsAvailable,
			result.Health.RepoValid,
			result.Health.RemoteReachable,
			result.Health.CheckedAt.Format("15:04:05"))

		if result.Totals != nil {
			fmt.Printf("all-time: %d synced, %d succeeded, %d failed\n",
				result.Totals.Total,
				result.Totals.Success,
				result.Totals.Failed)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
