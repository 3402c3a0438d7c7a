package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/config"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/ui"
)

var flagStatsDomain string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show signaling server statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStats()
	},
}

func init() {
	statsCmd.Flags().StringVar(&flagStatsDomain, "domain", "", "signaling server domain (host:port)")
	rootCmd.AddCommand(statsCmd)
}

func showStats() error {
	cfg, err := config.Load(config.Options{Domain: flagStatsDomain})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(cfg.StatsURL)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch stats: server returned %s", resp.Status)
	}

	var stats ui.ServerStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}

	ui.RenderServerStats(cfg.Domain, stats)
	return nil
}
