package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/parkpulse/parkpulse/config"
	"github.com/parkpulse/parkpulse/core/model"
)

var (
	claimSpot    string
	claimHolder  string
	claimMinutes int
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim a spot through a running service's booking API",
	RunE:  claim,
}

func init() {
	claimCmd.Flags().StringVar(&claimSpot, "spot", "", "spot id to claim")
	claimCmd.Flags().StringVar(&claimHolder, "holder", "", "holder identity")
	claimCmd.Flags().IntVar(&claimMinutes, "minutes", 30, "reservation duration in minutes")
	rootCmd.AddCommand(claimCmd)
}

func claim(cmd *cobra.Command, args []string) error {
	if claimSpot == "" || claimHolder == "" {
		return fmt.Errorf("--spot and --holder are required")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	now := time.Now()
	body, err := json.Marshal(map[string]any{
		"spot_id": claimSpot,
		"holder":  claimHolder,
		"window":  model.Window{Start: now, End: now.Add(time.Duration(claimMinutes) * time.Minute)},
	})
	if err != nil {
		return err
	}

	addr := cfg.API.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	resp, err := http.Post("http://"+addr+"/api/claim", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("claim request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("claim rejected (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	fmt.Println(string(raw))
	return nil
}
