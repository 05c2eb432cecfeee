package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parkpulse/parkpulse/config"
	"github.com/parkpulse/parkpulse/core/registry"
	"github.com/parkpulse/parkpulse/infra/logger"
	"github.com/parkpulse/parkpulse/infra/mqtt"
	"github.com/parkpulse/parkpulse/simulator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the sensor simulator against the configured broker",
	Long: "Publishes synthetic sensor events for every configured spot without " +
		"starting the reconciliation service, for driving a separately running instance.",
	RunE: simulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("simulate-command")
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer client.Disconnect()

	// A local registry mirror gives the simulator the same spot and sensor
	// IDs the service generates from the shared configuration.
	reg := registry.New(nil)
	for _, lc := range cfg.Lots {
		lot := lc.Lot()
		prefix := lc.SensorPrefix
		if prefix == "" {
			prefix = lot.ID
		}
		if err := reg.AddLot(lot, registry.BuildSpots(lot, prefix)); err != nil {
			return fmt.Errorf("lot %s: %w", lot.ID, err)
		}
	}

	sim := simulator.New(reg, client, cfg.Simulator, logg)
	sim.Run(ctx)
	return nil
}
