//go:build linux && !tinygo

// Sensor node for Linux boards: BlueZ peripheral, BME280 on I2C and two LEDs
// on GPIO lines.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"periph.io/x/host/v3"
	"tinygo.org/x/bluetooth"

	"github.com/petterssonb/portfolio-project/internal/ble"
	"github.com/petterssonb/portfolio-project/internal/config"
	"github.com/petterssonb/portfolio-project/internal/led"
	"github.com/petterssonb/portfolio-project/internal/logging"
	"github.com/petterssonb/portfolio-project/internal/node"
	"github.com/petterssonb/portfolio-project/internal/sensor"
)

var version = "dev"
var appName = "cloudpico-ble-node"

func main() {
	cfg, err := config.LoadNodeFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !node.IsShutdown(err) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
	slog.Info("shutting down")
}

func run(ctx context.Context, cfg config.Node, logger *slog.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host.Init: %w", err)
	}

	status, err := led.Open(cfg.StatusLED, logger)
	if err != nil {
		return err
	}
	defer status.Close()

	activity, err := led.Open(cfg.ActivityLED, logger)
	if err != nil {
		return err
	}
	defer activity.Close()

	bme, err := sensor.OpenBME280(cfg.I2CBus, cfg.BME280Address)
	if err != nil {
		return err
	}
	defer bme.Close()

	indicator := node.NewIndicator(status, activity, node.Sleep, node.IndicatorOptions{
		ConnectedLevel: cfg.StatusSolidLED,
	})
	tracker := node.NewTracker(indicator.ConnectionChanged)

	peripheral := ble.NewPeripheral(bluetooth.DefaultAdapter, ble.PeripheralOptions{
		LocalName:          cfg.BLE.DeviceName,
		ServiceUUID:        cfg.BLE.ServiceUUID,
		CharacteristicUUID: cfg.BLE.CharacteristicUUID,
	}, logger)
	if err := peripheral.Start(tracker); err != nil {
		return err
	}
	logger.Info("device identity", "mac", peripheral.Address())

	app := node.NewApp(node.Options{
		Identity:       peripheral.Address(),
		PollInterval:   cfg.PollInterval,
		FaultThreshold: cfg.FaultThreshold,
		Sensor:         bme,
		Notifier:       peripheral,
		Advertiser:     peripheral,
		Tracker:        tracker,
		Indicator:      indicator,
		Logger:         logger,
	})
	return app.Run(ctx)
}
