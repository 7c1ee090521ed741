//go:build linux && !tinygo

package app

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/petterssonb/portfolio-project/internal/ble"
	"github.com/petterssonb/portfolio-project/internal/config"
	"github.com/petterssonb/portfolio-project/internal/mqtt"
	"github.com/petterssonb/portfolio-project/internal/relay"
)

// Run subscribes to the node over BLE and relays its readings to MQTT until
// ctx is cancelled.
func Run(ctx context.Context, cfg config.Gateway, logger *slog.Logger) error {
	logger.Info("initializing gateway",
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
		"mqtt_client_id", cfg.MQTTClientID,
		"ble_adapter", cfg.BLEAdapter,
		"ble_device", cfg.BLE.DeviceName,
	)

	mqttClient, err := mqtt.NewClient(cfg, logger)
	if err != nil {
		return err
	}

	handler := relay.NewHandler(mqttClient, cfg.StationID, logger)
	subscriber := ble.NewSubscriber(ble.SubscriberOptions{
		Adapter:            cfg.BLEAdapter,
		DeviceName:         cfg.BLE.DeviceName,
		ServiceUUID:        cfg.BLE.ServiceUUID,
		CharacteristicUUID: cfg.BLE.CharacteristicUUID,
		ScanTimeout:        cfg.ScanTimeout,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer mqttClient.Disconnect()
		if err := mqttClient.Connect(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		return subscriber.Run(gctx, handler)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("gateway shutting down")
	return nil
}
