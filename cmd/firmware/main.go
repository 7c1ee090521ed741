//go:build tinygo

// Firmware for a BLE capable microcontroller with a DHT11 and two LEDs.
//
//	tinygo flash -target=pico2-w ./cmd/firmware
package main

import (
	"context"
	"machine"
	"time"

	"tinygo.org/x/bluetooth"
	"tinygo.org/x/drivers/dht"

	"github.com/petterssonb/portfolio-project/internal/ble"
	"github.com/petterssonb/portfolio-project/internal/config"
	"github.com/petterssonb/portfolio-project/internal/led"
	"github.com/petterssonb/portfolio-project/internal/logging"
	"github.com/petterssonb/portfolio-project/internal/node"
	"github.com/petterssonb/portfolio-project/internal/sensor"
)

const (
	dhtPin         = machine.GP27
	statusLEDPin   = machine.GP26
	activityLEDPin = machine.GP25
)

func main() {
	// USB CDC serial
	machine.Serial.Configure(machine.UARTConfig{})

	// Give the host time to enumerate the USB serial device.
	time.Sleep(1500 * time.Millisecond)

	cfg := config.DefaultNode()
	logger := logging.NewConsole(machine.Serial, cfg.LogLevel)
	logger.Info("boot: ble dht node")

	indicator := node.NewIndicator(led.Output(statusLEDPin), led.Output(activityLEDPin), node.Sleep, node.IndicatorOptions{
		ConnectedLevel: cfg.StatusSolidLED,
	})
	tracker := node.NewTracker(indicator.ConnectionChanged)

	peripheral := ble.NewPeripheral(bluetooth.DefaultAdapter, ble.PeripheralOptions{
		LocalName:          cfg.BLE.DeviceName,
		ServiceUUID:        cfg.BLE.ServiceUUID,
		CharacteristicUUID: cfg.BLE.CharacteristicUUID,
	}, logger)
	if err := peripheral.Start(tracker); err != nil {
		logger.Error("FATAL: ble start failed", "error", err)
		for {
			time.Sleep(1 * time.Second)
		}
	}
	logger.Info("device identity", "mac", peripheral.Address())

	app := node.NewApp(node.Options{
		Identity:       peripheral.Address(),
		PollInterval:   cfg.PollInterval,
		FaultThreshold: cfg.FaultThreshold,
		Sensor:         sensor.NewDHT(dhtPin, dht.DHT11),
		Notifier:       peripheral,
		Advertiser:     peripheral,
		Tracker:        tracker,
		Indicator:      indicator,
		Logger:         logger,
	})
	_ = app.Run(context.Background())
}
