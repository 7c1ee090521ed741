package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/petterssonb/portfolio-project/internal/ble"
)

// BLE identifies the node's GATT service on both ends of the link.
type BLE struct {
	DeviceName         string
	ServiceUUID        bluetooth.UUID
	CharacteristicUUID bluetooth.UUID
}

// Node configures the sensor node. The firmware uses DefaultNode as-is; the
// Linux build reads overrides from the environment.
type Node struct {
	AppEnv   string
	LogLevel slog.Level
	BLE      BLE

	PollInterval   time.Duration
	FaultThreshold int

	StatusLED      string
	ActivityLED    string
	StatusSolidLED bool

	BME280Address uint16
	I2CBus        string
}

type Gateway struct {
	AppEnv       string
	LogLevel     slog.Level
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	BLE         BLE
	BLEAdapter  string
	ScanTimeout time.Duration
	StationID   string
}

func defaultBLE() BLE {
	// The defaults are well-formed, parse errors cannot happen here.
	svc, _ := ble.ParseUUID(ble.DefaultServiceUUID)
	chr, _ := ble.ParseUUID(ble.DefaultCharacteristicUUID)
	return BLE{
		DeviceName:         ble.DefaultLocalName,
		ServiceUUID:        svc,
		CharacteristicUUID: chr,
	}
}

func DefaultNode() Node {
	return Node{
		AppEnv:         "dev",
		LogLevel:       slog.LevelInfo,
		BLE:            defaultBLE(),
		PollInterval:   60 * time.Second,
		FaultThreshold: 5,
		StatusLED:      "GPIO26",
		ActivityLED:    "GPIO25",
		StatusSolidLED: true,
		BME280Address:  0x76,
		I2CBus:         "",
	}
}

func LoadNodeFromEnv() (Node, error) {
	cfg := DefaultNode()

	appEnv, level, err := loadCommon()
	if err != nil {
		return Node{}, err
	}
	cfg.AppEnv = appEnv
	cfg.LogLevel = level

	if cfg.BLE, err = loadBLE(); err != nil {
		return Node{}, err
	}

	pollStr := envOr("NODE_POLL_INTERVAL", "60s")
	poll, err := time.ParseDuration(pollStr)
	if err != nil {
		return Node{}, fmt.Errorf("invalid NODE_POLL_INTERVAL %q: %w", pollStr, err)
	}
	if poll <= 0 {
		return Node{}, fmt.Errorf("NODE_POLL_INTERVAL must be positive, got %v", poll)
	}
	cfg.PollInterval = poll

	thresholdStr := envOr("NODE_FAULT_THRESHOLD", "5")
	threshold, err := strconv.Atoi(thresholdStr)
	if err != nil {
		return Node{}, fmt.Errorf("invalid NODE_FAULT_THRESHOLD %q: %w", thresholdStr, err)
	}
	if threshold < 1 {
		return Node{}, fmt.Errorf("NODE_FAULT_THRESHOLD must be at least 1, got %d", threshold)
	}
	cfg.FaultThreshold = threshold

	cfg.StatusLED = envOr("NODE_STATUS_LED", cfg.StatusLED)
	cfg.ActivityLED = envOr("NODE_ACTIVITY_LED", cfg.ActivityLED)
	if cfg.StatusLED == cfg.ActivityLED {
		return Node{}, fmt.Errorf("NODE_STATUS_LED and NODE_ACTIVITY_LED must differ, both %q", cfg.StatusLED)
	}

	solidStr := envOr("NODE_STATUS_SOLID", "true")
	solid, err := strconv.ParseBool(solidStr)
	if err != nil {
		return Node{}, fmt.Errorf("invalid NODE_STATUS_SOLID %q: %w", solidStr, err)
	}
	cfg.StatusSolidLED = solid

	bme280AddressStr := envOr("BME280_ADDRESS", "0x76")
	bme280Address, err := strconv.ParseUint(bme280AddressStr, 0, 16)
	if err != nil {
		return Node{}, fmt.Errorf("invalid BME280_ADDRESS %q: %w", bme280AddressStr, err)
	}
	cfg.BME280Address = uint16(bme280Address)
	cfg.I2CBus = strings.TrimSpace(os.Getenv("I2C_BUS"))

	return cfg, nil
}

func LoadGatewayFromEnv() (Gateway, error) {
	appEnv, level, err := loadCommon()
	if err != nil {
		return Gateway{}, err
	}

	mqttPortStr := envOr("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Gateway{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort < 1 || mqttPort > 65535 {
		return Gateway{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	bleCfg, err := loadBLE()
	if err != nil {
		return Gateway{}, err
	}

	scanTimeoutStr := envOr("BLE_SCAN_TIMEOUT", "30s")
	scanTimeout, err := time.ParseDuration(scanTimeoutStr)
	if err != nil {
		return Gateway{}, fmt.Errorf("invalid BLE_SCAN_TIMEOUT %q: %w", scanTimeoutStr, err)
	}
	if scanTimeout <= 0 {
		return Gateway{}, fmt.Errorf("BLE_SCAN_TIMEOUT must be positive, got %v", scanTimeout)
	}

	return Gateway{
		AppEnv:       appEnv,
		LogLevel:     level,
		MQTTBroker:   envOr("MQTT_BROKER", "localhost"),
		MQTTPort:     mqttPort,
		MQTTClientID: envOr("MQTT_CLIENT_ID", "cloudpico-ble-gateway"),
		BLE:          bleCfg,
		BLEAdapter:   envOr("BLE_ADAPTER", "hci0"),
		ScanTimeout:  scanTimeout,
		StationID:    strings.TrimSpace(os.Getenv("STATION_ID")),
	}, nil
}

func loadCommon() (string, slog.Level, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return "", slog.LevelInfo, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return "", slog.LevelInfo, err
	}
	return appEnv, level, nil
}

func loadBLE() (BLE, error) {
	cfg := defaultBLE()
	cfg.DeviceName = envOr("BLE_DEVICE_NAME", cfg.DeviceName)

	if s := strings.TrimSpace(os.Getenv("BLE_SERVICE_UUID")); s != "" {
		u, err := ble.ParseUUID(s)
		if err != nil {
			return BLE{}, fmt.Errorf("invalid BLE_SERVICE_UUID: %w", err)
		}
		cfg.ServiceUUID = u
	}
	if s := strings.TrimSpace(os.Getenv("BLE_CHARACTERISTIC_UUID")); s != "" {
		u, err := ble.ParseUUID(s)
		if err != nil {
			return BLE{}, fmt.Errorf("invalid BLE_CHARACTERISTIC_UUID: %w", err)
		}
		cfg.CharacteristicUUID = u
	}
	if cfg.ServiceUUID == cfg.CharacteristicUUID {
		return BLE{}, fmt.Errorf("BLE_SERVICE_UUID and BLE_CHARACTERISTIC_UUID must differ")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
