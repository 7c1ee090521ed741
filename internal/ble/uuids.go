package ble

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tinygo.org/x/bluetooth"
)

// Identifiers the node advertises and the gateway looks for.
const (
	DefaultLocalName          = "ESP32_Sensor"
	DefaultServiceUUID        = "4fafc201-1fb5-459e-8fcc-c5c9c331914b"
	DefaultCharacteristicUUID = "beb5483e-36e1-4688-b7f5-ea07361b26a8"
)

// Notification is one value pushed by a node.
type Notification struct {
	Address    string
	Data       []byte
	ReceivedAt time.Time
}

// NotificationHandler consumes what a Subscriber receives.
type NotificationHandler interface {
	HandleNotification(n Notification)
	HandleLink(address string, connected bool)
}

// ParseUUID accepts the canonical 128-bit form and, for convenience, a bare
// 16-bit assigned number such as "180D".
func ParseUUID(s string) (bluetooth.UUID, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 {
		if short, err := strconv.ParseUint(s, 16, 16); err == nil {
			return bluetooth.New16BitUUID(uint16(short)), nil
		}
	}
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		return bluetooth.UUID{}, fmt.Errorf("parse uuid %q: %w", s, err)
	}
	return u, nil
}

// matchesName reports whether an advertised local name belongs to the node.
// Some stacks append a suffix to the name, so a substring match is used.
func matchesName(advertised, want string) bool {
	if want == "" || advertised == "" {
		return false
	}
	return strings.Contains(advertised, want)
}
