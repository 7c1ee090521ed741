package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/petterssonb/portfolio-project/internal/ble"
	"github.com/petterssonb/portfolio-project/internal/types"
	"github.com/petterssonb/portfolio-project/internal/utils"
)

// Publisher is the MQTT side of the relay. *mqtt.Client implements it.
type Publisher interface {
	PublishTelemetry(stationID string, telemetry types.Telemetry) error
	PublishStationHealth(health types.StationHealth) error
}

// Handler turns node notifications into telemetry messages. Readings that
// cannot be published are logged and dropped.
type Handler struct {
	pub       Publisher
	stationID string
	logger    *slog.Logger
	now       func() time.Time

	mu  sync.Mutex
	seq map[string]int
}

// NewHandler returns a handler publishing under stationID, or under each
// node's MAC address when stationID is empty.
func NewHandler(pub Publisher, stationID string, logger *slog.Logger) *Handler {
	return &Handler{
		pub:       pub,
		stationID: stationID,
		logger:    logger,
		now:       time.Now,
		seq:       make(map[string]int),
	}
}

var _ ble.NotificationHandler = (*Handler)(nil)

func (h *Handler) HandleNotification(n ble.Notification) {
	r, err := ParseNotification(n.Data)
	if err != nil {
		h.logger.Debug("relay: ignore payload", "addr", n.Address, "error", err, "data", utils.HexPreview(n.Data, 32))
		return
	}

	station := h.station(n.Address, r.MACAddress)

	h.mu.Lock()
	h.seq[station]++
	seq := h.seq[station]
	h.mu.Unlock()

	ts := n.ReceivedAt
	if ts.IsZero() {
		ts = h.now()
	}
	temp := r.Temperature
	hum := r.Humidity
	telemetry := types.Telemetry{
		StationID:   station,
		Timestamp:   ts,
		Temperature: &temp,
		Humidity:    &hum,
		MACAddress:  r.MACAddress,
		Status:      r.Status,
		Sequence:    &seq,
	}
	if err := h.pub.PublishTelemetry(station, telemetry); err != nil {
		h.logger.Warn("relay: failed to publish telemetry", "addr", n.Address, "station_id", station, "error", err)
		return
	}
	h.logger.Info("relay: reading published",
		"addr", n.Address,
		"station_id", station,
		"sequence", seq,
		"T", r.Temperature, "H", r.Humidity,
	)
}

func (h *Handler) HandleLink(address string, connected bool) {
	station := h.station(address, "")
	h.logger.Info("relay: node link", "addr", address, "station_id", station, "connected", connected)

	err := h.pub.PublishStationHealth(types.StationHealth{
		StationID: station,
		LastSeen:  h.now(),
		Healthy:   connected,
	})
	if err != nil {
		h.logger.Warn("relay: failed to publish health", "station_id", station, "error", err)
	}
}

func (h *Handler) station(addr, mac string) string {
	switch {
	case h.stationID != "":
		return h.stationID
	case mac != "":
		return mac
	default:
		return addr
	}
}
