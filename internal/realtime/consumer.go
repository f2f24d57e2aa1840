package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"airmon-cloud/internal/eventing/eventbus"
	"airmon-cloud/internal/telemetry/application/events"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

// Consumer bridges persisted-reading events onto the stream broker.
type Consumer struct {
	broker *Broker
	logger *slog.Logger
}

// NewConsumer constructs a consumer.
func NewConsumer(broker *Broker, logger *slog.Logger) (*Consumer, error) {
	if broker == nil {
		return nil, errors.New("realtime consumer: nil broker")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{broker: broker, logger: logger}, nil
}

// Register subscribes the consumer on the bus.
func (c *Consumer) Register(bus *eventbus.Bus) {
	eventbus.Subscribe(bus, events.TopicTelemetryReceived, c.handle)
}

func (c *Consumer) handle(_ context.Context, received events.TelemetryReceived) error {
	payload, err := json.Marshal(streamUpdate{
		StationID:  received.StationID,
		Reading:    received.Reading,
		ReceivedAt: received.ReceivedAt,
	})
	if err != nil {
		c.logger.Warn("realtime: encode update", "station_id", received.StationID, "error", err)
		return err
	}
	c.broker.Publish(received.StationID, payload)
	return nil
}

type streamUpdate struct {
	StationID  string            `json:"stationId"`
	Reading    telemetry.Reading `json:"reading"`
	ReceivedAt time.Time         `json:"receivedAt"`
}
