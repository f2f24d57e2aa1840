package events

import (
	"time"

	"airmon-cloud/internal/eventing/eventbus"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

// TelemetryReceived is published after a reading was fully persisted. The
// realtime fanout consumes it to notify station subscribers.
type TelemetryReceived struct {
	StationID  string
	Reading    telemetry.Reading
	ReceivedAt time.Time
}

// TopicTelemetryReceived carries TelemetryReceived events.
var TopicTelemetryReceived = eventbus.NewTopic[TelemetryReceived]("telemetry.received")
