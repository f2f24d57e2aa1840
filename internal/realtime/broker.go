package realtime

import (
	"sync"

	"airmon-cloud/internal/observability/metrics"
)

const subscriberBuffer = 16

// Broker fans out per-station payloads to connected stream clients. A
// subscriber only receives payloads for the stations it joined; joining no
// stations means receiving everything.
type Broker struct {
	mu      sync.Mutex
	clients map[chan []byte]map[string]struct{}
}

// NewBroker constructs a broker.
func NewBroker() *Broker {
	return &Broker{clients: make(map[chan []byte]map[string]struct{})}
}

// Subscribe registers a client for the given stations.
func (b *Broker) Subscribe(stationIDs []string) chan []byte {
	if b == nil {
		return nil
	}
	var topics map[string]struct{}
	if len(stationIDs) > 0 {
		topics = make(map[string]struct{}, len(stationIDs))
		for _, id := range stationIDs {
			topics[id] = struct{}{}
		}
	}
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	b.clients[ch] = topics
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b == nil || ch == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, known := b.clients[ch]; known {
		delete(b.clients, ch)
		close(ch)
	}
}

// Publish delivers a payload to every subscriber of the station. Slow
// clients with a full buffer are skipped rather than blocked on.
func (b *Broker) Publish(stationID string, payload []byte) {
	if b == nil {
		return
	}
	// Sends stay under the mutex so Unsubscribe cannot close a channel
	// mid-publish. The selects never block, so the lock is held briefly.
	b.mu.Lock()
	delivered, dropped := 0, 0
	for ch, topics := range b.clients {
		if topics != nil {
			if _, ok := topics[stationID]; !ok {
				continue
			}
		}
		select {
		case ch <- payload:
			delivered++
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	metrics.AddBroadcastDeliveries(delivered)
	metrics.AddBroadcastDropped(dropped)
}
