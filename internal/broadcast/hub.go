package broadcast

import (
	"github.com/google/uuid"

	"github.com/coppice-chat/coppice/internal/domain"
	"github.com/coppice-chat/coppice/internal/metrics"
)

// DefaultEventBuffer is the per-subscriber event queue depth. A
// subscriber that falls this far behind starts losing events rather
// than stalling the publisher.
const DefaultEventBuffer = 32

// Hub tracks live event subscriptions per channel. It is NOT safe for
// concurrent use on its own; the owning coordinator must hold its lock
// across every call.
type Hub struct {
	buffer      int
	subscribers map[string]map[uuid.UUID]chan domain.ChannelEvent
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Hub{
		buffer:      buffer,
		subscribers: make(map[string]map[uuid.UUID]chan domain.ChannelEvent),
	}
}

// Subscribe registers a new subscriber on a channel and returns its id
// and receive side.
func (h *Hub) Subscribe(channelID string) (uuid.UUID, <-chan domain.ChannelEvent) {
	subs, exists := h.subscribers[channelID]
	if !exists {
		subs = make(map[uuid.UUID]chan domain.ChannelEvent)
		h.subscribers[channelID] = subs
	}

	id := uuid.New()
	ch := make(chan domain.ChannelEvent, h.buffer)
	subs[id] = ch

	metrics.ChannelSubscribersCurrent.Inc()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Calling it
// again for the same id is a no-op.
func (h *Hub) Unsubscribe(channelID string, id uuid.UUID) {
	subs, exists := h.subscribers[channelID]
	if !exists {
		return
	}
	ch, exists := subs[id]
	if !exists {
		return
	}

	delete(subs, id)
	if len(subs) == 0 {
		delete(h.subscribers, channelID)
	}
	close(ch)

	metrics.ChannelSubscribersCurrent.Dec()
}

// Publish delivers an event to every subscriber of a channel without
// blocking. Subscribers with a full queue miss the event.
func (h *Hub) Publish(channelID string, event domain.ChannelEvent) (delivered, dropped int) {
	for _, ch := range h.subscribers[channelID] {
		select {
		case ch <- event:
			delivered++
		default:
			dropped++
		}
	}

	metrics.EventsBroadcastTotal.Add(float64(delivered))
	if dropped > 0 {
		metrics.EventsDroppedTotal.Add(float64(dropped))
	}
	return delivered, dropped
}

// SubscriberCount reports how many subscribers a channel has.
func (h *Hub) SubscriberCount(channelID string) int {
	return len(h.subscribers[channelID])
}

// CloseAll drops every subscription, closing all channels. Used on
// shutdown.
func (h *Hub) CloseAll() {
	for channelID, subs := range h.subscribers {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
			metrics.ChannelSubscribersCurrent.Dec()
		}
		delete(h.subscribers, channelID)
	}
}
