package controlapi

import (
	"sync"
)

const subscriberQueueSize = 64

type event struct {
	name string
	data interface{}
}

// hub fans out events to subscribers.
// Slow subscribers lose events instead of blocking publishers.
type hub struct {
	mutex       sync.Mutex
	subscribers map[chan event]struct{}
}

func (h *hub) initialize() {
	h.subscribers = make(map[chan event]struct{})
}

func (h *hub) subscribe() chan event {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	ch := make(chan event, subscriberQueueSize)
	h.subscribers[ch] = struct{}{}
	return ch
}

func (h *hub) unsubscribe(ch chan event) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.subscribers, ch)
}

func (h *hub) publish(e event) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
