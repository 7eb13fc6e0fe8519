package esplayer

import (
	"context"
	"sync"
)

// playerDelivery is the delivery routine. It runs work items in arrival order.
// push never blocks, so producers are never slowed down by the sink.
type playerDelivery struct {
	mutex  sync.Mutex
	queue  []func() error
	notify chan struct{}
}

func (d *playerDelivery) initialize() {
	d.notify = make(chan struct{}, 1)
}

func (d *playerDelivery) run(ctx context.Context) error {
	for {
		select {
		case <-d.notify:
			for {
				cb := d.pop()
				if cb == nil {
					break
				}

				err := cb()
				if err != nil {
					return err
				}

				if ctx.Err() != nil {
					return nil
				}
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func (d *playerDelivery) push(cb func() error) {
	d.mutex.Lock()
	d.queue = append(d.queue, cb)
	d.mutex.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *playerDelivery) pop() func() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.queue) == 0 {
		return nil
	}

	cb := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return cb
}

func (d *playerDelivery) len() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.queue)
}
