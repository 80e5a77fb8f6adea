package inbound

import "sync"

// dispatcher runs jobs serially per conversation key while different
// conversations proceed concurrently. Two rapid events for the same
// contact can no longer race inside the ticket resolver or the chatbot.
type dispatcher struct {
	mu     sync.Mutex
	queues map[string][]func()
}

func newDispatcher() *dispatcher {
	return &dispatcher{queues: make(map[string][]func())}
}

// Dispatch enqueues fn for key. The first job of an idle key starts a
// worker goroutine; the worker exits once the key's queue drains.
func (d *dispatcher) Dispatch(key string, fn func()) {
	d.mu.Lock()
	d.queues[key] = append(d.queues[key], fn)
	if len(d.queues[key]) == 1 {
		go d.run(key)
	}
	d.mu.Unlock()
}

func (d *dispatcher) run(key string) {
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		fn := q[0]
		d.mu.Unlock()

		fn()

		d.mu.Lock()
		d.queues[key] = d.queues[key][1:]
		d.mu.Unlock()
	}
}
