package speech

import "sync"

// eventQueue delivers pushed values to out in push order. push never blocks,
// so it is safe to call while holding the owner's lock.
type eventQueue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
	out    chan T

	done      chan struct{}
	closeOnce sync.Once
}

func newEventQueue[T any](buffer int) *eventQueue[T] {
	q := &eventQueue[T]{
		notify: make(chan struct{}, 1),
		out:    make(chan T, buffer),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *eventQueue[T]) push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue[T]) run() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			select {
			case <-q.notify:
				continue
			case <-q.done:
				return
			}
		}
		item := q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		q.mu.Unlock()

		select {
		case q.out <- item:
		case <-q.done:
			return
		}
	}
}

func (q *eventQueue[T]) close() {
	q.closeOnce.Do(func() { close(q.done) })
}
