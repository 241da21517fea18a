package builder

import (
	"sync"

	"page-composer-backend/internal/autosave"
)

type EventKind string

const (
	// EventState follows every change to sections, selection or preview mode.
	EventState EventKind = "state"
	// EventAutoSave follows every auto-save status change.
	EventAutoSave EventKind = "autosave"
)

// Event is delivered to subscribers in the order changes happened.
type Event struct {
	Kind     EventKind       `json:"kind"`
	Action   string          `json:"action,omitempty"`
	Snapshot *Snapshot       `json:"snapshot,omitempty"`
	AutoSave *autosave.State `json:"autoSave,omitempty"`
}

// notifier fans events out to subscribers on its own goroutine, so
// publishing never blocks and subscribers may call back into the Controller.
type notifier struct {
	mu      sync.Mutex
	subs    map[int]func(Event)
	nextID  int
	queue   []Event
	stopped bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func newNotifier() *notifier {
	n := &notifier{
		subs: make(map[int]func(Event)),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *notifier) subscribe(fn func(Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subs[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) hasSubscribers() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs) > 0
}

func (n *notifier) publish(event Event) {
	n.mu.Lock()
	if n.stopped || len(n.subs) == 0 {
		n.mu.Unlock()
		return
	}
	n.queue = append(n.queue, event)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case <-n.wake:
		}

		for {
			n.mu.Lock()
			if len(n.queue) == 0 || n.stopped {
				n.mu.Unlock()
				break
			}
			event := n.queue[0]
			n.queue = n.queue[1:]
			subs := make([]func(Event), 0, len(n.subs))
			for _, fn := range n.subs {
				subs = append(subs, fn)
			}
			n.mu.Unlock()

			for _, fn := range subs {
				fn(event)
			}
		}
	}
}

func (n *notifier) stop() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	n.stopped = true
	n.queue = nil
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}
