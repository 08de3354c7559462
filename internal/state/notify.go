package state

import "sync"

// notifier fans change signals out to subscribers. Signals coalesce: a slow
// subscriber sees at most one pending signal.
type notifier struct {
	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// Subscribe returns a channel that receives a value after each change and a
// function that unsubscribes and closes it.
func (n *notifier) Subscribe() (<-chan struct{}, func()) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]chan struct{})
	}
	id := n.nextID
	n.nextID++
	ch := make(chan struct{}, 1)
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.subMu.Lock()
			defer n.subMu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
}

func (n *notifier) broadcast() {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
