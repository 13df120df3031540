package stream

import (
	"context"
	"sync"

	domainRepo "github.com/sangkips/posledger-api/internal/domain/repository"
)

type memorySubscriber struct {
	id       int
	onChange func()
}

type memoryNotifier struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[string][]memorySubscriber
}

// NewMemoryNotifier creates an in-process ledger change stream for
// single-node deployments and tests. Callbacks run on the publisher's
// goroutine.
func NewMemoryNotifier() domainRepo.LedgerNotifier {
	return &memoryNotifier{subscribers: make(map[string][]memorySubscriber)}
}

func (n *memoryNotifier) Publish(ctx context.Context, customerKey string) error {
	n.mu.RLock()
	subs := make([]memorySubscriber, len(n.subscribers[customerKey]))
	copy(subs, n.subscribers[customerKey])
	n.mu.RUnlock()

	for _, sub := range subs {
		sub.onChange()
	}
	return nil
}

func (n *memoryNotifier) Subscribe(ctx context.Context, customerKey string, onChange func()) (func(), error) {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.subscribers[customerKey] = append(n.subscribers[customerKey], memorySubscriber{id: id, onChange: onChange})
	n.mu.Unlock()

	unsubscribe := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subs := n.subscribers[customerKey]
		for i := range subs {
			if subs[i].id == id {
				n.subscribers[customerKey] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(n.subscribers[customerKey]) == 0 {
			delete(n.subscribers, customerKey)
		}
	}
	return unsubscribe, nil
}
