package timer

import (
	"context"
	"sync"

	"github.com/rezkam/focusflow/internal/domain"
)

type scopeKey struct {
	userID string
	day    domain.Day
}

type subscriber struct {
	ch chan *domain.Task
}

// Broker fans running-timer updates out to subscribers of a scope.
//
// Each subscriber holds at most one pending value. A slow reader skips intermediate
// values and always receives the latest one. A nil value means nothing is running.
type Broker struct {
	mu   sync.Mutex
	subs map[scopeKey]map[*subscriber]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[scopeKey]map[*subscriber]struct{})}
}

// Subscribe registers for updates of the scope until ctx is done, then closes the channel.
func (b *Broker) Subscribe(ctx context.Context, userID string, day domain.Day) <-chan *domain.Task {
	key := scopeKey{userID: userID, day: day}
	sub := &subscriber{ch: make(chan *domain.Task, 1)}

	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[*subscriber]struct{})
	}
	b.subs[key][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()

		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[key], sub)
		if len(b.subs[key]) == 0 {
			delete(b.subs, key)
		}
		close(sub.ch)
	}()

	return sub.ch
}

// Publish delivers task to every subscriber of the scope without blocking.
func (b *Broker) Publish(userID string, day domain.Day, task *domain.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[scopeKey{userID: userID, day: day}] {
		offer(sub.ch, task.Clone())
	}
}

// Subscribers returns the number of live subscriptions for the scope.
func (b *Broker) Subscribers(userID string, day domain.Day) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[scopeKey{userID: userID, day: day}])
}

// offer replaces any unread value with v. Only publishers send, and they hold the
// broker lock, so the second send always finds room.
func offer(ch chan *domain.Task, v *domain.Task) {
	select {
	case ch <- v:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}
	ch <- v
}
