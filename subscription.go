package secratechat

import (
	"sync"
	"sync/atomic"
)

// watcher is one registered message callback. The live flag is flipped off
// before the watcher is unlinked, so a callback never runs after its
// unsubscribe function returns.
type watcher struct {
	userID   string
	callback func(*Message)
	live     atomic.Bool
}

// subscriptionManager fans decrypted messages out to watchers. Watchers for
// a user are kept in registration order and notified in that order.
type subscriptionManager struct {
	mu       sync.RWMutex
	watchers map[string][]*watcher
}

func newSubscriptionManager() *subscriptionManager {
	return &subscriptionManager{
		watchers: make(map[string][]*watcher),
	}
}

// subscribe registers a callback for messages addressed to the given user
// and returns its unsubscribe function, which is safe to call more than
// once.
func (m *subscriptionManager) subscribe(userID string, callback func(*Message)) func() {
	w := &watcher{userID: userID, callback: callback}
	w.live.Store(true)

	m.mu.Lock()
	m.watchers[userID] = append(m.watchers[userID], w)
	m.mu.Unlock()

	return func() { m.drop(w) }
}

// drop deactivates and unlinks a single watcher.
func (m *subscriptionManager) drop(w *watcher) {
	w.live.Store(false)

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.watchers[w.userID]
	for i, candidate := range list {
		if candidate == w {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m.watchers, w.userID)
	} else {
		m.watchers[w.userID] = list
	}
}

// notify invokes the callbacks registered for a user, in registration order.
// The list is snapshotted so callbacks run without the lock held; watchers
// dropped in the meantime are skipped via their live flag.
func (m *subscriptionManager) notify(userID string, msg *Message) {
	m.mu.RLock()
	snapshot := append([]*watcher(nil), m.watchers[userID]...)
	m.mu.RUnlock()

	for _, w := range snapshot {
		if w.live.Load() {
			w.callback(msg)
		}
	}
}

// clear deactivates and drops every watcher. Called during Client.Close().
func (m *subscriptionManager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, list := range m.watchers {
		for _, w := range list {
			w.live.Store(false)
		}
	}
	m.watchers = make(map[string][]*watcher)
}
