package session

import (
	"ironwall/pkg/kv"
	"ironwall/pkg/logger"
)

// Synchronizer keeps a Store's in-memory session consistent with the shared
// kv store. It listens on both notification channels: external-origin
// events (writes from other tabs) and same-tab publishes (e.g. after a
// profile refresh). On either one it re-reads the persisted session; this
// path never touches the network.
type Synchronizer struct {
	cancel func()
}

// NewSynchronizer attaches st to the tab's event stream and starts
// reconciling immediately.
func NewSynchronizer(st *Store, tab kv.Store) *Synchronizer {
	cancel := tab.Subscribe(func(ev kv.Event) {
		if ev.Key != TokenKey && ev.Key != UserKey {
			return
		}
		logger.Debug("session_sync_event", "key", ev.Key, "origin", ev.Origin.String())
		st.applyStored()
	})
	return &Synchronizer{cancel: cancel}
}

// Stop detaches the synchronizer from the event stream.
func (s *Synchronizer) Stop() {
	s.cancel()
}
