// Package chat owns the assistant conversation for one tab: its ordered
// message history, the panel visibility state machine, the single-flight
// reply request, and write-through persistence to the shared kv store.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ironwall/pkg/client"
	"ironwall/pkg/kv"
	"ironwall/pkg/logger"
	"ironwall/pkg/models"
)

// HistoryKey is the persisted location of the message history. Stable
// across releases; existing stored conversations must keep loading.
const HistoryKey = "ironwall_chat_history"

const (
	greetingText = "Hello! I'm the IronWall AI. How can I assist you with your vulnerability research today?"
	clearedText  = "History cleared. How can I help?"
	apologyText  = "I apologize, but I encountered an error communicating with the AI service. Please ensure the backend is running and try again."
)

// ErrReplyPending is returned when a send arrives while a reply request is
// still outstanding. Concurrent requests would interleave history, so the
// second send is rejected with notice rather than queued.
var ErrReplyPending = errors.New("a reply is still pending; wait for it to finish")

// Visibility is the assistant panel's display state.
type Visibility string

const (
	Closed    Visibility = "closed"
	Minimized Visibility = "minimized"
	Open      Visibility = "open"
)

// Conversation is the single logical owner of the assistant state for one
// tab. All methods are safe for concurrent use; at most one reply request
// is in flight at any time.
type Conversation struct {
	kv  kv.Store
	api *client.Client

	mu          sync.Mutex
	msgs        []models.Message
	vis         Visibility
	pending     bool
	initialized bool
}

// New returns an uninitialized conversation; call Initialize before use.
func New(store kv.Store, api *client.Client) *Conversation {
	return &Conversation{kv: store, api: api, vis: Closed}
}

// Initialize loads the persisted history, seeding a fresh greeting when
// nothing usable is stored. It runs once per tab lifetime; later calls are
// no-ops.
func (c *Conversation) Initialize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return
	}
	c.initialized = true
	raw, ok, err := c.kv.Get(HistoryKey)
	if err == nil && ok {
		var msgs []models.Message
		if jerr := json.Unmarshal(raw, &msgs); jerr == nil && len(msgs) > 0 {
			c.msgs = msgs
			return
		}
		logger.Warn("stored_history_unparseable")
	}
	c.msgs = []models.Message{greeting(greetingText)}
	c.persistLocked()
}

// Messages returns a copy of the ordered history.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.msgs...)
}

// Pending reports whether a reply request is outstanding.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Visibility returns the panel display state.
func (c *Conversation) Visibility() Visibility {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vis
}

// Open shows the panel, restoring it if minimized.
func (c *Conversation) Open() { c.setVisibility(Open) }

// Close hides the panel from either visible state. Any outstanding reply
// request keeps running and lands in the persisted history regardless.
func (c *Conversation) Close() { c.setVisibility(Closed) }

// Minimize collapses an open panel; no-op in other states.
func (c *Conversation) Minimize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vis == Open {
		c.vis = Minimized
	}
}

// Maximize restores a minimized panel; no-op in other states.
func (c *Conversation) Maximize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vis == Minimized {
		c.vis = Open
	}
}

func (c *Conversation) setVisibility(v Visibility) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vis = v
}

// SendMessage appends the user's text optimistically, then issues exactly
// one reply request carrying the history accumulated after the synthetic
// greeting. Blank input is a no-op. A send while a reply is outstanding
// returns ErrReplyPending. Request failures are absorbed here: the
// conversation advances with a fixed apology instead of a reply, and no
// error escapes to the caller.
func (c *Conversation) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		c.Initialize()
		c.mu.Lock()
	}
	if c.pending {
		c.mu.Unlock()
		return ErrReplyPending
	}
	c.pending = true
	// History for the service: everything after the greeting, excluding the
	// message being sent now (it travels in the message field).
	history := make([]client.HistoryEntry, 0, len(c.msgs))
	for _, m := range c.msgs[1:] {
		history = append(history, client.HistoryEntry{Role: client.WireRole(m.Role), Parts: m.Text})
	}
	c.msgs = append(c.msgs, models.Message{
		ID:        uuid.NewString(),
		Role:      models.MessageRoleUser,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
	c.persistLocked()
	c.mu.Unlock()

	sendsTotal.Inc()
	reply, err := c.api.ChatMessage(ctx, text, history)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		logger.Warn("chat_reply_failed", "error", err)
		replyFailures.Inc()
		reply = apologyText
	}
	c.msgs = append(c.msgs, models.Message{
		ID:        uuid.NewString(),
		Role:      models.MessageRoleAssistant,
		Text:      reply,
		Timestamp: time.Now().UTC(),
	})
	c.persistLocked()
	c.pending = false
	return nil
}

// ClearHistory resets the conversation to a single fresh greeting. It does
// not contact the reply service.
func (c *Conversation) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = true
	c.msgs = []models.Message{greeting(clearedText)}
	c.persistLocked()
}

// TrimOlderThan drops messages with timestamps before cutoff, always
// keeping the greeting at index 0. Returns the number removed.
func (c *Conversation) TrimOlderThan(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) < 2 {
		return 0
	}
	kept := c.msgs[:1]
	for _, m := range c.msgs[1:] {
		if !m.Timestamp.Before(cutoff) {
			kept = append(kept, m)
		}
	}
	removed := len(c.msgs) - len(kept)
	if removed > 0 {
		c.msgs = kept
		c.persistLocked()
	}
	return removed
}

// persistLocked writes the history through to the kv store and publishes
// the same-tab notification. Persistence failures are logged, not
// propagated: the in-memory conversation stays authoritative for this tab.
func (c *Conversation) persistLocked() {
	raw, err := json.Marshal(c.msgs)
	if err != nil {
		logger.Error("history_marshal_failed", "error", err)
		return
	}
	if err := c.kv.Set(HistoryKey, raw); err != nil {
		logger.Warn("history_persist_failed", "error", err)
		return
	}
	c.kv.Publish(HistoryKey)
}

func greeting(text string) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Role:      models.MessageRoleAssistant,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}
