// Package chat holds the per-session conversation manager: the stateful
// orchestrator behind the inbox, the open conversation view and the
// "contact seller" flow.
package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/feed"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/service"
)

// EventType labels events pushed to the session's client.
type EventType string

const (
	// EventMessage carries a realtime message merged into the open conversation.
	EventMessage EventType = "message"
	// EventInbox carries the reloaded inbox after a change notification.
	EventInbox EventType = "inbox"
)

// Event is what the manager pushes back to its session.
type Event struct {
	Type    EventType
	Message *domain.Message
	Inbox   []*domain.InboxEntry
}

// Manager drives all messaging operations for one signed-in viewer. It owns
// the single feed subscription of the session, the in-memory history of the
// currently open conversation, and the opener-once bookkeeping of the
// start-conversation flow. The viewer id is explicit state, never ambient.
//
// All operations are serialized on an internal mutex, so a double-triggered
// "start conversation" runs back to back and the second run sees the opener
// flag already set.
type Manager struct {
	viewerID string
	convs    *service.ConversationService
	msgs     *service.MessageService
	log      *zap.SugaredLogger
	notify   func(Event)

	mu         sync.Mutex
	sub        *feed.Subscription
	openConvID string
	history    []*domain.Message
	seen       map[string]struct{}
	openerSent map[string]bool
}

// NewManager subscribes the viewer to the change feed and starts merging
// incoming messages. notify may be nil when no client push is wanted.
func NewManager(
	viewerID string,
	convs *service.ConversationService,
	msgs *service.MessageService,
	events *feed.Feed,
	log *zap.SugaredLogger,
	notify func(Event),
) *Manager {
	m := &Manager{
		viewerID:   viewerID,
		convs:      convs,
		msgs:       msgs,
		log:        log,
		notify:     notify,
		seen:       make(map[string]struct{}),
		openerSent: make(map[string]bool),
	}
	m.sub = events.Subscribe(viewerID)
	go m.run()
	return m
}

func (m *Manager) ViewerID() string {
	return m.viewerID
}

// OpenInbox returns the viewer's formatted conversation list.
func (m *Manager) OpenInbox(ctx context.Context) ([]*domain.InboxEntry, error) {
	return m.convs.Inbox(ctx, m.viewerID)
}

// OpenConversation loads the full history and then marks it read for the
// viewer. History is loaded first on purpose: the viewer sees the pre-read
// flags, mark-read only clears their own unread badge for the other side.
func (m *Manager) OpenConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openConversation(ctx, conversationID)
}

func (m *Manager) openConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	// List enforces existence and participant access
	history, err := m.msgs.List(ctx, conversationID, m.viewerID)
	if err != nil {
		return nil, err
	}
	if err := m.msgs.MarkRead(ctx, conversationID, m.viewerID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	m.openConvID = conversationID
	m.history = make([]*domain.Message, len(history))
	copy(m.history, history)
	m.seen = make(map[string]struct{}, len(history))
	for _, msg := range history {
		m.seen[msg.ID] = struct{}{}
	}
	return m.snapshotHistory(), nil
}

// SendMessage appends a message to the currently open conversation.
func (m *Manager) SendMessage(ctx context.Context, content string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openConvID == "" {
		return nil, fmt.Errorf("%w: no open conversation", domain.ErrValidation)
	}
	msg, err := m.msgs.Send(ctx, m.openConvID, m.viewerID, content)
	if err != nil {
		return nil, err
	}
	m.merge(msg)
	return msg, nil
}

// StartConversationWith finds or creates the conversation with the
// counterpart, opens it, and — when a listing is given and no opener has been
// sent in this session — sends the auto-composed opening message. A failed
// opener is logged and does not block the conversation: it is already valid.
func (m *Manager) StartConversationWith(ctx context.Context, counterpartID string, listing *domain.ListingRef) (*domain.Conversation, []*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, err := m.convs.FindOrCreate(ctx, m.viewerID, counterpartID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := m.openConversation(ctx, conv.ID); err != nil {
		return nil, nil, err
	}

	if listing != nil && !m.openerSent[conv.ID] {
		// flag first, a retried click must not compose a second opener
		m.openerSent[conv.ID] = true
		msg, err := m.msgs.Send(ctx, conv.ID, m.viewerID, ComposeOpener(listing))
		if err != nil {
			m.log.Warnw("opener send failed", "conversation_id", conv.ID, "err", err)
		} else {
			m.merge(msg)
		}
	}
	return conv, m.snapshotHistory(), nil
}

// Close tears down the feed subscription. The merge goroutine exits once the
// subscription channel drains.
func (m *Manager) Close() {
	m.sub.Close()
}

// History returns a copy of the open conversation's in-memory message list.
func (m *Manager) History() []*domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotHistory()
}

func (m *Manager) snapshotHistory() []*domain.Message {
	out := make([]*domain.Message, len(m.history))
	copy(out, m.history)
	return out
}

// merge appends a message to the open history, deduplicating by id. A send
// racing its own feed notification therefore lands exactly once.
func (m *Manager) merge(msg *domain.Message) bool {
	if m.openConvID == "" || msg.ConversationID != m.openConvID {
		return false
	}
	if _, dup := m.seen[msg.ID]; dup {
		return false
	}
	m.seen[msg.ID] = struct{}{}
	m.history = append(m.history, msg)
	return true
}

func (m *Manager) run() {
	for msg := range m.sub.Events() {
		m.handleIncoming(msg)
	}
}

// handleIncoming merges a feed notification into the open conversation and
// refreshes the inbox. The refresh reloads from the store rather than
// trusting the notification payload's freshness.
func (m *Manager) handleIncoming(msg *domain.Message) {
	m.mu.Lock()
	merged := m.merge(msg)
	notify := m.notify
	m.mu.Unlock()

	if notify == nil {
		return
	}
	if merged {
		notify(Event{Type: EventMessage, Message: msg})
	}
	entries, err := m.convs.Inbox(context.Background(), m.viewerID)
	if err != nil {
		m.log.Warnw("inbox refresh failed", "viewer_id", m.viewerID, "err", err)
		return
	}
	notify(Event{Type: EventInbox, Inbox: entries})
}

// ComposeOpener builds the auto-sent first message of a "contact seller"
// flow, referencing the listing's title and price.
func ComposeOpener(listing *domain.ListingRef) string {
	return fmt.Sprintf("Olá! Tenho interesse no anúncio \"%s\" por R$ %s. Ainda está disponível?",
		listing.Title, FormatPrice(listing.Price))
}

// FormatPrice renders a price in Brazilian format: dot as thousands
// separator, comma before two decimal places.
func FormatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	parts := strings.SplitN(s, ".", 2)
	intPart, decPart := parts[0], parts[1]

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	out := b.String() + "," + decPart
	if neg {
		out = "-" + out
	}
	return out
}
