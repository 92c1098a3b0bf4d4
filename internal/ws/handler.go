package ws

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/chat"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/feed"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/security"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// session serializes writes to one WebSocket connection; gorilla allows a
// single concurrent writer and the manager pushes from its own goroutine.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteJSON(v)
}

func (s *session) sendError(msg string) {
	s.send(map[string]any{
		"type":    "error",
		"message": msg,
	})
}

// errorMessage surfaces validation errors verbatim and hides everything else
// behind a generic notice.
func errorMessage(err error, generic string) string {
	if errors.Is(err, domain.ErrValidation) {
		return err.Error()
	}
	return generic
}

type listingPayload struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

type commandPayload struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id"`
	CounterpartID  string          `json:"counterpart_id"`
	Content        string          `json:"content"`
	Listing        *listingPayload `json:"listing"`
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or Sec-WebSocket-Protocol),
// binds a conversation manager to the connection's lifetime, then dispatches commands:
//   - open_inbox          -> push the formatted conversation list
//   - open_conversation   -> load history, mark read, push history
//   - send_message        -> append to the open conversation
//   - start_conversation  -> find-or-create, open, optional auto-opener
//
// Realtime feed events for the viewer are pushed as "message" and "inbox" events.
func MakeHandler(
	tokens *security.TokenService,
	convSvc *service.ConversationService,
	msgSvc *service.MessageService,
	events *feed.Feed,
	allowedOrigins []string,
	log *zap.SugaredLogger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		viewerID, err := tokens.Subject(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := &session{conn: conn}

		// One manager, one feed subscription, per connection. Both are torn
		// down when the socket goes away.
		mgr := chat.NewManager(viewerID, convSvc, msgSvc, events, log, func(ev chat.Event) {
			switch ev.Type {
			case chat.EventMessage:
				sess.send(map[string]any{
					"type":    "message",
					"message": ev.Message,
				})
			case chat.EventInbox:
				sess.send(map[string]any{
					"type":    "inbox",
					"entries": ev.Inbox,
				})
			}
		})
		defer mgr.Close()

		ctx := r.Context()
		for {
			var cmd commandPayload
			if err := conn.ReadJSON(&cmd); err != nil {
				break
			}
			switch cmd.Type {

			case "open_inbox":
				entries, err := mgr.OpenInbox(ctx)
				if err != nil {
					log.Warnw("ws: open inbox", "viewer_id", viewerID, "err", err)
					sess.sendError("failed to load conversations")
					continue
				}
				sess.send(map[string]any{
					"type":    "inbox",
					"entries": entries,
				})

			case "open_conversation":
				if cmd.ConversationID == "" {
					sess.sendError("open_conversation requires conversation_id")
					continue
				}
				history, err := mgr.OpenConversation(ctx, cmd.ConversationID)
				if err != nil {
					log.Warnw("ws: open conversation", "conversation_id", cmd.ConversationID, "err", err)
					sess.sendError(errorMessage(err, "failed to load messages"))
					continue
				}
				sess.send(map[string]any{
					"type":            "history",
					"conversation_id": cmd.ConversationID,
					"messages":        history,
				})

			case "send_message":
				msg, err := mgr.SendMessage(ctx, cmd.Content)
				if err != nil {
					log.Warnw("ws: send message", "viewer_id", viewerID, "err", err)
					sess.sendError(errorMessage(err, "failed to send message"))
					continue
				}
				sess.send(map[string]any{
					"type":    "message_sent",
					"message": msg,
				})

			case "start_conversation":
				if cmd.CounterpartID == "" {
					sess.sendError("start_conversation requires counterpart_id")
					continue
				}
				var listing *domain.ListingRef
				if cmd.Listing != nil {
					listing = &domain.ListingRef{
						ID:    cmd.Listing.ID,
						Title: cmd.Listing.Title,
						Price: cmd.Listing.Price,
					}
				}
				conv, history, err := mgr.StartConversationWith(ctx, cmd.CounterpartID, listing)
				if err != nil {
					log.Warnw("ws: start conversation", "counterpart_id", cmd.CounterpartID, "err", err)
					sess.sendError(errorMessage(err, "failed to start conversation"))
					continue
				}
				sess.send(map[string]any{
					"type":            "history",
					"conversation_id": conv.ID,
					"messages":        history,
				})

			default:
				log.Debugw("ws: unknown command", "command", cmd.Type, "viewer_id", viewerID)
			}
		}
	}
}
