package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/service"
)

type startConversationRequest struct {
	CounterpartID string `json:"counterpart_id"`
}

// handleStartConversation finds or creates the conversation between the
// viewer and a counterpart. The auto-opener flow is session-scoped and lives
// on the WebSocket surface; this route only guarantees the thread exists.
func handleStartConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		conv, err := convSvc.FindOrCreate(r.Context(), ViewerID(r), req.CounterpartID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, conv)
	}
}

func handleInbox(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := convSvc.Inbox(r.Context(), ViewerID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleGetConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, err := convSvc.Get(r.Context(), chi.URLParam(r, "conversationID"), ViewerID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func handleMarkConversationRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "conversationID")
		if err := msgSvc.MarkRead(r.Context(), id, ViewerID(r)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}
