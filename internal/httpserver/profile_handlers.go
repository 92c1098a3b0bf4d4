package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/service"
)

// handleGetProfile resolves a display profile. Always answers 200: a missing
// profile resolves to the placeholder, never to an error.
func handleGetProfile(profileSvc *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := profileSvc.Resolve(r.Context(), chi.URLParam(r, "userID"))
		writeJSON(w, http.StatusOK, p)
	}
}

type profileSyncRequest struct {
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// handleSyncProfile upserts the viewer's own display profile, pushed by the
// SPA after the platform's account service updates it.
func handleSyncProfile(profileSvc *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileSyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		p := &domain.Profile{
			ID:        ViewerID(r),
			Name:      req.Name,
			AvatarURL: req.AvatarURL,
		}
		if err := profileSvc.Sync(r.Context(), p); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
