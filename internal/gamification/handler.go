package gamification

import (
	"encoding/json"
	"net/http"

	"github.com/moneymoves/backend/internal/models"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// GetStats returns the authenticated user's streak/score stats and the badges
// they have earned.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int64)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	stats, err := h.store.GetOrCreateStats(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load stats"})
		return
	}

	badges, err := h.store.GetUserBadges(userID)
	if err != nil {
		badges = []models.UserBadge{}
	}

	writeJSON(w, http.StatusOK, models.StatsResponse{Stats: *stats, Badges: badges})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
