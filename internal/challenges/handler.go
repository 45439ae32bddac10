package challenges

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/moneymoves/backend/internal/models"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

// GetToday serves the challenge for the authenticated user's current calendar
// day, in their own timezone.
func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	loc := time.UTC
	if tz, err := h.store.UserTimezone(userID); err == nil {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	dateKey := time.Now().In(loc).Format("2006-01-02")

	challenge, err := h.store.GetByDateKey(dateKey)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No challenge published for today"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load challenge"})
		return
	}

	writeJSON(w, http.StatusOK, challenge)
}

func (h *Handler) GetByDate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	dateKey := vars["date"]
	if _, err := time.Parse("2006-01-02", dateKey); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid date, expected YYYY-MM-DD"})
		return
	}

	challenge, err := h.store.GetByDateKey(dateKey)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No challenge for that date"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load challenge"})
		return
	}

	writeJSON(w, http.StatusOK, challenge)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
