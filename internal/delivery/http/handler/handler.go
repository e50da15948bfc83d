package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/product-image-updater/internal/delivery/http/response"
	"github.com/user/product-image-updater/internal/repository"
)

const (
	defaultFailuresLimit = 20
	maxFailuresLimit     = 500
)

type Handler struct {
	failedRepo repository.FailedRecordRepository
}

// NewHandler builds the side-server handler. failedRepo may be nil, in which
// case the failures endpoint reports itself unavailable.
func NewHandler(failedRepo repository.FailedRecordRepository) *Handler {
	return &Handler{
		failedRepo: failedRepo,
	}
}

func (h *Handler) HandleListFailures(w http.ResponseWriter, r *http.Request) {
	if h.failedRepo == nil {
		h.writeJSONError(w, "Failure ledger is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := defaultFailuresLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxFailuresLimit)
	}

	records, err := h.failedRepo.ListRecent(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list failed records", "limit", limit, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.NewFailedRecordsResponse(records))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
