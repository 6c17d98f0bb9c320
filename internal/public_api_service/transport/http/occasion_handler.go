package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	occasiondomain "github.com/aradsms/greeting_services/internal/occasion_service/domain"
)

// OccasionService is the occasion catalog as seen by the API.
type OccasionService interface {
	OccasionsForGroup(ctx context.Context, tag string) ([]string, error)
	ListOccasions(ctx context.Context, tag string) ([]*occasiondomain.Occasion, error)
	AddOccasion(ctx context.Context, tag, name string, date *time.Time) (*occasiondomain.Occasion, error)
	UpdateOccasion(ctx context.Context, id uuid.UUID, tag, name string, date *time.Time) (*occasiondomain.Occasion, error)
	DeleteOccasion(ctx context.Context, id uuid.UUID) error
}

// OccasionHandler handles HTTP requests for the occasion catalog.
type OccasionHandler struct {
	deps
	occasions OccasionService
}

// NewOccasionHandler creates a new OccasionHandler.
func NewOccasionHandler(svc OccasionService, logger *slog.Logger, validate *validator.Validate) *OccasionHandler {
	return &OccasionHandler{
		deps:      deps{logger: logger.With("handler", "occasion"), validate: validate},
		occasions: svc,
	}
}

func (h *OccasionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/occasions", h.AddOccasion)
	r.Get("/occasions", h.ListOccasions)
	r.Put("/occasions/{occasionID}", h.UpdateOccasion)
	r.Delete("/occasions/{occasionID}", h.DeleteOccasion)
	r.Get("/groups/{tag}/occasions", h.ListGroupOccasions)
}

// parsedDate returns nil for an empty date; validation already enforced YYYY-MM-DD.
func (dto OccasionRequestDTO) parsedDate() *time.Time {
	if dto.Date == "" {
		return nil
	}
	d, err := time.Parse(time.DateOnly, dto.Date)
	if err != nil {
		return nil
	}
	return &d
}

func (h *OccasionHandler) AddOccasion(w http.ResponseWriter, r *http.Request) {
	var reqDTO OccasionRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO) {
		return
	}
	occasion, err := h.occasions.AddOccasion(r.Context(), reqDTO.GroupTag, reqDTO.Name, reqDTO.parsedDate())
	if err != nil {
		respondWithDomainError(w, r, h.logger, "Add occasion", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, occasion)
}

// ListOccasions lists every occasion, or only those of ?group=.
func (h *OccasionHandler) ListOccasions(w http.ResponseWriter, r *http.Request) {
	occasions, err := h.occasions.ListOccasions(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		respondWithDomainError(w, r, h.logger, "List occasions", err)
		return
	}
	respondWithJSON(w, http.StatusOK, ListOccasionsResponseDTO{Occasions: occasions})
}

func (h *OccasionHandler) UpdateOccasion(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "occasionID")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid occasion ID format")
		return
	}
	var reqDTO OccasionRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO) {
		return
	}
	occasion, err := h.occasions.UpdateOccasion(r.Context(), id, reqDTO.GroupTag, reqDTO.Name, reqDTO.parsedDate())
	if err != nil {
		respondWithDomainError(w, r, h.logger, "Update occasion", err)
		return
	}
	respondWithJSON(w, http.StatusOK, occasion)
}

func (h *OccasionHandler) DeleteOccasion(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "occasionID")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid occasion ID format")
		return
	}
	if err := h.occasions.DeleteOccasion(r.Context(), id); err != nil {
		respondWithDomainError(w, r, h.logger, "Delete occasion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OccasionHandler) ListGroupOccasions(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimSpace(chi.URLParam(r, "tag"))
	names, err := h.occasions.OccasionsForGroup(r.Context(), tag)
	if err != nil {
		respondWithDomainError(w, r, h.logger, "List group occasions", err)
		return
	}
	respondWithJSON(w, http.StatusOK, GroupOccasionsResponseDTO{GroupTag: tag, Occasions: names})
}
