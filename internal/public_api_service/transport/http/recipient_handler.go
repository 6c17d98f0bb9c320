package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	contactapp "github.com/aradsms/greeting_services/internal/contact_service/app"
	contactdomain "github.com/aradsms/greeting_services/internal/contact_service/domain"
)

// RecipientService is the contact store as seen by the API.
type RecipientService interface {
	CreateRecipient(ctx context.Context, in contactapp.RecipientInput) (*contactdomain.Recipient, error)
	GetRecipient(ctx context.Context, id uuid.UUID) (*contactdomain.Recipient, error)
	ListRecipients(ctx context.Context, offset, limit int) ([]*contactdomain.Recipient, error)
	UpdateRecipient(ctx context.Context, id uuid.UUID, in contactapp.RecipientInput) (*contactdomain.Recipient, error)
	DeleteRecipient(ctx context.Context, id uuid.UUID) error
	RecipientsMatchingToday(ctx context.Context) ([]*contactdomain.Recipient, error)
	RecipientsInGroup(ctx context.Context, tag string) ([]*contactdomain.Recipient, error)
	DistinctGroupTags(ctx context.Context) ([]string, error)
	ListLogs(ctx context.Context, offset, limit int) ([]*contactdomain.SendLogView, error)
}

type deps struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// RecipientHandler handles HTTP requests for recipients, groups and the send log.
type RecipientHandler struct {
	deps
	recipients RecipientService
}

// NewRecipientHandler creates a new RecipientHandler.
func NewRecipientHandler(svc RecipientService, logger *slog.Logger, validate *validator.Validate) *RecipientHandler {
	return &RecipientHandler{
		deps:       deps{logger: logger.With("handler", "recipient"), validate: validate},
		recipients: svc,
	}
}

// RegisterRoutes sets up the routing for recipient operations.
func (h *RecipientHandler) RegisterRoutes(r chi.Router) {
	r.Post("/recipients", h.CreateRecipient)
	r.Get("/recipients", h.ListRecipients)
	r.Get("/recipients/today", h.ListToday)
	r.Get("/recipients/{recipientID}", h.GetRecipient)
	r.Put("/recipients/{recipientID}", h.UpdateRecipient)
	r.Delete("/recipients/{recipientID}", h.DeleteRecipient)

	r.Get("/groups", h.ListGroups)
	r.Get("/groups/{tag}/recipients", h.ListGroupRecipients)

	r.Get("/logs", h.ListLogs)
}

func (dto RecipientRequestDTO) toInput() contactapp.RecipientInput {
	return contactapp.RecipientInput{
		Name:          dto.Name,
		Email:         dto.Email,
		Phone:         dto.Phone,
		RecurringDate: dto.RecurringDate,
		GroupTag:      dto.GroupTag,
		OptOut:        dto.OptOut,
	}
}

func (h *RecipientHandler) CreateRecipient(w http.ResponseWriter, r *http.Request) {
	var reqDTO RecipientRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO) {
		return
	}
	recipient, err := h.recipients.CreateRecipient(r.Context(), reqDTO.toInput())
	if err != nil {
		respondWithDomainError(w, r, h.logger, "Create recipient", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, recipient)
}

func (h *RecipientHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePagination(r)
	recipients, err := h.recipients.ListRecipients(r.Context(), offset, limit)
	if err != nil {
		respondWithDomainError(w, r, h.logger, "List recipients", err)
		return
	}
	respondWithJSON(w, http.StatusOK, ListRecipientsResponseDTO{Recipients: recipients, Offset: offset, Limit: limit})
}

// ListToday returns the recipients a recurring-date batch would greet today.
func (h *RecipientHandler) ListToday(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.recipients.RecipientsMatchingToday(r.Context())
	if err != nil {
		respondWithDomainError(w, r, h.logger, "List today's recipients", err)
		return
	}
	respondWithJSON(w, http.StatusOK, ListRecipientsResponseDTO{Recipients: recipients, Limit: len(recipients)})
}

func (h *RecipientHandler) GetRecipient(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "recipientID")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid recipient ID format")
		return
	}
	recipient, err := h.recipients.GetRecipient(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, r, h.logger, "Get recipient", err)
		return
	}
	respondWithJSON(w, http.StatusOK, recipient)
}

func (h *RecipientHandler) UpdateRecipient(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "recipientID")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid recipient ID format")
		return
	}
	var reqDTO RecipientRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO) {
		return
	}
	recipient, err := h.recipients.UpdateRecipient(r.Context(), id, reqDTO.toInput())
	if err != nil {
		respondWithDomainError(w, r, h.logger, "Update recipient", err)
		return
	}
	respondWithJSON(w, http.StatusOK, recipient)
}

func (h *RecipientHandler) DeleteRecipient(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "recipientID")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid recipient ID format")
		return
	}
	if err := h.recipients.DeleteRecipient(r.Context(), id); err != nil {
		respondWithDomainError(w, r, h.logger, "Delete recipient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecipientHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.recipients.DistinctGroupTags(r.Context())
	if err != nil {
		respondWithDomainError(w, r, h.logger, "List groups", err)
		return
	}
	respondWithJSON(w, http.StatusOK, ListGroupsResponseDTO{Groups: groups})
}

func (h *RecipientHandler) ListGroupRecipients(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimSpace(chi.URLParam(r, "tag"))
	if tag == "" {
		respondWithError(w, http.StatusBadRequest, "Group tag is required")
		return
	}
	recipients, err := h.recipients.RecipientsInGroup(r.Context(), tag)
	if err != nil {
		respondWithDomainError(w, r, h.logger, "List group recipients", err)
		return
	}
	respondWithJSON(w, http.StatusOK, ListRecipientsResponseDTO{Recipients: recipients, Limit: len(recipients)})
}

func (h *RecipientHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePagination(r)
	logs, err := h.recipients.ListLogs(r.Context(), offset, limit)
	if err != nil {
		respondWithDomainError(w, r, h.logger, "List send logs", err)
		return
	}
	respondWithJSON(w, http.StatusOK, ListLogsResponseDTO{Logs: logs, Offset: offset, Limit: limit})
}
