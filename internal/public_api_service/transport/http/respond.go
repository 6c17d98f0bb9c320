package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	composerdomain "github.com/aradsms/greeting_services/internal/composer_service/domain"
	contactdomain "github.com/aradsms/greeting_services/internal/contact_service/domain"
	deliverydomain "github.com/aradsms/greeting_services/internal/delivery_service/domain"
	greetingdomain "github.com/aradsms/greeting_services/internal/greeting_service/domain"
	occasiondomain "github.com/aradsms/greeting_services/internal/occasion_service/domain"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("Failed to write JSON response", "error", err)
		}
	}
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, GenericErrorResponse{Error: message})
}

// mapDomainErrorToHTTPStatus converts service errors to HTTP status codes.
func mapDomainErrorToHTTPStatus(err error) int {
	var compErr *composerdomain.CompositionError
	var delivErr *deliverydomain.DeliveryError
	switch {
	case errors.Is(err, contactdomain.ErrNotFound), errors.Is(err, occasiondomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contactdomain.ErrInvalidRecipient),
		errors.Is(err, contactdomain.ErrInvalidMonthDay),
		errors.Is(err, contactdomain.ErrInvalidOccasionType),
		errors.Is(err, occasiondomain.ErrInvalidOccasion),
		errors.Is(err, greetingdomain.ErrNoOccasion),
		errors.Is(err, greetingdomain.ErrUnknownOccasion),
		errors.Is(err, greetingdomain.ErrEmptyGroup),
		errors.Is(err, greetingdomain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &compErr), errors.As(err, &delivErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithDomainError logs server-side failures and writes the mapped status.
func respondWithDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	code := mapDomainErrorToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), op+" failed", "error", err)
		if code == http.StatusInternalServerError {
			respondWithError(w, code, op+" failed")
			return
		}
	}
	respondWithError(w, code, err.Error())
}

func parsePagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return offset, limit
}

func uuidParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func (d *deps) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := d.validate.StructCtx(r.Context(), dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}
