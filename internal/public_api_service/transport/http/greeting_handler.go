package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	composerdomain "github.com/aradsms/greeting_services/internal/composer_service/domain"
	greetingdomain "github.com/aradsms/greeting_services/internal/greeting_service/domain"
)

// Previewer composes a greeting without sending it.
type Previewer interface {
	Compose(ctx context.Context, recipientName, occasionLabel string) (*composerdomain.MessageBundle, error)
}

// BatchRunner runs greeting batches.
type BatchRunner interface {
	Run(ctx context.Context, req greetingdomain.BatchRequest) (*greetingdomain.BatchSummary, error)
}

// GreetingHandler handles previews and batch runs. Batch endpoints block until the batch finishes.
type GreetingHandler struct {
	deps
	composer Previewer
	batches  BatchRunner
}

// NewGreetingHandler creates a new GreetingHandler.
func NewGreetingHandler(composer Previewer, batches BatchRunner, logger *slog.Logger, validate *validator.Validate) *GreetingHandler {
	return &GreetingHandler{
		deps:     deps{logger: logger.With("handler", "greeting"), validate: validate},
		composer: composer,
		batches:  batches,
	}
}

func (h *GreetingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/greetings/preview", h.Preview)
	r.Route("/batches", func(br chi.Router) {
		br.Post("/birthdays", h.RunBirthdays)
		br.Post("/group", h.RunGroup)
		br.Post("/custom", h.RunCustom)
	})
}

func (h *GreetingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var reqDTO PreviewRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO) {
		return
	}
	bundle, err := h.composer.Compose(r.Context(), reqDTO.Name, reqDTO.Occasion)
	if err != nil {
		var compErr *composerdomain.CompositionError
		if errors.As(err, &compErr) {
			h.logger.WarnContext(r.Context(), "Preview composition failed", "error", err)
			respondWithJSON(w, http.StatusBadGateway, GenericErrorResponse{Error: err.Error(), Details: compErr.Raw})
			return
		}
		respondWithDomainError(w, r, h.logger, "Preview greeting", err)
		return
	}
	respondWithJSON(w, http.StatusOK, PreviewResponseDTO{Bundle: bundle})
}

func (h *GreetingHandler) RunBirthdays(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, greetingdomain.BatchRequest{Mode: greetingdomain.ModeByDate})
}

func (h *GreetingHandler) RunGroup(w http.ResponseWriter, r *http.Request) {
	var reqDTO GroupBatchRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO) {
		return
	}
	h.run(w, r, greetingdomain.BatchRequest{
		Mode:             greetingdomain.ModeByGroup,
		GroupTag:         reqDTO.GroupTag,
		Occasion:         reqDTO.Occasion,
		FallbackOccasion: reqDTO.FallbackOccasion,
	})
}

func (h *GreetingHandler) RunCustom(w http.ResponseWriter, r *http.Request) {
	var reqDTO CustomBatchRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO) {
		return
	}
	h.run(w, r, greetingdomain.BatchRequest{
		Mode:    greetingdomain.ModeCustom,
		Groups:  reqDTO.Groups,
		Title:   reqDTO.Title,
		Message: reqDTO.Message,
	})
}

func (h *GreetingHandler) run(w http.ResponseWriter, r *http.Request, req greetingdomain.BatchRequest) {
	h.logger.InfoContext(r.Context(), "Batch requested over HTTP", "mode", req.Mode, "group_tag", req.GroupTag)
	summary, err := h.batches.Run(r.Context(), req)
	if err != nil {
		respondWithDomainError(w, r, h.logger, "Run batch", err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
