package http

import (
	composerdomain "github.com/aradsms/greeting_services/internal/composer_service/domain"
	contactdomain "github.com/aradsms/greeting_services/internal/contact_service/domain"
	occasiondomain "github.com/aradsms/greeting_services/internal/occasion_service/domain"
)

// --- Recipient DTOs ---

// RecipientRequestDTO is used for creating and replacing a recipient.
type RecipientRequestDTO struct {
	Name          string `json:"name" validate:"required,max=255"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Phone         string `json:"phone,omitempty" validate:"max=50"`
	RecurringDate string `json:"recurring_date,omitempty"` // MM-DD or YYYY-MM-DD
	GroupTag      string `json:"group_tag,omitempty" validate:"max=100"`
	OptOut        bool   `json:"opt_out"`
}

// ListRecipientsResponseDTO is the response for listing recipients.
type ListRecipientsResponseDTO struct {
	Recipients []*contactdomain.Recipient `json:"recipients"`
	Offset     int                        `json:"offset"`
	Limit      int                        `json:"limit"`
}

// ListGroupsResponseDTO lists the distinct group tags in use.
type ListGroupsResponseDTO struct {
	Groups []string `json:"groups"`
}

// ListLogsResponseDTO is the response for listing send log entries.
type ListLogsResponseDTO struct {
	Logs   []*contactdomain.SendLogView `json:"logs"`
	Offset int                          `json:"offset"`
	Limit  int                          `json:"limit"`
}

// --- Occasion DTOs ---

// OccasionRequestDTO is used for creating and replacing an occasion.
type OccasionRequestDTO struct {
	GroupTag string `json:"group_tag" validate:"required,max=100"`
	Name     string `json:"name" validate:"required,max=255"`
	Date     string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ListOccasionsResponseDTO is the response for listing occasions.
type ListOccasionsResponseDTO struct {
	Occasions []*occasiondomain.Occasion `json:"occasions"`
}

// GroupOccasionsResponseDTO lists the occasion names of one group.
type GroupOccasionsResponseDTO struct {
	GroupTag  string   `json:"group_tag"`
	Occasions []string `json:"occasions"`
}

// --- Greeting DTOs ---

// PreviewRequestDTO asks for a composed greeting without sending it.
type PreviewRequestDTO struct {
	Name     string `json:"name" validate:"required,max=255"`
	Occasion string `json:"occasion" validate:"required,max=255"`
}

// PreviewResponseDTO wraps the composed bundle.
type PreviewResponseDTO struct {
	Bundle *composerdomain.MessageBundle `json:"bundle"`
}

// GroupBatchRequestDTO starts a group-occasion batch.
type GroupBatchRequestDTO struct {
	GroupTag         string `json:"group_tag" validate:"required,max=100"`
	Occasion         string `json:"occasion,omitempty"`
	FallbackOccasion string `json:"fallback_occasion,omitempty"`
}

// CustomBatchRequestDTO starts a custom batch. At least one of Title and Message is required.
type CustomBatchRequestDTO struct {
	Groups  []string `json:"groups,omitempty" validate:"omitempty,dive,required"`
	Title   string   `json:"title,omitempty" validate:"required_without=Message"`
	Message string   `json:"message,omitempty"`
}

// GenericErrorResponse for API errors
type GenericErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
