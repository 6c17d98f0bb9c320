package gmailapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/greeting_services/internal/delivery_service/domain"
	"github.com/aradsms/greeting_services/internal/delivery_service/mimemsg"
)

var _ domain.Sender = (*GmailSender)(nil)

// GmailSender posts base64url-encoded MIME messages to the Gmail users.messages.send endpoint.
type GmailSender struct {
	logger      *slog.Logger
	httpClient  *http.Client
	apiURL      string
	from        mail.Address
	credentials domain.CredentialProvider
}

func NewGmailSender(logger *slog.Logger, apiURL string, from mail.Address, credentials domain.CredentialProvider, httpClient *http.Client) *GmailSender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GmailSender{
		logger:      logger.With("provider", "gmail"),
		httpClient:  httpClient,
		apiURL:      apiURL,
		from:        from,
		credentials: credentials,
	}
}

type sendRequestBody struct {
	Raw string `json:"raw"`
}

type sendResponseBody struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

type errorResponseBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (s *GmailSender) Send(ctx context.Context, msg domain.Message) (*domain.SendReceipt, error) {
	token, err := s.credentials.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := mimemsg.Build(mimemsg.Envelope{
		From:      s.from,
		To:        mail.Address{Name: msg.ToName, Address: msg.To},
		Subject:   msg.Subject,
		Date:      time.Now(),
		MessageID: uuid.NewString() + "@" + domainOf(s.from.Address),
	}, msg.Body, msg.HTMLBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build MIME message: %w", err)
	}

	reqBytes, err := json.Marshal(sendRequestBody{Raw: base64.URLEncoding.EncodeToString(raw)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Gmail request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to send request to Gmail", "error", err, "to", msg.To)
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderTransport, err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response (status %d): %v", domain.ErrProviderTransport, httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		errMsg := fmt.Sprintf("status %d", httpResp.StatusCode)
		var errResp errorResponseBody
		if json.Unmarshal(respBytes, &errResp) == nil && errResp.Error.Message != "" {
			errMsg = fmt.Sprintf("status %d, message: %s", httpResp.StatusCode, errResp.Error.Message)
		}
		s.logger.WarnContext(ctx, "Gmail send failed", "status_code", httpResp.StatusCode, "error_message", errMsg, "to", msg.To)
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderRejected, errMsg)
	}

	var sendResp sendResponseBody
	if err := json.Unmarshal(respBytes, &sendResp); err != nil {
		s.logger.WarnContext(ctx, "Gmail accepted message but response was unreadable", "error", err, "to", msg.To)
	}

	s.logger.InfoContext(ctx, "Email sent via Gmail API", "to", msg.To, "provider_message_id", sendResp.ID)
	return &domain.SendReceipt{
		Provider:          s.GetName(),
		ProviderMessageID: sendResp.ID,
		AcceptedAt:        time.Now().UTC(),
	}, nil
}

func (s *GmailSender) GetName() string {
	return "gmail"
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
