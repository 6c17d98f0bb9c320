package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/greeting_services/internal/delivery_service/domain"
	"github.com/aradsms/greeting_services/internal/delivery_service/mimemsg"
)

var _ domain.Sender = (*SMTPSender)(nil)

// Config holds SMTP connection settings. Port 465 implies implicit TLS.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string // application password
	From        mail.Address
	ImplicitTLS bool
	Timeout     time.Duration
}

// SMTPSender delivers messages over SMTP with stored application credentials.
type SMTPSender struct {
	cfg       Config
	tlsConfig *tls.Config
	logger    *slog.Logger
}

func NewSMTPSender(logger *slog.Logger, cfg Config) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		logger:    logger.With("provider", "smtp"),
	}
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	d := &net.Dialer{Timeout: s.cfg.Timeout}
	if s.cfg.ImplicitTLS {
		td := &tls.Dialer{NetDialer: d, Config: s.tlsConfig}
		return td.DialContext(ctx, "tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

func (s *SMTPSender) Send(ctx context.Context, msg domain.Message) (*domain.SendReceipt, error) {
	raw, err := mimemsg.Build(mimemsg.Envelope{
		From:      s.cfg.From,
		To:        mail.Address{Name: msg.ToName, Address: msg.To},
		Subject:   msg.Subject,
		Date:      time.Now(),
		MessageID: uuid.NewString() + "@" + s.cfg.Host,
	}, msg.Body, msg.HTMLBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build MIME message: %w", err)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to connect to SMTP server", "error", err, "host", s.cfg.Host, "port", s.cfg.Port)
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderTransport, err)
	}
	deadline := time.Now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, classify(err)
	}
	defer c.Close()

	if !s.cfg.ImplicitTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.tlsConfig); err != nil {
				return nil, classify(err)
			}
		}
	}

	if s.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return nil, fmt.Errorf("%w: server does not support AUTH", domain.ErrProviderRejected)
		}
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			s.logger.WarnContext(ctx, "SMTP authentication failed", "error", err, "username", s.cfg.Username)
			return nil, classify(err)
		}
	}

	if err := c.Mail(s.cfg.From.Address); err != nil {
		return nil, classify(err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return nil, classify(err)
	}
	w, err := c.Data()
	if err != nil {
		return nil, classify(err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, classify(err)
	}
	if err := w.Close(); err != nil {
		return nil, classify(err)
	}
	if err := c.Quit(); err != nil {
		// The message was already accepted by the server at this point.
		s.logger.DebugContext(ctx, "SMTP QUIT failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Email sent via SMTP", "to", msg.To, "host", s.cfg.Host)
	return &domain.SendReceipt{
		Provider:   s.GetName(),
		AcceptedAt: time.Now().UTC(),
	}, nil
}

func (s *SMTPSender) GetName() string {
	return "smtp"
}

// classify maps SMTP reply errors to rejections and everything else to transport failures.
func classify(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return fmt.Errorf("%w: %d %s", domain.ErrProviderRejected, protoErr.Code, protoErr.Msg)
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderTransport, err)
}
