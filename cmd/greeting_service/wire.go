package main

import (
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/aradsms/greeting_services/internal/composer_service/adapters/llm"
	composerapp "github.com/aradsms/greeting_services/internal/composer_service/app"
	contactapp "github.com/aradsms/greeting_services/internal/contact_service/app"
	contactpg "github.com/aradsms/greeting_services/internal/contact_service/repository/postgres"
	"github.com/aradsms/greeting_services/internal/delivery_service/adapters/gmailapi"
	mocksender "github.com/aradsms/greeting_services/internal/delivery_service/adapters/mock"
	smtpsender "github.com/aradsms/greeting_services/internal/delivery_service/adapters/smtp"
	deliveryapp "github.com/aradsms/greeting_services/internal/delivery_service/app"
	"github.com/aradsms/greeting_services/internal/delivery_service/credentials"
	deliverydomain "github.com/aradsms/greeting_services/internal/delivery_service/domain"
	greetingapp "github.com/aradsms/greeting_services/internal/greeting_service/app"
	greetingdomain "github.com/aradsms/greeting_services/internal/greeting_service/domain"
	occasionapp "github.com/aradsms/greeting_services/internal/occasion_service/app"
	occasionpg "github.com/aradsms/greeting_services/internal/occasion_service/repository/postgres"
	"github.com/aradsms/greeting_services/internal/platform/config"
	"github.com/aradsms/greeting_services/internal/platform/database"
)

type services struct {
	contacts     *contactapp.Application
	occasions    *occasionapp.Application
	composer     *composerapp.Composer
	gateway      *deliveryapp.Router
	orchestrator *greetingapp.Orchestrator
}

// buildServices wires repositories, adapters and application services. publisher may be nil.
func buildServices(cfg *config.Config, db database.DB, publisher greetingdomain.EventPublisher, logger *slog.Logger) (*services, error) {
	contacts := contactapp.NewApplication(
		contactpg.NewPgRecipientRepository(db, logger),
		contactpg.NewPgSendLogRepository(db, logger),
		logger.With("service", "contact"),
	)
	occasions := occasionapp.NewApplication(
		occasionpg.NewPgOccasionRepository(db, logger),
		logger.With("service", "occasion"),
	)

	generator := llm.NewOpenAIClient(logger, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTemperature,
		&http.Client{Timeout: cfg.LLMTimeout})
	composer := composerapp.NewComposer(generator, cfg.SenderSignature, logger.With("service", "composer"))

	gateway, err := deliveryapp.NewRouter(cfg.MailProvider, buildSenders(cfg, logger), logger.With("service", "delivery"))
	if err != nil {
		return nil, err
	}

	orchestrator := greetingapp.NewOrchestrator(contacts, occasions, composer, gateway, publisher, greetingapp.Config{
		Workers:               cfg.BatchWorkers,
		CallTimeout:           cfg.BatchCallTimeout,
		ComposeAttempts:       cfg.BatchComposeAttempts,
		DeliverySentSubject:   cfg.NATSDeliverySentSubject,
		BatchCompletedSubject: cfg.NATSBatchCompletedSubject,
	}, logger.With("service", "greeting"))

	return &services{
		contacts:     contacts,
		occasions:    occasions,
		composer:     composer,
		gateway:      gateway,
		orchestrator: orchestrator,
	}, nil
}

// buildSenders returns every provider the configuration can support, keyed by name.
func buildSenders(cfg *config.Config, logger *slog.Logger) map[string]deliverydomain.Sender {
	from := mail.Address{Name: cfg.MailFromName, Address: cfg.MailFromAddress}
	senders := map[string]deliverydomain.Sender{
		"mock": mocksender.NewMockSender(logger, false, 0),
	}

	if cfg.SMTPHost != "" {
		senders["smtp"] = smtpsender.NewSMTPSender(logger, smtpsender.Config{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			From:        from,
			ImplicitTLS: cfg.SMTPPort == 465,
			Timeout:     cfg.MailTimeout,
		})
	}

	httpClient := &http.Client{Timeout: cfg.MailTimeout}
	var creds deliverydomain.CredentialProvider
	switch {
	case cfg.GmailAccessToken != "":
		creds = credentials.Static(cfg.GmailAccessToken)
	case cfg.GmailRefreshToken != "":
		creds = credentials.NewOAuth2Provider(cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailTokenURL,
			cfg.GmailRefreshToken, httpClient, logger)
	}
	if creds != nil {
		senders["gmail"] = gmailapi.NewGmailSender(logger, cfg.GmailAPIURL, from, creds, httpClient)
	} else if cfg.MailProvider == "gmail" {
		logger.Warn("Gmail provider selected but no access or refresh token is configured")
	}
	return senders
}
