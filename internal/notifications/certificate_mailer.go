package notifications

import (
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/soins-plus/training-service/internal/events"
	"github.com/soins-plus/training-service/internal/repositories"
)

// CertificateMailer emails the learner a link to a freshly issued certificate
type CertificateMailer struct {
	mailer Mailer
	users  repositories.UserRepository
	logger *slog.Logger
}

func NewCertificateMailer(mailer Mailer, users repositories.UserRepository, logger *slog.Logger) *CertificateMailer {
	return &CertificateMailer{
		mailer: mailer,
		users:  users,
		logger: logger,
	}
}

// Handle consumes one certificate.issued message
func (c *CertificateMailer) Handle(msg *message.Message) error {
	var data events.CertificateIssuedData
	event, err := events.DecodeEvent(msg, &data)
	if err != nil {
		// A malformed payload will never succeed; drop it
		c.logger.Error("Discarding undecodable certificate event", "message_uuid", msg.UUID, "error", err)
		return nil
	}

	ctx := msg.Context()
	user, err := c.users.GetByID(ctx, data.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			c.logger.Warn("Certificate owner no longer exists", "user_id", data.UserID, "certificate_id", data.CertificateID)
			return nil
		}
		return fmt.Errorf("failed to load certificate owner: %w", err)
	}

	if err := c.mailer.Send(ctx, certificateMessage(user.FullName, user.Email, data)); err != nil {
		return err
	}

	c.logger.Info("Certificate mail sent", "event_id", event.ID, "certificate_id", data.CertificateID, "user_id", data.UserID)
	return nil
}

func certificateMessage(name, email string, data events.CertificateIssuedData) Message {
	subject := fmt.Sprintf("Votre attestation « %s »", data.TrainingTitle)
	text := fmt.Sprintf("Bonjour %s,\n\nVotre attestation n° %s pour la formation « %s » est disponible : %s\n",
		name, data.Number, data.TrainingTitle, data.FileURL)
	htmlBody := fmt.Sprintf("<p>Bonjour %s,</p><p>Votre attestation n° %s pour la formation « %s » est disponible : <a href=\"%s\">télécharger</a></p>",
		html.EscapeString(name), html.EscapeString(data.Number), html.EscapeString(data.TrainingTitle), html.EscapeString(data.FileURL))

	return Message{
		ToName:      name,
		ToAddress:   email,
		Subject:     subject,
		TextContent: text,
		HTMLContent: htmlBody,
	}
}

// NewRouter wires the certificate mailer onto subscriber with retry and panic recovery
func NewRouter(subscriber message.Subscriber, mailer *CertificateMailer, logger *slog.Logger) (*message.Router, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	router.AddMiddleware(
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
		middleware.Recoverer,
	)

	router.AddNoPublisherHandler(
		"certificate_mailer",
		events.CertificateIssued,
		subscriber,
		mailer.Handle,
	)

	return router, nil
}
