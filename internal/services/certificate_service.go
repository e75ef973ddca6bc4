package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soins-plus/training-service/internal/events"
	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
)

// CertificateRenderer produces the durable URL of a certificate document.
type CertificateRenderer interface {
	Render(ctx context.Context, certificate *models.Certificate, enrollment *models.Enrollment, training *models.Training) (string, error)
}

// URLCertificateRenderer points at <base>/<number>.pdf; the document itself is
// generated by the file service behind that URL.
type URLCertificateRenderer struct {
	BaseURL string
}

func NewURLCertificateRenderer(baseURL string) *URLCertificateRenderer {
	return &URLCertificateRenderer{BaseURL: baseURL}
}

func (r *URLCertificateRenderer) Render(_ context.Context, certificate *models.Certificate, _ *models.Enrollment, _ *models.Training) (string, error) {
	if r.BaseURL == "" {
		return "", errors.New("certificate base URL is not configured")
	}
	return url.JoinPath(r.BaseURL, certificate.Number+".pdf")
}

type certificateService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	publisher events.EventPublisher
	renderer  CertificateRenderer
}

func NewCertificateService(repo repositories.Repository, logger *slog.Logger, publisher events.EventPublisher, renderer CertificateRenderer) CertificateService {
	return &certificateService{
		repo:      repo,
		logger:    logger,
		publisher: publisher,
		renderer:  renderer,
	}
}

func (s *certificateService) IssueCertificate(ctx context.Context, enrollmentID uint, fileURL string, issuerID string) (*models.Certificate, error) {
	s.logger.Info("Issuing certificate", "enrollment_id", enrollmentID, "issuer_id", issuerID)

	var certificate *models.Certificate
	var trainingTitle string
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		enrollment, err := tx.Enrollment().GetForUpdate(ctx, enrollmentID)
		if err != nil {
			return mapNotFound(err, ErrEnrollmentNotFound)
		}
		if !enrollment.IsCompleted() {
			return ErrEnrollmentNotComplete
		}

		_, err = tx.Certificate().GetByEnrollment(ctx, enrollmentID)
		if err == nil {
			return ErrCertificateAlreadyIssued
		}
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check existing certificate: %w", err)
		}

		training, err := trainingOf(ctx, tx, enrollment)
		if err != nil {
			return err
		}

		issuedAt := time.Now().UTC()
		if enrollment.CompletedAt != nil && issuedAt.Before(*enrollment.CompletedAt) {
			issuedAt = *enrollment.CompletedAt
		}

		cert := &models.Certificate{
			UserID:       enrollment.UserID,
			TrainingID:   enrollment.TrainingID,
			EnrollmentID: enrollment.ID,
			Number:       newCertificateNumber(issuedAt),
			FileURL:      strings.TrimSpace(fileURL),
			IssuedAt:     issuedAt,
		}
		if cert.FileURL == "" {
			if s.renderer == nil {
				return errors.New("no certificate renderer configured")
			}
			cert.FileURL, err = s.renderer.Render(ctx, cert, enrollment, training)
			if err != nil {
				return fmt.Errorf("failed to render certificate: %w", err)
			}
		}

		if err := tx.Certificate().Create(ctx, cert); err != nil {
			if repositories.IsUniqueViolation(err) {
				return ErrCertificateAlreadyIssued
			}
			return fmt.Errorf("failed to create certificate: %w", err)
		}

		certificate = cert
		trainingTitle = training.Title
		return nil
	})
	if err != nil {
		s.logger.Warn("Certificate issuance failed", "enrollment_id", enrollmentID, "error", err)
		return nil, err
	}

	s.logger.Info("Certificate issued",
		"certificate_id", certificate.ID,
		"number", certificate.Number,
		"enrollment_id", enrollmentID)

	publishAll(ctx, s.publisher, s.logger, events.NewCertificateIssuedEvent(certificate, trainingTitle))
	return certificate, nil
}

func (s *certificateService) GetCertificate(ctx context.Context, id uint, requesterID string, requesterRole models.UserRole) (*models.Certificate, error) {
	certificate, err := s.repo.Certificate().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCertificateNotFound)
	}
	if certificate.UserID != requesterID && !requesterRole.IsStaff() {
		return nil, NewPermissionError(requesterID, id, "certificate", "read", "not owner or insufficient permissions")
	}
	return certificate, nil
}

func (s *certificateService) ListByUser(ctx context.Context, userID string) ([]*models.Certificate, error) {
	certificates, err := s.repo.Certificate().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", repositories.ClassifyStoreError(err))
	}
	return certificates, nil
}

// newCertificateNumber returns e.g. CERT-20260114-3F2A9C1B7D4E
func newCertificateNumber(issuedAt time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("CERT-%s-%s", issuedAt.Format("20060102"), id[:12])
}
