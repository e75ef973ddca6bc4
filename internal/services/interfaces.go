package services

import (
	"context"
	"time"

	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateTrainingRequest = validator.TrainingCreateRequest
type UpdateTrainingRequest = validator.TrainingUpdateRequest
type QuizSubmissionRequest = validator.QuizSubmissionRequest

type TrainingListResponse struct {
	Trainings []*models.Training `json:"trainings"`
	Total     int64              `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type EnrollmentListResponse struct {
	Enrollments []*models.Enrollment `json:"enrollments"`
	Total       int64                `json:"total"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// ProgressResponse is the learner's view of a video training
type ProgressResponse struct {
	TrainingID        uint                `json:"training_id"`
	UserID            string              `json:"user_id"`
	CompletionRatio   float64             `json:"completion_ratio"`
	ChaptersCompleted int                 `json:"chapters_completed"`
	ChaptersTotal     int                 `json:"chapters_total"`
	CompletedChapters []uint              `json:"completed_chapters"`
	Enrollment        *models.Enrollment  `json:"enrollment,omitempty"`
	LatestAttempt     *models.QuizAttempt `json:"latest_attempt,omitempty"`
}

type ChapterCompletionResponse struct {
	Progress        *models.ChapterProgress `json:"progress"`
	CompletionRatio float64                 `json:"completion_ratio"`
	Enrollment      *models.Enrollment      `json:"enrollment"`
}

type QuizSubmissionResponse struct {
	Attempt    *models.QuizAttempt `json:"attempt"`
	Result     *QuizResult         `json:"result"`
	Enrollment *models.Enrollment  `json:"enrollment"`
}

// ===== SERVICE INTERFACES =====

type TrainingService interface {
	Create(ctx context.Context, req *CreateTrainingRequest, creatorID string) (*models.Training, error)
	// GetByID returns the training with chapters and quiz. Correct answers are
	// only visible to staff.
	GetByID(ctx context.Context, id uint, viewerRole models.UserRole) (*models.Training, error)
	Update(ctx context.Context, id uint, req *UpdateTrainingRequest, userID string) (*models.Training, error)
	Delete(ctx context.Context, id uint, userID string) error
	List(ctx context.Context, filters repositories.TrainingFilters) (*TrainingListResponse, error)
}

type EnrollmentService interface {
	Register(ctx context.Context, userID string, trainingID uint) (*models.Enrollment, error)
	Confirm(ctx context.Context, enrollmentID uint, actorID string) (*models.Enrollment, error)
	RecordAttendance(ctx context.Context, enrollmentID uint, attended bool, trainerID string) (*models.Enrollment, error)
	// CheckCompletion re-runs the completion guard, e.g. once a scheduled training's date has passed
	CheckCompletion(ctx context.Context, enrollmentID uint, actorID string) (*models.Enrollment, error)

	GetEnrollment(ctx context.Context, enrollmentID uint, requesterID string, requesterRole models.UserRole) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string, filters repositories.EnrollmentFilters) (*EnrollmentListResponse, error)
	ListByTraining(ctx context.Context, trainingID uint, filters repositories.EnrollmentFilters) (*EnrollmentListResponse, error)
}

type ProgressService interface {
	RecordChapterComplete(ctx context.Context, userID string, trainingID, chapterID uint, at time.Time) (*ChapterCompletionResponse, error)
	CompletionRatio(ctx context.Context, userID string, trainingID uint) (float64, error)
	GetProgress(ctx context.Context, userID string, trainingID uint) (*ProgressResponse, error)
}

type QuizService interface {
	SubmitQuiz(ctx context.Context, userID string, trainingID uint, submission QuizSubmission) (*QuizSubmissionResponse, error)
	ListAttempts(ctx context.Context, userID string, trainingID uint) ([]*models.QuizAttempt, error)
}

type CertificateService interface {
	// IssueCertificate rejects re-issuance with ErrCertificateAlreadyIssued.
	// An empty fileURL is produced by the configured renderer.
	IssueCertificate(ctx context.Context, enrollmentID uint, fileURL string, issuerID string) (*models.Certificate, error)
	GetCertificate(ctx context.Context, id uint, requesterID string, requesterRole models.UserRole) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Certificate, error)
}

type ReportService interface {
	// TrainingRosterXLSX renders the enrollment roster of a training as an Excel workbook
	TrainingRosterXLSX(ctx context.Context, trainingID uint) ([]byte, error)
}

// ServiceManager interface for managing all services
type ServiceManager interface {
	Training() TrainingService
	Enrollment() EnrollmentService
	Progress() ProgressService
	Quiz() QuizService
	Certificate() CertificateService
	Report() ReportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
