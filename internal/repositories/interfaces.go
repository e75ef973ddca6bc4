package repositories

import (
	"context"

	"github.com/soins-plus/training-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TrainingFilters struct {
	Type       *models.TrainingType `json:"type"`
	Theme      *string              `json:"theme"`
	Accredited *bool                `json:"accredited"`
	Query      string               `json:"query"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
	SortBy     string               `json:"sort_by"`    // "created_at", "title", "start_date"
	SortOrder  string               `json:"sort_order"` // "asc", "desc"
}

type EnrollmentFilters struct {
	Status    *models.EnrollmentStatus `json:"status"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`
	SortOrder string                   `json:"sort_order"`
}

// ===== CATALOGUE =====

type TrainingRepository interface {
	// Create inserts the training together with its chapters and quiz
	Create(ctx context.Context, training *models.Training) error
	GetByID(ctx context.Context, id uint) (*models.Training, error)
	// GetByIDWithDetails loads ordered chapters and the quiz with questions and answers
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Training, error)
	// GetForUpdate locks the training row until the surrounding transaction ends
	GetForUpdate(ctx context.Context, id uint) (*models.Training, error)
	Update(ctx context.Context, training *models.Training) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters TrainingFilters) ([]*models.Training, int64, error)
}

type ChapterRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Chapter, error)
	ListByTraining(ctx context.Context, trainingID uint) ([]*models.Chapter, error)
	CountByTraining(ctx context.Context, trainingID uint) (int64, error)
}

type QuizRepository interface {
	// GetByTraining loads the quiz with questions and answers; not found when the training has no quiz
	GetByTraining(ctx context.Context, trainingID uint) (*models.Quiz, error)
}

// ===== LEARNER STATE =====

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, id uint) (*models.Enrollment, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Enrollment, error)
	GetByUserAndTraining(ctx context.Context, userID string, trainingID uint) (*models.Enrollment, error)
	GetByUserAndTrainingForUpdate(ctx context.Context, userID string, trainingID uint) (*models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
	CountByTraining(ctx context.Context, trainingID uint) (int64, error)
	ListByUser(ctx context.Context, userID string, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)
	ListByTraining(ctx context.Context, trainingID uint, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)
}

type ProgressRepository interface {
	// Upsert inserts the record or refreshes CompletedAt for an existing (user, chapter) pair
	Upsert(ctx context.Context, progress *models.ChapterProgress) error
	CountCompleted(ctx context.Context, userID string, trainingID uint) (int64, error)
	// CountCompletedByTraining returns completed chapters per learner in one grouped query
	CountCompletedByTraining(ctx context.Context, trainingID uint) (map[string]int64, error)
	ListByUserAndTraining(ctx context.Context, userID string, trainingID uint) ([]*models.ChapterProgress, error)
}

type QuizAttemptRepository interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	// GetLatest returns the most recent attempt of the enrollment
	GetLatest(ctx context.Context, enrollmentID uint) (*models.QuizAttempt, error)
	ListByEnrollment(ctx context.Context, enrollmentID uint) ([]*models.QuizAttempt, error)
}

type CertificateRepository interface {
	Create(ctx context.Context, certificate *models.Certificate) error
	GetByID(ctx context.Context, id uint) (*models.Certificate, error)
	GetByEnrollment(ctx context.Context, enrollmentID uint) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Certificate, error)
	ListByTraining(ctx context.Context, trainingID uint) ([]*models.Certificate, error)
}
