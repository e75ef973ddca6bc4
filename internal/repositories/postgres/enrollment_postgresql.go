package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// Create inserts the enrollment; a duplicate (user, training) surfaces as a unique violation
func (e *EnrollmentPostgreSQL) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if err := e.db.WithContext(ctx).Omit(clause.Associations).Create(enrollment).Error; err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

func (e *EnrollmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := e.db.WithContext(ctx).
		Preload("Training").
		First(&enrollment, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &enrollment, nil
}

// GetForUpdate locks the enrollment row, then loads its training without locking it
func (e *EnrollmentPostgreSQL) GetForUpdate(ctx context.Context, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := e.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&enrollment, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock enrollment: %w", err)
	}
	return e.withTraining(ctx, &enrollment)
}

func (e *EnrollmentPostgreSQL) GetByUserAndTraining(ctx context.Context, userID string, trainingID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := e.db.WithContext(ctx).
		Preload("Training").
		Where("user_id = ? AND training_id = ?", userID, trainingID).
		First(&enrollment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) GetByUserAndTrainingForUpdate(ctx context.Context, userID string, trainingID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := e.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND training_id = ?", userID, trainingID).
		First(&enrollment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock enrollment: %w", err)
	}
	return e.withTraining(ctx, &enrollment)
}

func (e *EnrollmentPostgreSQL) withTraining(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error) {
	var training models.Training
	if err := e.db.WithContext(ctx).First(&training, enrollment.TrainingID).Error; err != nil {
		return nil, fmt.Errorf("failed to get enrollment training: %w", err)
	}
	enrollment.Training = &training
	return enrollment, nil
}

func (e *EnrollmentPostgreSQL) Update(ctx context.Context, enrollment *models.Enrollment) error {
	err := e.db.WithContext(ctx).
		Omit(clause.Associations).
		Save(enrollment).Error
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	return nil
}

func (e *EnrollmentPostgreSQL) CountByTraining(ctx context.Context, trainingID uint) (int64, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("training_id = ?", trainingID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

func (e *EnrollmentPostgreSQL) ListByUser(ctx context.Context, userID string, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	query := e.db.WithContext(ctx).Model(&models.Enrollment{}).Where("user_id = ?", userID)
	return e.list(query, filters)
}

func (e *EnrollmentPostgreSQL) ListByTraining(ctx context.Context, trainingID uint, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	query := e.db.WithContext(ctx).Model(&models.Enrollment{}).Where("training_id = ?", trainingID)
	return e.list(query, filters)
}

func (e *EnrollmentPostgreSQL) list(query *gorm.DB, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	var enrollments []*models.Enrollment
	var total int64

	query = e.helpers.ApplyEnrollmentFilters(query, filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}

	query = e.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Training").Find(&enrollments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return enrollments, total, nil
}

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

// Upsert relies on idx_user_chapter; a repeated completion only moves CompletedAt
func (p *ProgressPostgreSQL) Upsert(ctx context.Context, progress *models.ChapterProgress) error {
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed_at"}),
		}).
		Create(progress).Error
	if err != nil {
		return fmt.Errorf("failed to upsert chapter progress: %w", err)
	}

	// The conflict path does not always report the existing primary key
	err = p.db.WithContext(ctx).
		Where("user_id = ? AND chapter_id = ?", progress.UserID, progress.ChapterID).
		First(progress).Error
	if err != nil {
		return fmt.Errorf("failed to reload chapter progress: %w", err)
	}
	return nil
}

// CountCompleted counts distinct chapters of the training the user has completed
func (p *ProgressPostgreSQL) CountCompleted(ctx context.Context, userID string, trainingID uint) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Model(&models.ChapterProgress{}).
		Joins("JOIN chapters ON chapters.id = chapter_progress.chapter_id AND chapters.training_id = chapter_progress.training_id").
		Where("chapter_progress.user_id = ? AND chapter_progress.training_id = ?", userID, trainingID).
		Distinct("chapter_progress.chapter_id").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed chapters: %w", err)
	}
	return count, nil
}

type userProgressCount struct {
	UserID string
	Count  int64
}

func (p *ProgressPostgreSQL) CountCompletedByTraining(ctx context.Context, trainingID uint) (map[string]int64, error) {
	var rows []userProgressCount
	err := p.db.WithContext(ctx).
		Model(&models.ChapterProgress{}).
		Select("chapter_progress.user_id AS user_id, COUNT(DISTINCT chapter_progress.chapter_id) AS count").
		Joins("JOIN chapters ON chapters.id = chapter_progress.chapter_id AND chapters.training_id = chapter_progress.training_id").
		Where("chapter_progress.training_id = ?", trainingID).
		Group("chapter_progress.user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count completed chapters by user: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Count
	}
	return counts, nil
}

func (p *ProgressPostgreSQL) ListByUserAndTraining(ctx context.Context, userID string, trainingID uint) ([]*models.ChapterProgress, error) {
	var progress []*models.ChapterProgress
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND training_id = ?", userID, trainingID).
		Order("completed_at ASC").
		Find(&progress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chapter progress: %w", err)
	}
	return progress, nil
}

type QuizAttemptPostgreSQL struct {
	db *gorm.DB
}

func NewQuizAttemptPostgreSQL(db *gorm.DB) repositories.QuizAttemptRepository {
	return &QuizAttemptPostgreSQL{db: db}
}

func (q *QuizAttemptPostgreSQL) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	if err := q.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create quiz attempt: %w", err)
	}
	return nil
}

func (q *QuizAttemptPostgreSQL) GetLatest(ctx context.Context, enrollmentID uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := q.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("submitted_at DESC").
		Order("id DESC").
		First(&attempt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest quiz attempt: %w", err)
	}
	return &attempt, nil
}

func (q *QuizAttemptPostgreSQL) ListByEnrollment(ctx context.Context, enrollmentID uint) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	err := q.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("submitted_at DESC").
		Order("id DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz attempts: %w", err)
	}
	return attempts, nil
}

type CertificatePostgreSQL struct {
	db *gorm.DB
}

func NewCertificatePostgreSQL(db *gorm.DB) repositories.CertificateRepository {
	return &CertificatePostgreSQL{db: db}
}

func (c *CertificatePostgreSQL) Create(ctx context.Context, certificate *models.Certificate) error {
	if err := c.db.WithContext(ctx).Omit(clause.Associations).Create(certificate).Error; err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	return nil
}

func (c *CertificatePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Certificate, error) {
	var certificate models.Certificate
	err := c.db.WithContext(ctx).
		Preload("Training").
		First(&certificate, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return &certificate, nil
}

func (c *CertificatePostgreSQL) GetByEnrollment(ctx context.Context, enrollmentID uint) (*models.Certificate, error) {
	var certificate models.Certificate
	err := c.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		First(&certificate).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return &certificate, nil
}

func (c *CertificatePostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.Certificate, error) {
	var certificates []*models.Certificate
	err := c.db.WithContext(ctx).
		Preload("Training").
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certificates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	return certificates, nil
}

func (c *CertificatePostgreSQL) ListByTraining(ctx context.Context, trainingID uint) ([]*models.Certificate, error) {
	var certificates []*models.Certificate
	err := c.db.WithContext(ctx).
		Where("training_id = ?", trainingID).
		Find(&certificates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	return certificates, nil
}
