package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soins-plus/training-service/internal/events"
	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/validator"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type enrollmentService struct {
	repo       repositories.Repository
	logger     *slog.Logger
	validator  *validator.Validator
	publisher  events.EventPublisher
	completion completionChecker
}

func NewEnrollmentService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) EnrollmentService {
	return &enrollmentService{
		repo:       repo,
		logger:     logger,
		validator:  validator,
		publisher:  publisher,
		completion: completionChecker{logger: logger},
	}
}

// Register creates a REGISTERED enrollment. The training row stays locked while
// enrollments are counted so two registrations cannot take the same last seat.
func (s *enrollmentService) Register(ctx context.Context, userID string, trainingID uint) (*models.Enrollment, error) {
	s.logger.Info("Registering user for training", "user_id", userID, "training_id", trainingID)

	var enrollment *models.Enrollment
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		training, err := tx.Training().GetForUpdate(ctx, trainingID)
		if err != nil {
			return mapNotFound(err, ErrTrainingNotFound)
		}

		_, err = tx.Enrollment().GetByUserAndTraining(ctx, userID, trainingID)
		if err == nil {
			return ErrAlreadyEnrolled
		}
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check existing enrollment: %w", err)
		}

		count, err := tx.Enrollment().CountByTraining(ctx, trainingID)
		if err != nil {
			return fmt.Errorf("failed to count enrollments: %w", err)
		}
		if training.IsFull(count) {
			return ErrCapacityExceeded
		}

		created := &models.Enrollment{
			UserID:     userID,
			TrainingID: trainingID,
			Status:     models.EnrollmentRegistered,
		}
		if err := tx.Enrollment().Create(ctx, created); err != nil {
			if repositories.IsUniqueViolation(err) {
				return ErrAlreadyEnrolled
			}
			return fmt.Errorf("failed to create enrollment: %w", err)
		}
		enrollment = created
		return nil
	})
	if err != nil {
		s.logger.Warn("Registration failed", "user_id", userID, "training_id", trainingID, "error", err)
		return nil, err
	}

	s.logger.Info("User registered", "enrollment_id", enrollment.ID, "user_id", userID, "training_id", trainingID)
	publishAll(ctx, s.publisher, s.logger, events.NewEnrollmentEvent(events.EnrollmentRegistered, enrollment, userID))

	return enrollment, nil
}

func (s *enrollmentService) Confirm(ctx context.Context, enrollmentID uint, actorID string) (*models.Enrollment, error) {
	s.logger.Info("Confirming enrollment", "enrollment_id", enrollmentID, "actor_id", actorID)

	var enrollment *models.Enrollment
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		e, err := tx.Enrollment().GetForUpdate(ctx, enrollmentID)
		if err != nil {
			return mapNotFound(err, ErrEnrollmentNotFound)
		}
		if !canTransition(e.Status, models.EnrollmentConfirmed) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, e.Status, models.EnrollmentConfirmed)
		}

		now := time.Now().UTC()
		e.Status = models.EnrollmentConfirmed
		e.ConfirmedAt = &now
		if err := tx.Enrollment().Update(ctx, e); err != nil {
			return fmt.Errorf("failed to confirm enrollment: %w", err)
		}
		enrollment = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishAll(ctx, s.publisher, s.logger, events.NewEnrollmentEvent(events.EnrollmentConfirmed, enrollment, actorID))
	return enrollment, nil
}

// RecordAttendance stores the trainer's attendance flag for a scheduled
// training and completes the enrollment when the session date has passed.
func (s *enrollmentService) RecordAttendance(ctx context.Context, enrollmentID uint, attended bool, trainerID string) (*models.Enrollment, error) {
	s.logger.Info("Recording attendance",
		"enrollment_id", enrollmentID,
		"attended", attended,
		"trainer_id", trainerID)

	var enrollment *models.Enrollment
	var completed bool
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		e, err := tx.Enrollment().GetForUpdate(ctx, enrollmentID)
		if err != nil {
			return mapNotFound(err, ErrEnrollmentNotFound)
		}
		training, err := trainingOf(ctx, tx, e)
		if err != nil {
			return err
		}
		if !training.Type.IsScheduled() {
			return ErrAttendanceNotApplicable
		}
		if e.IsCompleted() {
			return ErrEnrollmentCompleted
		}

		now := time.Now().UTC()
		e.Attendance = attended
		e.AttendanceRecordedBy = &trainerID
		e.AttendanceRecordedAt = &now
		if err := tx.Enrollment().Update(ctx, e); err != nil {
			return fmt.Errorf("failed to record attendance: %w", err)
		}

		completed, err = s.completion.completeIfEligible(ctx, tx, e, training, now)
		if err != nil {
			return err
		}
		enrollment = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		publishAll(ctx, s.publisher, s.logger, events.NewEnrollmentEvent(events.EnrollmentCompleted, enrollment, trainerID))
	}
	return enrollment, nil
}

func (s *enrollmentService) CheckCompletion(ctx context.Context, enrollmentID uint, actorID string) (*models.Enrollment, error) {
	var enrollment *models.Enrollment
	var completed bool
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		e, err := tx.Enrollment().GetForUpdate(ctx, enrollmentID)
		if err != nil {
			return mapNotFound(err, ErrEnrollmentNotFound)
		}
		enrollment = e
		if e.IsCompleted() {
			return nil
		}

		training, err := trainingOf(ctx, tx, e)
		if err != nil {
			return err
		}
		completed, err = s.completion.completeIfEligible(ctx, tx, e, training, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	if completed {
		publishAll(ctx, s.publisher, s.logger, events.NewEnrollmentEvent(events.EnrollmentCompleted, enrollment, actorID))
	}
	return enrollment, nil
}

func (s *enrollmentService) GetEnrollment(ctx context.Context, enrollmentID uint, requesterID string, requesterRole models.UserRole) (*models.Enrollment, error) {
	enrollment, err := s.repo.Enrollment().GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, mapNotFound(err, ErrEnrollmentNotFound)
	}
	if enrollment.UserID != requesterID && !requesterRole.IsStaff() {
		return nil, NewPermissionError(requesterID, enrollmentID, "enrollment", "read", "not owner or insufficient permissions")
	}
	return enrollment, nil
}

func (s *enrollmentService) ListByUser(ctx context.Context, userID string, filters repositories.EnrollmentFilters) (*EnrollmentListResponse, error) {
	filters.Limit, filters.Offset = normalizePage(filters.Limit, filters.Offset)

	enrollments, total, err := s.repo.Enrollment().ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", repositories.ClassifyStoreError(err))
	}

	return &EnrollmentListResponse{
		Enrollments: enrollments,
		Total:       total,
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}, nil
}

func (s *enrollmentService) ListByTraining(ctx context.Context, trainingID uint, filters repositories.EnrollmentFilters) (*EnrollmentListResponse, error) {
	if _, err := s.repo.Training().GetByID(ctx, trainingID); err != nil {
		return nil, mapNotFound(err, ErrTrainingNotFound)
	}

	filters.Limit, filters.Offset = normalizePage(filters.Limit, filters.Offset)

	enrollments, total, err := s.repo.Enrollment().ListByTraining(ctx, trainingID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", repositories.ClassifyStoreError(err))
	}

	return &EnrollmentListResponse{
		Enrollments: enrollments,
		Total:       total,
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}, nil
}

// ===== HELPERS =====

// trainingOf returns the enrollment's training, loading it when the
// repository did not preload it.
func trainingOf(ctx context.Context, tx repositories.Repository, enrollment *models.Enrollment) (*models.Training, error) {
	if enrollment.Training != nil && enrollment.Training.ID == enrollment.TrainingID {
		return enrollment.Training, nil
	}
	training, err := tx.Training().GetByID(ctx, enrollment.TrainingID)
	if err != nil {
		return nil, mapNotFound(err, ErrTrainingNotFound)
	}
	return training, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
