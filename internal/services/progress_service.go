package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soins-plus/training-service/internal/events"
	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
)

type progressService struct {
	repo       repositories.Repository
	logger     *slog.Logger
	publisher  events.EventPublisher
	completion completionChecker
}

func NewProgressService(repo repositories.Repository, logger *slog.Logger, publisher events.EventPublisher) ProgressService {
	return &progressService{
		repo:       repo,
		logger:     logger,
		publisher:  publisher,
		completion: completionChecker{logger: logger},
	}
}

// RecordChapterComplete upserts the (user, chapter) progress fact and runs the
// completion check in the same transaction. Recording a chapter twice only
// refreshes its timestamp.
func (s *progressService) RecordChapterComplete(ctx context.Context, userID string, trainingID, chapterID uint, at time.Time) (*ChapterCompletionResponse, error) {
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	s.logger.Info("Recording chapter completion",
		"user_id", userID,
		"training_id", trainingID,
		"chapter_id", chapterID)

	var response *ChapterCompletionResponse
	var completed bool
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		enrollment, err := tx.Enrollment().GetByUserAndTrainingForUpdate(ctx, userID, trainingID)
		if err != nil {
			return mapNotFound(err, ErrNotEnrolled)
		}

		chapter, err := tx.Chapter().GetByID(ctx, chapterID)
		if err != nil {
			return mapNotFound(err, ErrUnknownChapter)
		}
		if chapter.TrainingID != trainingID {
			return ErrUnknownChapter
		}

		progress := &models.ChapterProgress{
			UserID:      userID,
			TrainingID:  trainingID,
			ChapterID:   chapterID,
			CompletedAt: at,
		}
		if err := tx.Progress().Upsert(ctx, progress); err != nil {
			return fmt.Errorf("failed to record chapter progress: %w", err)
		}

		// Completed enrollments keep their progress facts but never change again
		if !enrollment.IsCompleted() {
			training, err := trainingOf(ctx, tx, enrollment)
			if err != nil {
				return err
			}
			completed, err = s.completion.completeIfEligible(ctx, tx, enrollment, training, time.Now().UTC())
			if err != nil {
				return err
			}
		}

		ratio, err := completionRatio(ctx, tx, s.logger, userID, trainingID)
		if err != nil {
			return err
		}

		response = &ChapterCompletionResponse{
			Progress:        progress,
			CompletionRatio: ratio,
			Enrollment:      enrollment,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		publishAll(ctx, s.publisher, s.logger, events.NewEnrollmentEvent(events.EnrollmentCompleted, response.Enrollment, userID))
	}
	return response, nil
}

func (s *progressService) CompletionRatio(ctx context.Context, userID string, trainingID uint) (float64, error) {
	if _, err := s.repo.Training().GetByID(ctx, trainingID); err != nil {
		return 0, mapNotFound(err, ErrTrainingNotFound)
	}

	ratio, err := completionRatio(ctx, s.repo, s.logger, userID, trainingID)
	if err != nil {
		return 0, err
	}
	return ratio, nil
}

func (s *progressService) GetProgress(ctx context.Context, userID string, trainingID uint) (*ProgressResponse, error) {
	enrollment, err := s.repo.Enrollment().GetByUserAndTraining(ctx, userID, trainingID)
	if err != nil {
		return nil, mapNotFound(err, ErrNotEnrolled)
	}

	total, err := s.repo.Chapter().CountByTraining(ctx, trainingID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chapters: %w", repositories.ClassifyStoreError(err))
	}
	if total == 0 {
		s.logger.Warn("Training has no chapters", "training_id", trainingID)
	}

	records, err := s.repo.Progress().ListByUserAndTraining(ctx, userID, trainingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", repositories.ClassifyStoreError(err))
	}

	chapterIDs := make([]uint, 0, len(records))
	for _, record := range records {
		chapterIDs = append(chapterIDs, record.ChapterID)
	}

	response := &ProgressResponse{
		TrainingID:        trainingID,
		UserID:            userID,
		ChaptersCompleted: len(chapterIDs),
		ChaptersTotal:     int(total),
		CompletedChapters: chapterIDs,
		Enrollment:        enrollment,
	}
	if total > 0 {
		response.CompletionRatio = float64(len(chapterIDs)) / float64(total)
	}

	latest, err := s.repo.QuizAttempt().GetLatest(ctx, enrollment.ID)
	switch {
	case err == nil:
		response.LatestAttempt = latest
	case !repositories.IsNotFoundError(err):
		return nil, fmt.Errorf("failed to get latest quiz attempt: %w", repositories.ClassifyStoreError(err))
	}

	return response, nil
}

// completionRatio is distinct completed chapters over total chapters, 0 for a
// training without chapters.
func completionRatio(ctx context.Context, repo repositories.Repository, logger *slog.Logger, userID string, trainingID uint) (float64, error) {
	total, err := repo.Chapter().CountByTraining(ctx, trainingID)
	if err != nil {
		return 0, fmt.Errorf("failed to count chapters: %w", repositories.ClassifyStoreError(err))
	}
	if total == 0 {
		logger.Warn("Training has no chapters, completion ratio is 0", "training_id", trainingID, "user_id", userID)
		return 0, nil
	}

	completed, err := repo.Progress().CountCompleted(ctx, userID, trainingID)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed chapters: %w", repositories.ClassifyStoreError(err))
	}
	return float64(completed) / float64(total), nil
}
