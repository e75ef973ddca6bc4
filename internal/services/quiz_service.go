package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/soins-plus/training-service/internal/events"
	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
)

type quizService struct {
	repo       repositories.Repository
	logger     *slog.Logger
	publisher  events.EventPublisher
	completion completionChecker
}

func NewQuizService(repo repositories.Repository, logger *slog.Logger, publisher events.EventPublisher) QuizService {
	return &quizService{
		repo:       repo,
		logger:     logger,
		publisher:  publisher,
		completion: completionChecker{logger: logger},
	}
}

// SubmissionFromRequest turns the validated request body into a QuizSubmission.
// A question listed twice is malformed.
func SubmissionFromRequest(req *QuizSubmissionRequest) (QuizSubmission, error) {
	submission := make(QuizSubmission, len(req.Answers))
	for _, answer := range req.Answers {
		if _, dup := submission[answer.QuestionID]; dup {
			return nil, fmt.Errorf("%w: question %d answered twice", ErrMalformedSubmission, answer.QuestionID)
		}
		ids := answer.AnswerIDs
		if ids == nil {
			ids = []uint{}
		}
		submission[answer.QuestionID] = ids
	}
	return submission, nil
}

// SubmitQuiz evaluates and stores an attempt, then runs the completion check.
// Attempts on a completed enrollment are kept for the record only.
func (s *quizService) SubmitQuiz(ctx context.Context, userID string, trainingID uint, submission QuizSubmission) (*QuizSubmissionResponse, error) {
	s.logger.Info("Submitting quiz", "user_id", userID, "training_id", trainingID)

	payload, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSubmission, err)
	}

	var response *QuizSubmissionResponse
	var completed bool
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		enrollment, err := tx.Enrollment().GetByUserAndTrainingForUpdate(ctx, userID, trainingID)
		if err != nil {
			return mapNotFound(err, ErrNotEnrolled)
		}

		quiz, err := tx.Quiz().GetByTraining(ctx, trainingID)
		if err != nil {
			return mapNotFound(err, ErrQuizNotFound)
		}

		result, err := EvaluateQuiz(quiz, submission)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		attempt := &models.QuizAttempt{
			QuizID:       quiz.ID,
			EnrollmentID: enrollment.ID,
			UserID:       userID,
			Score:        result.Score,
			Passed:       result.Passed,
			Answers:      datatypes.JSON(payload),
			SubmittedAt:  now,
		}
		if err := tx.QuizAttempt().Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to store quiz attempt: %w", err)
		}

		if !enrollment.IsCompleted() {
			training, err := trainingOf(ctx, tx, enrollment)
			if err != nil {
				return err
			}
			completed, err = s.completion.completeIfEligible(ctx, tx, enrollment, training, now)
			if err != nil {
				return err
			}
		}

		response = &QuizSubmissionResponse{
			Attempt:    attempt,
			Result:     result,
			Enrollment: enrollment,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz evaluated",
		"enrollment_id", response.Enrollment.ID,
		"score", response.Result.Score,
		"passed", response.Result.Passed)

	if completed {
		publishAll(ctx, s.publisher, s.logger, events.NewEnrollmentEvent(events.EnrollmentCompleted, response.Enrollment, userID))
	}
	return response, nil
}

func (s *quizService) ListAttempts(ctx context.Context, userID string, trainingID uint) ([]*models.QuizAttempt, error) {
	enrollment, err := s.repo.Enrollment().GetByUserAndTraining(ctx, userID, trainingID)
	if err != nil {
		return nil, mapNotFound(err, ErrNotEnrolled)
	}

	attempts, err := s.repo.QuizAttempt().ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz attempts: %w", repositories.ClassifyStoreError(err))
	}
	return attempts, nil
}
