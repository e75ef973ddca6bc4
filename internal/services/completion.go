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

// canTransition encodes the enrollment lifecycle. COMPLETED is terminal and
// CONFIRMED is optional on the way to it.
func canTransition(from, to models.EnrollmentStatus) bool {
	switch from {
	case models.EnrollmentRegistered:
		return to == models.EnrollmentConfirmed || to == models.EnrollmentCompleted
	case models.EnrollmentConfirmed:
		return to == models.EnrollmentCompleted
	default:
		return false
	}
}

// completionFacts is everything the completion guard looks at for one enrollment.
type completionFacts struct {
	trainingType      models.TrainingType
	startDate         *time.Time
	chaptersTotal     int64
	chaptersCompleted int64
	hasQuiz           bool
	latestAttempt     *models.QuizAttempt
	attendance        bool
}

// satisfied reports whether the enrollment may move to COMPLETED at now.
func (f completionFacts) satisfied(now time.Time) bool {
	switch {
	case f.trainingType == models.TrainingVideo:
		if f.chaptersTotal == 0 || f.chaptersCompleted < f.chaptersTotal {
			return false
		}
		if f.hasQuiz {
			return f.latestAttempt != nil && f.latestAttempt.Passed
		}
		return true
	case f.trainingType.IsScheduled():
		return f.attendance && f.startDate != nil && !f.startDate.After(now)
	default:
		return false
	}
}

// completionChecker runs the completion guard inside an open transaction.
type completionChecker struct {
	logger *slog.Logger
}

func (c completionChecker) gatherFacts(ctx context.Context, tx repositories.Repository, enrollment *models.Enrollment, training *models.Training) (completionFacts, error) {
	facts := completionFacts{
		trainingType: training.Type,
		startDate:    training.StartDate,
		attendance:   enrollment.Attendance,
	}
	if training.Type != models.TrainingVideo {
		return facts, nil
	}

	total, err := tx.Chapter().CountByTraining(ctx, training.ID)
	if err != nil {
		return facts, fmt.Errorf("failed to count chapters: %w", err)
	}
	completed, err := tx.Progress().CountCompleted(ctx, enrollment.UserID, training.ID)
	if err != nil {
		return facts, fmt.Errorf("failed to count completed chapters: %w", err)
	}
	facts.chaptersTotal = total
	facts.chaptersCompleted = completed

	if total == 0 {
		c.logger.Warn("Video training has no chapters and can never complete",
			"training_id", training.ID)
	}

	if _, err := tx.Quiz().GetByTraining(ctx, training.ID); err == nil {
		facts.hasQuiz = true
		latest, err := tx.QuizAttempt().GetLatest(ctx, enrollment.ID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return facts, fmt.Errorf("failed to get latest quiz attempt: %w", err)
		}
		if err == nil {
			facts.latestAttempt = latest
		}
	} else if !repositories.IsNotFoundError(err) {
		return facts, fmt.Errorf("failed to get quiz: %w", err)
	}

	return facts, nil
}

// completeIfEligible moves the enrollment to COMPLETED when the guard holds and
// returns whether it did. Completed enrollments are left untouched.
func (c completionChecker) completeIfEligible(ctx context.Context, tx repositories.Repository, enrollment *models.Enrollment, training *models.Training, now time.Time) (bool, error) {
	if enrollment.IsCompleted() || !canTransition(enrollment.Status, models.EnrollmentCompleted) {
		return false, nil
	}

	facts, err := c.gatherFacts(ctx, tx, enrollment, training)
	if err != nil {
		return false, err
	}
	if !facts.satisfied(now) {
		return false, nil
	}

	completedAt := now
	enrollment.Status = models.EnrollmentCompleted
	enrollment.CompletedAt = &completedAt
	if facts.hasQuiz && facts.latestAttempt != nil {
		score := facts.latestAttempt.Score
		enrollment.Score = &score
	}

	if err := tx.Enrollment().Update(ctx, enrollment); err != nil {
		return false, fmt.Errorf("failed to complete enrollment: %w", err)
	}

	c.logger.Info("Enrollment completed",
		"enrollment_id", enrollment.ID,
		"user_id", enrollment.UserID,
		"training_id", training.ID)

	return true, nil
}

// publishAll sends events that belong to an already committed transaction.
// Failures are logged; the state change stands.
func publishAll(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, evts ...*events.Event) {
	if publisher == nil {
		return
	}
	for _, evt := range evts {
		if err := publisher.Publish(ctx, evt); err != nil {
			logger.Error("Failed to publish event",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"error", err)
		}
	}
}
