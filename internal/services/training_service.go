package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/validator"
)

type trainingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTrainingService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) TrainingService {
	return &trainingService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *trainingService) Create(ctx context.Context, req *CreateTrainingRequest, creatorID string) (*models.Training, error) {
	s.logger.Info("Creating training",
		"creator_id", creatorID,
		"title", req.Title,
		"type", req.Type)

	if errs := s.validator.Business().ValidateTrainingCreate(req); len(errs) > 0 {
		return nil, errs
	}

	training := buildTraining(req, creatorID)
	if err := s.repo.Training().Create(ctx, training); err != nil {
		s.logger.Error("Failed to create training", "error", err)
		return nil, fmt.Errorf("failed to create training: %w", repositories.ClassifyStoreError(err))
	}

	s.logger.Info("Training created", "training_id", training.ID, "chapters", len(training.Chapters))
	return training, nil
}

func (s *trainingService) GetByID(ctx context.Context, id uint, viewerRole models.UserRole) (*models.Training, error) {
	training, err := s.repo.Training().GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrTrainingNotFound)
	}

	if !viewerRole.IsStaff() && training.Quiz != nil {
		hideCorrectAnswers(training.Quiz)
	}
	return training, nil
}

// Update changes descriptive and scheduling fields. Capacity cannot drop below
// the number of existing enrollments, so the row is locked while counting.
func (s *trainingService) Update(ctx context.Context, id uint, req *UpdateTrainingRequest, userID string) (*models.Training, error) {
	s.logger.Info("Updating training", "training_id", id, "user_id", userID)

	var updated *models.Training
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		training, err := tx.Training().GetForUpdate(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrTrainingNotFound)
		}
		details, err := tx.Training().GetByIDWithDetails(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrTrainingNotFound)
		}

		if errs := s.validator.Business().ValidateTrainingUpdate(req, details); len(errs) > 0 {
			return errs
		}

		if req.MaxParticipants != nil {
			count, err := tx.Enrollment().CountByTraining(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to count enrollments: %w", err)
			}
			if errs := s.validator.Business().ValidateCapacityChange(req.MaxParticipants, count); len(errs) > 0 {
				return errs
			}
		}

		applyTrainingUpdate(training, req)
		if err := tx.Training().Update(ctx, training); err != nil {
			return fmt.Errorf("failed to update training: %w", err)
		}

		training.Chapters = details.Chapters
		training.Quiz = details.Quiz
		updated = training
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Training updated", "training_id", id)
	return updated, nil
}

func (s *trainingService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting training", "training_id", id, "user_id", userID)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.Training().GetForUpdate(ctx, id); err != nil {
			return mapNotFound(err, ErrTrainingNotFound)
		}

		count, err := tx.Enrollment().CountByTraining(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count enrollments: %w", err)
		}
		if count > 0 {
			return NewBusinessRuleError("training_has_enrollments",
				"trainings with enrollments cannot be deleted",
				map[string]interface{}{"training_id": id, "enrollments": count})
		}

		return mapNotFound(tx.Training().Delete(ctx, id), ErrTrainingNotFound)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Training deleted", "training_id", id)
	return nil
}

func (s *trainingService) List(ctx context.Context, filters repositories.TrainingFilters) (*TrainingListResponse, error) {
	filters.Limit, filters.Offset = normalizePage(filters.Limit, filters.Offset)
	filters.Query = strings.TrimSpace(filters.Query)

	trainings, total, err := s.repo.Training().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list trainings: %w", repositories.ClassifyStoreError(err))
	}

	return &TrainingListResponse{
		Trainings: trainings,
		Total:     total,
		Limit:     filters.Limit,
		Offset:    filters.Offset,
	}, nil
}

// ===== HELPERS =====

func buildTraining(req *CreateTrainingRequest, creatorID string) *models.Training {
	training := &models.Training{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Theme:           req.Theme,
		Type:            req.Type,
		Duration:        req.Duration,
		MaxParticipants: req.MaxParticipants,
		Accredited:      req.Accredited,
		StartDate:       req.StartDate,
		Location:        req.Location,
		Link:            req.Link,
		CreatedBy:       creatorID,
	}

	for _, ch := range req.Chapters {
		training.Chapters = append(training.Chapters, models.Chapter{
			Title:    ch.Title,
			VideoURL: ch.VideoURL,
			Order:    ch.Order,
			Duration: ch.Duration,
		})
	}

	if req.Quiz != nil {
		quiz := &models.Quiz{
			Title:        req.Quiz.Title,
			PassingScore: req.Quiz.PassingScore,
		}
		for i, q := range req.Quiz.Questions {
			order := q.Order
			if order == 0 {
				order = i + 1
			}
			question := models.Question{Text: q.Text, Order: order}
			for _, a := range q.Answers {
				question.Answers = append(question.Answers, models.Answer{Text: a.Text, IsCorrect: a.IsCorrect})
			}
			quiz.Questions = append(quiz.Questions, question)
		}
		training.Quiz = quiz
	}

	return training
}

func applyTrainingUpdate(training *models.Training, req *UpdateTrainingRequest) {
	if req.Title != nil {
		training.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		training.Description = req.Description
	}
	if req.Theme != nil {
		training.Theme = *req.Theme
	}
	if req.Duration != nil {
		training.Duration = *req.Duration
	}
	if req.MaxParticipants != nil {
		training.MaxParticipants = req.MaxParticipants
	}
	if req.Accredited != nil {
		training.Accredited = *req.Accredited
	}
	if req.StartDate != nil {
		training.StartDate = req.StartDate
	}
	if req.Location != nil {
		training.Location = req.Location
	}
	if req.Link != nil {
		training.Link = req.Link
	}
}

// hideCorrectAnswers strips the answer key before a learner sees the quiz.
func hideCorrectAnswers(quiz *models.Quiz) {
	for i := range quiz.Questions {
		for j := range quiz.Questions[i].Answers {
			quiz.Questions[i].Answers[j].IsCorrect = false
		}
	}
}
