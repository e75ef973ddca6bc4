package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/soins-plus/training-service/internal/models"
)

const (
	// scheduleLookback lets a trainer record a session held earlier the same day
	scheduleLookback = 24 * time.Hour
	// scheduleHorizon bounds how far ahead a session can be published
	scheduleHorizon = 2 * 365 * 24 * time.Hour
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateTrainingCreate validates training creation business rules
func (bv *BusinessValidator) ValidateTrainingCreate(req *TrainingCreateRequest) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	// Type-dependent shape of the catalogue entry
	errors = append(errors, bv.validateTrainingShape(req.Type, req.StartDate, req.Location, req.Link, len(req.Chapters), req.Quiz != nil)...)

	errors = append(errors, bv.validateChapterOrders(req.Chapters)...)

	errors = append(errors, validateStartWindow(req.StartDate, time.Now())...)

	if req.Quiz != nil {
		errors = append(errors, bv.validateQuiz(req.Quiz)...)
	}

	return errors
}

// ValidateTrainingUpdate validates training update business rules against the stored training
func (bv *BusinessValidator) ValidateTrainingUpdate(req *TrainingUpdateRequest, existing *models.Training) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	startDate := existing.StartDate
	if req.StartDate != nil {
		startDate = req.StartDate
	}
	location := existing.Location
	if req.Location != nil {
		location = req.Location
	}
	link := existing.Link
	if req.Link != nil {
		link = req.Link
	}

	errors = append(errors, bv.validateTrainingShape(existing.Type, startDate, location, link, len(existing.Chapters), existing.Quiz != nil)...)

	// A stored date may already be in the past; only a new one is checked
	errors = append(errors, validateStartWindow(req.StartDate, time.Now())...)

	return errors
}

// ValidateCapacityChange rejects shrinking capacity below the current enrollment count
func (bv *BusinessValidator) ValidateCapacityChange(newMax *int, enrolled int64) ValidationErrors {
	if newMax == nil || int64(*newMax) >= enrolled {
		return nil
	}
	return ValidationErrors{{
		Field:   "max_participants",
		Message: fmt.Sprintf("cannot be lower than the %d existing enrollments", enrolled),
		Value:   *newMax,
		Rule:    "business_logic",
	}}
}

func (bv *BusinessValidator) validateTrainingShape(trainingType models.TrainingType, startDate *time.Time, location, link *string, chapterCount int, hasQuiz bool) ValidationErrors {
	var errors ValidationErrors

	switch trainingType {
	case models.TrainingVideo:
		if chapterCount == 0 {
			errors = append(errors, ValidationError{
				Field:   "chapters",
				Message: "video trainings need at least one chapter",
				Value:   chapterCount,
				Rule:    "business_logic",
			})
		}
		if startDate != nil {
			errors = append(errors, ValidationError{
				Field:   "start_date",
				Message: "video trainings are not scheduled",
				Value:   startDate,
				Rule:    "business_logic",
			})
		}
	case models.TrainingPresentiel, models.TrainingDistanciel:
		if startDate == nil {
			errors = append(errors, ValidationError{
				Field:   "start_date",
				Message: "is required for scheduled trainings",
				Rule:    "business_logic",
			})
		}
		if chapterCount > 0 {
			errors = append(errors, ValidationError{
				Field:   "chapters",
				Message: "scheduled trainings have no chapters",
				Value:   chapterCount,
				Rule:    "business_logic",
			})
		}
		if hasQuiz {
			errors = append(errors, ValidationError{
				Field:   "quiz",
				Message: "scheduled trainings have no quiz",
				Rule:    "business_logic",
			})
		}
		if trainingType == models.TrainingPresentiel && (location == nil || strings.TrimSpace(*location) == "") {
			errors = append(errors, ValidationError{
				Field:   "location",
				Message: "is required for in-person trainings",
				Rule:    "business_logic",
			})
		}
		if trainingType == models.TrainingDistanciel && (link == nil || strings.TrimSpace(*link) == "") {
			errors = append(errors, ValidationError{
				Field:   "link",
				Message: "is required for remote trainings",
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// validateChapterOrders requires the orders to be exactly 1..n
func (bv *BusinessValidator) validateChapterOrders(chapters []ChapterRequest) ValidationErrors {
	var errors ValidationErrors
	seen := make(map[int]bool, len(chapters))
	for i, ch := range chapters {
		if ch.Order < 1 || ch.Order > len(chapters) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("chapters[%d].order", i),
				Message: fmt.Sprintf("must be between 1 and %d with no gaps", len(chapters)),
				Value:   ch.Order,
				Rule:    "chapter_order",
			})
			continue
		}
		if seen[ch.Order] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("chapters[%d].order", i),
				Message: "must be unique within the training",
				Value:   ch.Order,
				Rule:    "chapter_order",
			})
		}
		seen[ch.Order] = true
	}
	return errors
}

func validateStartWindow(startDate *time.Time, now time.Time) ValidationErrors {
	if startDate == nil {
		return nil
	}
	switch {
	case startDate.Before(now.Add(-scheduleLookback)):
		return ValidationErrors{{
			Field:   "start_date",
			Message: "cannot be more than one day in the past",
			Value:   startDate,
			Rule:    "business_logic",
		}}
	case startDate.After(now.Add(scheduleHorizon)):
		return ValidationErrors{{
			Field:   "start_date",
			Message: "cannot be more than two years ahead",
			Value:   startDate,
			Rule:    "business_logic",
		}}
	}
	return nil
}

func (bv *BusinessValidator) validateQuiz(quiz *QuizRequest) ValidationErrors {
	var errors ValidationErrors
	for i, q := range quiz.Questions {
		correct := 0
		for _, a := range q.Answers {
			if a.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("quiz.questions[%d].answers", i),
				Message: "at least one answer must be correct",
				Rule:    "business_logic",
			})
		}
	}
	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("training_type", func(fl validator.FieldLevel) bool {
		switch models.TrainingType(fl.Field().String()) {
		case models.TrainingVideo, models.TrainingPresentiel, models.TrainingDistanciel:
			return true
		}
		return false
	})

	// Passing score validation (0-100)
	bv.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	// Title validation (1-200 characters)
	bv.validate.RegisterValidation("training_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})
}
