package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soins-plus/training-service/internal/services"
	"github.com/soins-plus/training-service/internal/utils"
	"github.com/soins-plus/training-service/internal/validator"
)

// LearningHandler serves the learner side of a training: chapters, quiz and progress
type LearningHandler struct {
	BaseHandler
	progressService services.ProgressService
	quizService     services.QuizService
	validator       *validator.Validator
}

func NewLearningHandler(
	progressService services.ProgressService,
	quizService services.QuizService,
	validator *validator.Validator,
	logger utils.Logger,
) *LearningHandler {
	return &LearningHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
		quizService:     quizService,
		validator:       validator,
	}
}

// GetProgress returns the caller's progress in a training
// @Summary Get my progress
// @Tags learning
// @Produce json
// @Param id path uint true "Training ID"
// @Success 200 {object} services.ProgressResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /trainings/{id}/progress [get]
func (h *LearningHandler) GetProgress(c *gin.Context) {
	trainingID := h.parseIDParam(c, "id")
	if trainingID == 0 {
		return
	}

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	progress, err := h.progressService.GetProgress(c.Request.Context(), userID, trainingID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// CompleteChapter records that the caller finished a chapter. Replays are idempotent.
// @Summary Complete chapter
// @Tags learning
// @Accept json
// @Produce json
// @Param id path uint true "Training ID"
// @Param chapter_id path uint true "Chapter ID"
// @Param request body validator.ChapterCompleteRequest false "Completion time"
// @Success 200 {object} services.ChapterCompletionResponse
// @Failure 422 {object} ErrorResponse
// @Router /trainings/{id}/chapters/{chapter_id}/complete [post]
func (h *LearningHandler) CompleteChapter(c *gin.Context) {
	trainingID := h.parseIDParam(c, "id")
	if trainingID == 0 {
		return
	}
	chapterID := h.parseIDParam(c, "chapter_id")
	if chapterID == 0 {
		return
	}

	// The body is optional
	var req validator.ChapterCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	at := time.Now().UTC()
	if req.CompletedAt != nil && !req.CompletedAt.After(at) {
		at = req.CompletedAt.UTC()
	}

	h.LogRequest(c, "Completing chapter", "training_id", trainingID, "chapter_id", chapterID, "user_id", userID)

	resp, err := h.progressService.RecordChapterComplete(c.Request.Context(), userID, trainingID, chapterID, at)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitQuiz grades the caller's answers to the training quiz
// @Summary Submit quiz
// @Tags learning
// @Accept json
// @Produce json
// @Param id path uint true "Training ID"
// @Param request body validator.QuizSubmissionRequest true "Selected answers per question"
// @Success 201 {object} services.QuizSubmissionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /trainings/{id}/quiz/submit [post]
func (h *LearningHandler) SubmitQuiz(c *gin.Context) {
	trainingID := h.parseIDParam(c, "id")
	if trainingID == 0 {
		return
	}

	var req services.QuizSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	submission, err := services.SubmissionFromRequest(&req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting quiz", "training_id", trainingID, "user_id", userID, "questions", len(submission))

	resp, err := h.quizService.SubmitQuiz(c.Request.Context(), userID, trainingID, submission)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListMyAttempts lists the caller's quiz attempts, newest first
// @Summary List my quiz attempts
// @Tags learning
// @Produce json
// @Param id path uint true "Training ID"
// @Success 200 {array} models.QuizAttempt
// @Router /trainings/{id}/quiz/attempts [get]
func (h *LearningHandler) ListMyAttempts(c *gin.Context) {
	trainingID := h.parseIDParam(c, "id")
	if trainingID == 0 {
		return
	}

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempts, err := h.quizService.ListAttempts(c.Request.Context(), userID, trainingID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts, "total": len(attempts)})
}
