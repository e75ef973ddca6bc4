package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soins-plus/training-service/internal/services"
	"github.com/soins-plus/training-service/internal/utils"
	"github.com/soins-plus/training-service/internal/validator"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
	validator         *validator.Validator
}

func NewEnrollmentHandler(
	enrollmentService services.EnrollmentService,
	validator *validator.Validator,
	logger utils.Logger,
) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
		validator:         validator,
	}
}

// Enroll registers the caller in a training
// @Summary Enroll in training
// @Tags enrollments
// @Produce json
// @Param id path uint true "Training ID"
// @Success 201 {object} models.Enrollment
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /trainings/{id}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	trainingID := h.parseIDParam(c, "id")
	if trainingID == 0 {
		return
	}

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Enrolling", "training_id", trainingID, "user_id", userID)

	enrollment, err := h.enrollmentService.Register(c.Request.Context(), userID, trainingID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// ListMyEnrollments lists the caller's enrollments
// @Summary List my enrollments
// @Tags enrollments
// @Produce json
// @Param status query string false "REGISTERED, CONFIRMED or COMPLETED"
// @Success 200 {object} services.EnrollmentListResponse
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.enrollmentService.ListByUser(c.Request.Context(), userID, h.parseEnrollmentFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetEnrollment returns one enrollment to its owner or to staff
// @Summary Get enrollment
// @Tags enrollments
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Success 200 {object} models.Enrollment
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.GetEnrollment(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// ConfirmEnrollment moves a registration to CONFIRMED
// @Summary Confirm enrollment
// @Tags enrollments
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Success 200 {object} models.Enrollment
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /enrollments/{id}/confirm [post]
func (h *EnrollmentHandler) ConfirmEnrollment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Confirming enrollment", "enrollment_id", id)

	enrollment, err := h.enrollmentService.Confirm(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// RecordAttendance marks a learner present or absent at a scheduled session
// @Summary Record attendance
// @Tags enrollments
// @Accept json
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Param request body validator.AttendanceRequest true "Attendance"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /enrollments/{id}/attendance [post]
func (h *EnrollmentHandler) RecordAttendance(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req validator.AttendanceRequest
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

	trainerID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Recording attendance", "enrollment_id", id, "attended", *req.Attended)

	enrollment, err := h.enrollmentService.RecordAttendance(c.Request.Context(), id, *req.Attended, trainerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// CheckCompletion re-evaluates the completion rule, e.g. once a session date has passed
// @Summary Re-check completion
// @Tags enrollments
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Success 200 {object} models.Enrollment
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{id}/check-completion [post]
func (h *EnrollmentHandler) CheckCompletion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.CheckCompletion(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}
