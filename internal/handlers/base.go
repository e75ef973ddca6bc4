package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/services"
	"github.com/soins-plus/training-service/internal/utils"
)

// conflictRetryAfter is the Retry-After hint, in seconds, sent with 409 on lock conflicts
const conflictRetryAfter = "1"

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// BaseHandler carries the logger and the helpers every handler shares
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs with the request scoped logger when ContextLogger ran
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c.Request.Context(), h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	utils.LoggerFromContext(c.Request.Context(), h.logger).Error(msg, "error", err, "path", c.FullPath())
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: idStr,
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// currentUser returns the caller set by the auth middleware. It writes 401
// and returns ok=false when the request is anonymous.
func (h *BaseHandler) currentUser(c *gin.Context) (string, models.UserRole, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || strings.TrimSpace(userID) == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", "", false
	}
	role, err := GetUserRoleFromContext(c)
	if err != nil {
		role = models.RoleUser
	}
	return userID, role, true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	// Missing resources
	case errors.Is(err, services.ErrTrainingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Training not found"})
	case errors.Is(err, services.ErrEnrollmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Enrollment not found"})
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Training has no quiz"})
	case errors.Is(err, services.ErrCertificateNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Certificate not found"})

	// State conflicts
	case errors.Is(err, services.ErrAlreadyEnrolled):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Already enrolled in this training"})
	case errors.Is(err, services.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Training is full"})
	case errors.Is(err, services.ErrCertificateAlreadyIssued):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Certificate already issued for this enrollment"})
	case errors.Is(err, services.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Invalid enrollment status transition"})
	case errors.Is(err, services.ErrEnrollmentCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Enrollment is already completed"})

	// Requests that cannot apply to the current state
	case errors.Is(err, services.ErrNotEnrolled):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Not enrolled in this training"})
	case errors.Is(err, services.ErrUnknownChapter):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Chapter does not belong to this training"})
	case errors.Is(err, services.ErrMalformedSubmission):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Malformed quiz submission", Details: err.Error()})
	case errors.Is(err, services.ErrEnrollmentNotComplete):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Enrollment is not completed"})
	case errors.Is(err, services.ErrAttendanceNotApplicable):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Attendance does not apply to video trainings"})

	// Infrastructure
	case errors.Is(err, services.ErrConflict):
		c.Header("Retry-After", conflictRetryAfter)
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Concurrent update, retry the request"})
	case errors.Is(err, services.ErrStoreUnavailable):
		h.LogError(c, err, "Store unavailable")
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "Service temporarily unavailable"})

	default:
		h.LogError(c, err, "Unexpected service error")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
