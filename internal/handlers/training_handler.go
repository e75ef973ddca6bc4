package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/services"
	"github.com/soins-plus/training-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TrainingHandler struct {
	BaseHandler
	trainingService   services.TrainingService
	enrollmentService services.EnrollmentService
	reportService     services.ReportService
}

func NewTrainingHandler(
	trainingService services.TrainingService,
	enrollmentService services.EnrollmentService,
	reportService services.ReportService,
	logger utils.Logger,
) *TrainingHandler {
	return &TrainingHandler{
		BaseHandler:       NewBaseHandler(logger),
		trainingService:   trainingService,
		enrollmentService: enrollmentService,
		reportService:     reportService,
	}
}

// CreateTraining creates a catalogue entry with its chapters and quiz
// @Summary Create training
// @Tags trainings
// @Accept json
// @Produce json
// @Param training body services.CreateTrainingRequest true "Training data"
// @Success 201 {object} models.Training
// @Failure 400 {object} ErrorResponse
// @Router /trainings [post]
func (h *TrainingHandler) CreateTraining(c *gin.Context) {
	var req services.CreateTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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

	training, err := h.trainingService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, training)
}

// GetTraining returns a training with chapters and quiz. Learners never see the answer key.
// @Summary Get training
// @Tags trainings
// @Produce json
// @Param id path uint true "Training ID"
// @Success 200 {object} models.Training
// @Failure 404 {object} ErrorResponse
// @Router /trainings/{id} [get]
func (h *TrainingHandler) GetTraining(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	_, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	training, err := h.trainingService.GetByID(c.Request.Context(), id, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, training)
}

// UpdateTraining updates descriptive and scheduling fields
// @Summary Update training
// @Tags trainings
// @Accept json
// @Produce json
// @Param id path uint true "Training ID"
// @Param training body services.UpdateTrainingRequest true "Fields to change"
// @Success 200 {object} models.Training
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /trainings/{id} [put]
func (h *TrainingHandler) UpdateTraining(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating training", "training_id", id)

	var req services.UpdateTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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

	training, err := h.trainingService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, training)
}

// DeleteTraining removes a training that nobody enrolled in
// @Summary Delete training
// @Tags trainings
// @Param id path uint true "Training ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /trainings/{id} [delete]
func (h *TrainingHandler) DeleteTraining(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting training", "training_id", id)

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.trainingService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListTrainings lists the catalogue
// @Summary List trainings
// @Tags trainings
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Param type query string false "VIDEO, PRESENTIEL or DISTANCIEL"
// @Param theme query string false "Theme"
// @Param accredited query bool false "Accredited only"
// @Param q query string false "Title search"
// @Success 200 {object} services.TrainingListResponse
// @Router /trainings [get]
func (h *TrainingHandler) ListTrainings(c *gin.Context) {
	resp, err := h.trainingService.List(c.Request.Context(), h.parseTrainingFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListTrainingEnrollments lists the roster of a training
// @Summary List enrollments of a training
// @Tags trainings
// @Produce json
// @Param id path uint true "Training ID"
// @Param status query string false "REGISTERED, CONFIRMED or COMPLETED"
// @Success 200 {object} services.EnrollmentListResponse
// @Failure 404 {object} ErrorResponse
// @Router /trainings/{id}/enrollments [get]
func (h *TrainingHandler) ListTrainingEnrollments(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	resp, err := h.enrollmentService.ListByTraining(c.Request.Context(), id, h.parseEnrollmentFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DownloadReport streams the roster workbook
// @Summary Export training roster
// @Tags trainings
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Training ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /trainings/{id}/report.xlsx [get]
func (h *TrainingHandler) DownloadReport(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Exporting training roster", "training_id", id)

	data, err := h.reportService.TrainingRosterXLSX(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="training-%d-roster.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ===== HELPER METHODS =====

func (h *TrainingHandler) parseTrainingFilters(c *gin.Context) repositories.TrainingFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)
	if page < 1 {
		page = 1
	}

	filters := repositories.TrainingFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		Query:     c.Query("q"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if t := strings.ToUpper(c.Query("type")); t != "" {
		trainingType := models.TrainingType(t)
		filters.Type = &trainingType
	}
	if theme := c.Query("theme"); theme != "" {
		filters.Theme = &theme
	}
	if accredited, err := strconv.ParseBool(c.Query("accredited")); err == nil {
		filters.Accredited = &accredited
	}

	return filters
}

func (h *BaseHandler) parseEnrollmentFilters(c *gin.Context) repositories.EnrollmentFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)
	if page < 1 {
		page = 1
	}

	filters := repositories.EnrollmentFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := strings.ToUpper(c.Query("status")); status != "" {
		s := models.EnrollmentStatus(status)
		filters.Status = &s
	}
	return filters
}
