package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soins-plus/training-service/internal/config"
	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/services"
	"github.com/soins-plus/training-service/internal/utils"
	"github.com/soins-plus/training-service/internal/validator"
)

const healthCheckTimeout = 3 * time.Second

type HandlerManager struct {
	trainingHandler    *TrainingHandler
	enrollmentHandler  *EnrollmentHandler
	learningHandler    *LearningHandler
	certificateHandler *CertificateHandler
	userHandler        *UserHandler
	authMiddleware     *CasdoorAuthMiddleware
	healthCheck        func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	hm := newHandlerManager(serviceManager, validator, logger, userRepo)
	hm.authMiddleware = NewCasdoorAuthMiddleware(casdoorConfig, userRepo, logger)
	return hm
}

func newHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		trainingHandler:    NewTrainingHandler(serviceManager.Training(), serviceManager.Enrollment(), serviceManager.Report(), logger),
		enrollmentHandler:  NewEnrollmentHandler(serviceManager.Enrollment(), validator, logger),
		learningHandler:    NewLearningHandler(serviceManager.Progress(), serviceManager.Quiz(), validator, logger),
		certificateHandler: NewCertificateHandler(serviceManager.Certificate(), validator, logger),
		userHandler:        NewUserHandler(userRepo, logger),
		healthCheck:        serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.Health)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	hm.registerAPIRoutes(v1)
}

// registerAPIRoutes mounts the authenticated API on v1
func (hm *HandlerManager) registerAPIRoutes(v1 *gin.RouterGroup) {
	staff := RequireRole(models.RoleTrainer, models.RoleAdmin)
	admin := RequireRole(models.RoleAdmin)

	trainings := v1.Group("/trainings")
	{
		// Catalogue
		trainings.GET("", hm.trainingHandler.ListTrainings)
		trainings.GET("/:id", hm.trainingHandler.GetTraining)
		trainings.POST("", admin, hm.trainingHandler.CreateTraining)
		trainings.PUT("/:id", admin, hm.trainingHandler.UpdateTraining)
		trainings.DELETE("/:id", admin, hm.trainingHandler.DeleteTraining)

		// Learner actions on the caller's own enrollment
		trainings.POST("/:id/enroll", hm.enrollmentHandler.Enroll)
		trainings.GET("/:id/progress", hm.learningHandler.GetProgress)
		trainings.POST("/:id/chapters/:chapter_id/complete", hm.learningHandler.CompleteChapter)
		trainings.POST("/:id/quiz/submit", hm.learningHandler.SubmitQuiz)
		trainings.GET("/:id/quiz/attempts", hm.learningHandler.ListMyAttempts)

		// Roster
		trainings.GET("/:id/enrollments", staff, hm.trainingHandler.ListTrainingEnrollments)
		trainings.GET("/:id/report.xlsx", staff, hm.trainingHandler.DownloadReport)
	}

	enrollments := v1.Group("/enrollments")
	{
		enrollments.GET("/me", hm.enrollmentHandler.ListMyEnrollments)
		enrollments.GET("/:id", hm.enrollmentHandler.GetEnrollment)
		enrollments.POST("/:id/confirm", staff, hm.enrollmentHandler.ConfirmEnrollment)
		enrollments.POST("/:id/attendance", staff, hm.enrollmentHandler.RecordAttendance)
		enrollments.POST("/:id/check-completion", staff, hm.enrollmentHandler.CheckCompletion)
		enrollments.POST("/:id/certificate", staff, hm.certificateHandler.IssueCertificate)
	}

	certificates := v1.Group("/certificates")
	{
		certificates.GET("/me", hm.certificateHandler.ListMyCertificates)
		certificates.GET("/:id", hm.certificateHandler.GetCertificate)
	}

	users := v1.Group("/users")
	{
		users.GET("/me", hm.userHandler.GetMe)
		users.GET("/:id", staff, hm.userHandler.GetUser)
	}
}

// Health reports 503 while the database is unreachable
func (hm *HandlerManager) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := hm.healthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "training-service",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "training-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
