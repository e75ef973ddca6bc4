package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soins-plus/training-service/internal/events"
	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Service-specific configurations
	Training    ServiceConfig
	Enrollment  ServiceConfig
	Progress    ServiceConfig
	Quiz        ServiceConfig
	Certificate ServiceConfig
	Report      ServiceConfig

	// CertificateBaseURL feeds the default URL renderer
	CertificateBaseURL string
}

type ServiceConfig struct {
	Enabled bool
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	renderer  CertificateRenderer
	config    ServiceManagerConfig

	// Service instances
	trainingService    TrainingService
	enrollmentService  EnrollmentService
	progressService    ProgressService
	quizService        QuizService
	certificateService CertificateService
	reportService      ReportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies.
// A nil renderer falls back to URLCertificateRenderer on config.CertificateBaseURL.
func NewServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, renderer CertificateRenderer, config ServiceManagerConfig) ServiceManager {
	if renderer == nil {
		renderer = NewURLCertificateRenderer(config.CertificateBaseURL)
	}
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		renderer:  renderer,
		config:    config,
	}
}

// NewDefaultServiceManager enables every service
func NewDefaultServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, certificateBaseURL string) ServiceManager {
	enabled := ServiceConfig{Enabled: true}
	config := ServiceManagerConfig{
		Training:           enabled,
		Enrollment:         enabled,
		Progress:           enabled,
		Quiz:               enabled,
		Certificate:        enabled,
		Report:             enabled,
		CertificateBaseURL: certificateBaseURL,
	}

	return NewServiceManager(repo, logger, validator, publisher, nil, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.repo == nil {
		return fmt.Errorf("failed to initialize services: repository is nil")
	}

	if sm.config.Training.Enabled {
		sm.trainingService = NewTrainingService(sm.repo, sm.logger, sm.validator)
		sm.logger.Info("Training service initialized")
	}

	if sm.config.Enrollment.Enabled {
		sm.enrollmentService = NewEnrollmentService(sm.repo, sm.logger, sm.validator, sm.publisher)
		sm.logger.Info("Enrollment service initialized")
	}

	if sm.config.Progress.Enabled {
		sm.progressService = NewProgressService(sm.repo, sm.logger, sm.publisher)
		sm.logger.Info("Progress service initialized")
	}

	if sm.config.Quiz.Enabled {
		sm.quizService = NewQuizService(sm.repo, sm.logger, sm.publisher)
		sm.logger.Info("Quiz service initialized")
	}

	if sm.config.Certificate.Enabled {
		sm.certificateService = NewCertificateService(sm.repo, sm.logger, sm.publisher, sm.renderer)
		sm.logger.Info("Certificate service initialized")
	}

	if sm.config.Report.Enabled {
		sm.reportService = NewReportService(sm.repo, sm.logger)
		sm.logger.Info("Report service initialized")
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters

func (sm *serviceManager) Training() TrainingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.trainingService != nil {
		return sm.trainingService
	}
	panic("training service not enabled or not initialized")
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.enrollmentService != nil {
		return sm.enrollmentService
	}
	panic("enrollment service not enabled or not initialized")
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.progressService != nil {
		return sm.progressService
	}
	panic("progress service not enabled or not initialized")
}

func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.quizService != nil {
		return sm.quizService
	}
	panic("quiz service not enabled or not initialized")
}

func (sm *serviceManager) Certificate() CertificateService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.certificateService != nil {
		return sm.certificateService
	}
	panic("certificate service not enabled or not initialized")
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.reportService != nil {
		return sm.reportService
	}
	panic("report service not enabled or not initialized")
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down successfully")

	return nil
}
