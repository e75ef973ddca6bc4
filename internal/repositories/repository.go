package repositories

import "context"

// Repository aggregates every store the training service reads and writes
type Repository interface {
	// Catalogue
	Training() TrainingRepository
	Chapter() ChapterRepository
	Quiz() QuizRepository

	// Learner state
	Enrollment() EnrollmentRepository
	Progress() ProgressRepository
	QuizAttempt() QuizAttemptRepository
	Certificate() CertificateRepository

	// User domain (read-only, owned by Casdoor)
	User() UserRepository

	// WithTransaction runs fn against a repository bound to one database transaction.
	// fn returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
