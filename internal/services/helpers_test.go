package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soins-plus/training-service/internal/events"
	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/repositories/postgres"
)

var dbCounter atomic.Int64

// stubUsers serves profiles from a fixed map
type stubUsers map[string]*models.User

func (s stubUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func (s stubUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := s[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s stubUsers) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, ok := s[id]
	return ok && u.Role == role, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRepository returns the gorm repository on a private in-memory SQLite
// database. One connection serializes transactions the way row locks do.
func newTestRepository(t *testing.T) repositories.Repository {
	t.Helper()

	dsn := fmt.Sprintf("file:services_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := stubUsers{
		"learner-1": {ID: "learner-1", FullName: "Alice Martin", Email: "alice@example.org", Role: models.RoleUser},
		"learner-2": {ID: "learner-2", FullName: "Bruno Petit", Email: "bruno@example.org", Role: models.RoleUser},
		"trainer-1": {ID: "trainer-1", FullName: "Chloé Durand", Email: "chloe@example.org", Role: models.RoleTrainer},
	}
	return postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, UserRepository: users})
}

type videoOptions struct {
	chapters        int
	withQuiz        bool
	passingScore    int
	maxParticipants *int
}

// seedVideoTraining creates a video training. The optional quiz has two
// questions whose first answer is the correct one.
func seedVideoTraining(t *testing.T, repo repositories.Repository, opts videoOptions) *models.Training {
	t.Helper()

	training := &models.Training{
		Title:           "Hygiène des mains",
		Type:            models.TrainingVideo,
		Duration:        30,
		MaxParticipants: opts.maxParticipants,
		CreatedBy:       "admin-1",
	}
	for i := 1; i <= opts.chapters; i++ {
		training.Chapters = append(training.Chapters, models.Chapter{
			Title: fmt.Sprintf("Chapitre %d", i),
			Order: i,
		})
	}
	if opts.withQuiz {
		training.Quiz = &models.Quiz{
			Title:        "Quiz",
			PassingScore: opts.passingScore,
			Questions: []models.Question{
				{Text: "Q1", Order: 1, Answers: []models.Answer{{Text: "ok", IsCorrect: true}, {Text: "ko"}}},
				{Text: "Q2", Order: 2, Answers: []models.Answer{{Text: "ok", IsCorrect: true}, {Text: "ko"}}},
			},
		}
	}

	if err := repo.Training().Create(context.Background(), training); err != nil {
		t.Fatalf("seed video training: %v", err)
	}
	return training
}

func seedScheduledTraining(t *testing.T, repo repositories.Repository, trainingType models.TrainingType, start time.Time) *models.Training {
	t.Helper()

	location := "Lyon"
	link := "https://meet.example.org/soins"
	training := &models.Training{
		Title:     "Gestes d'urgence",
		Type:      trainingType,
		Duration:  120,
		StartDate: &start,
		CreatedBy: "admin-1",
	}
	if trainingType == models.TrainingPresentiel {
		training.Location = &location
	} else {
		training.Link = &link
	}

	if err := repo.Training().Create(context.Background(), training); err != nil {
		t.Fatalf("seed scheduled training: %v", err)
	}
	return training
}

// correctSubmission answers every question with its correct answers only
func correctSubmission(quiz *models.Quiz) QuizSubmission {
	submission := make(QuizSubmission, len(quiz.Questions))
	for _, q := range quiz.Questions {
		submission[q.ID] = correctAnswerIDs(&q)
	}
	return submission
}

// wrongSubmission picks the first incorrect answer of every question
func wrongSubmission(quiz *models.Quiz) QuizSubmission {
	submission := make(QuizSubmission, len(quiz.Questions))
	for _, q := range quiz.Questions {
		for _, a := range q.Answers {
			if !a.IsCorrect {
				submission[q.ID] = []uint{a.ID}
				break
			}
		}
	}
	return submission
}

type testServices struct {
	repo        repositories.Repository
	publisher   *events.MockEventPublisher
	enrollment  EnrollmentService
	progress    ProgressService
	quiz        QuizService
	certificate CertificateService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	repo := newTestRepository(t)
	log := testLogger()
	publisher := events.NewMockEventPublisher(log)

	return &testServices{
		repo:        repo,
		publisher:   publisher,
		enrollment:  NewEnrollmentService(repo, log, nil, publisher),
		progress:    NewProgressService(repo, log, publisher),
		quiz:        NewQuizService(repo, log, publisher),
		certificate: NewCertificateService(repo, log, publisher, NewURLCertificateRenderer("https://files.example.org/certificates")),
	}
}

func intPtr(v int) *int { return &v }
