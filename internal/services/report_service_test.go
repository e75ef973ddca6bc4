package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
)

func TestReportService_TrainingRoster(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	training := seedScheduledTraining(t, s.repo, models.TrainingPresentiel, time.Now().Add(-time.Hour))

	first, err := s.enrollment.Register(ctx, "learner-1", training.ID)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := s.enrollment.Register(ctx, "learner-2", training.ID); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := s.enrollment.RecordAttendance(ctx, first.ID, true, "trainer-1"); err != nil {
		t.Fatalf("RecordAttendance() error = %v", err)
	}
	cert, err := s.certificate.IssueCertificate(ctx, first.ID, "", "trainer-1")
	if err != nil {
		t.Fatalf("IssueCertificate() error = %v", err)
	}

	data, err := NewReportService(s.repo, testLogger()).TrainingRosterXLSX(ctx, training.ID)
	if err != nil {
		t.Fatalf("TrainingRosterXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(rosterSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "Enrollment ID" || len(rows[0]) != len(rosterHeader) {
		t.Errorf("unexpected header %v", rows[0])
	}

	completedRow := rows[1]
	if completedRow[1] != "learner-1" || completedRow[2] != "Alice Martin" || completedRow[4] != string(models.EnrollmentCompleted) {
		t.Errorf("unexpected completed row %v", completedRow)
	}
	if completedRow[10] != cert.Number || completedRow[11] != cert.FileURL {
		t.Errorf("certificate columns = %v, want %s %s", completedRow[10:], cert.Number, cert.FileURL)
	}

	openRow := rows[2]
	if openRow[1] != "learner-2" || openRow[4] != string(models.EnrollmentRegistered) {
		t.Errorf("unexpected open row %v", openRow)
	}
}

func TestReportService_UnknownTraining(t *testing.T) {
	s := newTestServices(t)
	_, err := NewReportService(s.repo, testLogger()).TrainingRosterXLSX(context.Background(), 4040)
	if !errors.Is(err, ErrTrainingNotFound) {
		t.Errorf("TrainingRosterXLSX() error = %v, want ErrTrainingNotFound", err)
	}
}

// progressCountingRepo counts progress lookups made through the repository
type progressCountingRepo struct {
	repositories.Repository
	progress *progressCounter
}

func (r progressCountingRepo) Progress() repositories.ProgressRepository {
	return r.progress
}

type progressCounter struct {
	repositories.ProgressRepository
	perUser, grouped int
}

func (c *progressCounter) CountCompleted(ctx context.Context, userID string, trainingID uint) (int64, error) {
	c.perUser++
	return c.ProgressRepository.CountCompleted(ctx, userID, trainingID)
}

func (c *progressCounter) CountCompletedByTraining(ctx context.Context, trainingID uint) (map[string]int64, error) {
	c.grouped++
	return c.ProgressRepository.CountCompletedByTraining(ctx, trainingID)
}

func TestReportService_RosterProgressInOneQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	training := seedVideoTraining(t, s.repo, videoOptions{chapters: 3})

	for _, user := range []string{"learner-1", "learner-2"} {
		if _, err := s.enrollment.Register(ctx, user, training.ID); err != nil {
			t.Fatalf("Register(%s) error = %v", user, err)
		}
	}
	for _, chapter := range training.Chapters[:2] {
		if _, err := s.progress.RecordChapterComplete(ctx, "learner-1", training.ID, chapter.ID, time.Now()); err != nil {
			t.Fatalf("RecordChapterComplete() error = %v", err)
		}
	}

	counter := &progressCounter{ProgressRepository: s.repo.Progress()}
	repo := progressCountingRepo{Repository: s.repo, progress: counter}
	data, err := NewReportService(repo, testLogger()).TrainingRosterXLSX(ctx, training.ID)
	if err != nil {
		t.Fatalf("TrainingRosterXLSX() error = %v", err)
	}
	if counter.grouped != 1 || counter.perUser != 0 {
		t.Errorf("progress queries: grouped=%d per-user=%d, want 1 and 0", counter.grouped, counter.perUser)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(rosterSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[1][1] != "learner-1" || rows[1][5] != "67" {
		t.Errorf("learner-1 progress = %v, want 67", rows[1])
	}
	if rows[2][1] != "learner-2" || rows[2][5] != "0" {
		t.Errorf("learner-2 progress = %v, want 0", rows[2])
	}
}
