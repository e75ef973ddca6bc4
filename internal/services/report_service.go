package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
)

const rosterSheet = "Roster"

var rosterHeader = []interface{}{
	"Enrollment ID", "User ID", "Name", "Email", "Status", "Progress (%)",
	"Score", "Attendance", "Registered At", "Completed At", "Certificate", "Certificate URL",
}

type reportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, logger *slog.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

// TrainingRosterXLSX writes one row per enrollment of the training.
func (s *reportService) TrainingRosterXLSX(ctx context.Context, trainingID uint) ([]byte, error) {
	training, err := s.repo.Training().GetByID(ctx, trainingID)
	if err != nil {
		return nil, mapNotFound(err, ErrTrainingNotFound)
	}

	enrollments, err := s.allEnrollments(ctx, trainingID)
	if err != nil {
		return nil, err
	}

	chapterTotal, err := s.repo.Chapter().CountByTraining(ctx, trainingID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chapters: %w", repositories.ClassifyStoreError(err))
	}

	completedByUser := map[string]int64{}
	if chapterTotal > 0 {
		completedByUser, err = s.repo.Progress().CountCompletedByTraining(ctx, trainingID)
		if err != nil {
			return nil, fmt.Errorf("failed to count progress: %w", repositories.ClassifyStoreError(err))
		}
	}

	certificates, err := s.repo.Certificate().ListByTraining(ctx, trainingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", repositories.ClassifyStoreError(err))
	}
	certByEnrollment := make(map[uint]*models.Certificate, len(certificates))
	for _, c := range certificates {
		certByEnrollment[c.EnrollmentID] = c
	}

	users := s.usersByID(ctx, enrollments)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &rosterHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(rosterHeader))
		_ = f.SetCellStyle(rosterSheet, "A1", lastCol+"1", style)
	}
	_ = f.SetColWidth(rosterSheet, "A", "L", 18)

	for i, e := range enrollments {
		progress := 0
		if chapterTotal > 0 {
			progress = percentRoundHalfUp(int(completedByUser[e.UserID]), int(chapterTotal))
		}

		row := []interface{}{
			e.ID, e.UserID, "", "", string(e.Status), progress,
			optionalInt(e.Score), e.Attendance, e.CreatedAt.Format(time.RFC3339), optionalTime(e.CompletedAt), "", "",
		}
		if u, ok := users[e.UserID]; ok {
			row[2], row[3] = u.FullName, u.Email
		}
		if c, ok := certByEnrollment[e.ID]; ok {
			row[10], row[11] = c.Number, c.FileURL
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Roster exported",
		"training_id", trainingID,
		"title", training.Title,
		"rows", len(enrollments))

	return buf.Bytes(), nil
}

func (s *reportService) allEnrollments(ctx context.Context, trainingID uint) ([]*models.Enrollment, error) {
	var all []*models.Enrollment
	filters := repositories.EnrollmentFilters{Limit: maxPageSize, SortBy: "id", SortOrder: "asc"}
	for {
		page, total, err := s.repo.Enrollment().ListByTraining(ctx, trainingID, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list enrollments: %w", repositories.ClassifyStoreError(err))
		}
		all = append(all, page...)
		if len(page) == 0 || int64(len(all)) >= total {
			return all, nil
		}
		filters.Offset += len(page)
	}
}

// usersByID resolves profiles for the roster. A missing identity provider
// leaves name and email empty rather than failing the export.
func (s *reportService) usersByID(ctx context.Context, enrollments []*models.Enrollment) map[string]*models.User {
	result := make(map[string]*models.User, len(enrollments))
	if s.repo.User() == nil || len(enrollments) == 0 {
		return result
	}

	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.UserID)
	}
	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve users for roster", "error", err)
		return result
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
