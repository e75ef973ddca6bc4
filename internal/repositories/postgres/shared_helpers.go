package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/soins-plus/training-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

type trainingCount struct {
	TrainingID uint
	Count      int
}

// CountByTrainings returns row counts of model grouped by training_id
func (h *SharedHelpers) CountByTrainings(ctx context.Context, model interface{}, trainingIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(trainingIDs))
	if len(trainingIDs) == 0 {
		return counts, nil
	}

	var rows []trainingCount
	err := h.db.WithContext(ctx).
		Model(model).
		Select("training_id, COUNT(*) AS count").
		Where("training_id IN ?", trainingIDs).
		Group("training_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.TrainingID] = row.Count
	}
	return counts, nil
}

// ApplyTrainingFilters applies catalogue filters to training queries
func (h *SharedHelpers) ApplyTrainingFilters(query *gorm.DB, filters repositories.TrainingFilters) *gorm.DB {
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Theme != nil {
		query = query.Where("theme = ?", *filters.Theme)
	}
	if filters.Accredited != nil {
		query = query.Where("accredited = ?", *filters.Accredited)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("LOWER(title) LIKE LOWER(?)", like)
	}
	return query
}

// ApplyEnrollmentFilters applies common filters to enrollment queries
func (h *SharedHelpers) ApplyEnrollmentFilters(query *gorm.DB, filters repositories.EnrollmentFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"id":           true,
		"title":        true,
		"status":       true,
		"type":         true,
		"start_date":   true,
		"score":        true,
		"completed_at": true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder).Order("id " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

