package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soins-plus/training-service/internal/cache"
	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
)

type TrainingPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
	// evicted is set inside transactions: reads skip the cache and changed ids
	// are evicted again after commit
	evicted *[]uint
}

func newTrainingPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager, evicted *[]uint) *TrainingPostgreSQL {
	return &TrainingPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
		evicted:      evicted,
	}
}

// invalidate evicts now and, inside a transaction, again after commit
func (t *TrainingPostgreSQL) invalidate(ctx context.Context, id uint) {
	cache.InvalidateTrainingCache(ctx, t.cacheManager, id)
	if t.evicted != nil {
		*t.evicted = append(*t.evicted, id)
	}
}

// Create inserts the training with its chapters and quiz in one statement batch
func (t *TrainingPostgreSQL) Create(ctx context.Context, training *models.Training) error {
	if err := t.db.WithContext(ctx).Create(training).Error; err != nil {
		return fmt.Errorf("failed to create training: %w", err)
	}
	return nil
}

func (t *TrainingPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Training, error) {
	var training models.Training
	if err := t.db.WithContext(ctx).First(&training, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get training: %w", err)
	}
	return &training, nil
}

// GetByIDWithDetails retrieves a training with ordered chapters and quiz, served from cache when allowed
func (t *TrainingPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Training, error) {
	if t.evicted != nil {
		return t.loadDetails(ctx, id)
	}

	var training models.Training
	err := t.cacheManager.Training.CacheOrExecute(ctx, cache.TrainingKey(id), &training, cache.TrainingCacheConfig.TTL, func() (interface{}, error) {
		return t.loadDetails(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &training, nil
}

func (t *TrainingPostgreSQL) loadDetails(ctx context.Context, id uint) (*models.Training, error) {
	var training models.Training
	err := t.db.WithContext(ctx).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Quiz").
		Preload("Quiz.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC").Order("id ASC")
		}).
		Preload("Quiz.Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&training, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get training details: %w", err)
	}
	training.ChapterCount = len(training.Chapters)
	return &training, nil
}

// GetForUpdate takes a row lock on the training (FOR UPDATE)
func (t *TrainingPostgreSQL) GetForUpdate(ctx context.Context, id uint) (*models.Training, error) {
	var training models.Training
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&training, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock training: %w", err)
	}
	return &training, nil
}

// Update saves scalar fields only; chapters and quiz are immutable once created
func (t *TrainingPostgreSQL) Update(ctx context.Context, training *models.Training) error {
	err := t.db.WithContext(ctx).
		Model(training).
		Select("title", "description", "theme", "duration", "max_participants", "accredited", "start_date", "location", "link").
		Updates(training).Error
	if err != nil {
		return fmt.Errorf("failed to update training: %w", err)
	}
	t.invalidate(ctx, training.ID)
	return nil
}

func (t *TrainingPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := t.db.WithContext(ctx).Delete(&models.Training{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete training: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete training: %w", gorm.ErrRecordNotFound)
	}
	t.invalidate(ctx, id)
	return nil
}

func (t *TrainingPostgreSQL) List(ctx context.Context, filters repositories.TrainingFilters) ([]*models.Training, int64, error) {
	var trainings []*models.Training
	var total int64

	query := t.helpers.ApplyTrainingFilters(t.db.WithContext(ctx).Model(&models.Training{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trainings: %w", err)
	}

	query = t.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&trainings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list trainings: %w", err)
	}

	ids := make([]uint, len(trainings))
	for i, tr := range trainings {
		ids[i] = tr.ID
	}
	chapterCounts, err := t.helpers.CountByTrainings(ctx, &models.Chapter{}, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	enrollmentCounts, err := t.helpers.CountByTrainings(ctx, &models.Enrollment{}, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	for _, tr := range trainings {
		tr.ChapterCount = chapterCounts[tr.ID]
		tr.EnrollmentCount = enrollmentCounts[tr.ID]
	}

	return trainings, total, nil
}

type ChapterPostgreSQL struct {
	db *gorm.DB
}

func NewChapterPostgreSQL(db *gorm.DB) repositories.ChapterRepository {
	return &ChapterPostgreSQL{db: db}
}

func (c *ChapterPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Chapter, error) {
	var chapter models.Chapter
	if err := c.db.WithContext(ctx).First(&chapter, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

func (c *ChapterPostgreSQL) ListByTraining(ctx context.Context, trainingID uint) ([]*models.Chapter, error) {
	var chapters []*models.Chapter
	err := c.db.WithContext(ctx).
		Where("training_id = ?", trainingID).
		Order("sort_order ASC").
		Find(&chapters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

func (c *ChapterPostgreSQL) CountByTraining(ctx context.Context, trainingID uint) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&models.Chapter{}).
		Where("training_id = ?", trainingID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	return count, nil
}

type QuizPostgreSQL struct {
	db *gorm.DB
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db}
}

func (q *QuizPostgreSQL) GetByTraining(ctx context.Context, trainingID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := q.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC").Order("id ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("training_id = ?", trainingID).
		First(&quiz).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return &quiz, nil
}
