package repositories

import (
	"context"

	"github.com/soins-plus/training-service/internal/models"
)

// UserRepository reads learner and staff profiles; the training service does not own user data
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}
