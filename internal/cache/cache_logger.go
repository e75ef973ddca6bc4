package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete deletes keys and only logs failures; a stale entry expires with its TTL
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateTrainingCache drops the cached detail of a training
func InvalidateTrainingCache(ctx context.Context, cm *CacheManager, trainingID uint) {
	SafeDelete(ctx, cm.Training, TrainingKey(trainingID))
}

// TrainingKey is the cache key of a training detail with chapters and quiz
func TrainingKey(trainingID uint) string {
	return fmt.Sprintf("id:%d", trainingID)
}

// UserKey is the cache key of a Casdoor profile
func UserKey(userID string) string {
	return "id:" + userID
}
