package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/soins-plus/training-service/internal/cache"
	"github.com/soins-plus/training-service/internal/repositories"
)

func newCachedTestRepository(t *testing.T) (repositories.Repository, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t), RedisClient: client, UserRepository: stubUsers{}})
	return repo, mr, client
}

func trainingCacheKey(id uint) string {
	return fmt.Sprintf("training:id:%d", id)
}

func TestTrainingDetailsReadThroughCache(t *testing.T) {
	repo, mr, _ := newCachedTestRepository(t)
	ctx := context.Background()
	training := seedVideoTraining(t, repo)

	if mr.Exists(trainingCacheKey(training.ID)) {
		t.Fatal("training cached before first read")
	}

	first, err := repo.Training().GetByIDWithDetails(ctx, training.ID)
	if err != nil {
		t.Fatalf("GetByIDWithDetails: %v", err)
	}
	if !mr.Exists(trainingCacheKey(training.ID)) {
		t.Fatal("expected training detail to be cached after first read")
	}

	second, err := repo.Training().GetByIDWithDetails(ctx, training.ID)
	if err != nil {
		t.Fatalf("cached GetByIDWithDetails: %v", err)
	}
	if second.Title != first.Title || len(second.Chapters) != 3 || second.Quiz == nil {
		t.Errorf("cached detail differs: %+v", second)
	}
}

func TestTrainingUpdateEvictsAfterCommit(t *testing.T) {
	repo, mr, client := newCachedTestRepository(t)
	ctx := context.Background()
	training := seedVideoTraining(t, repo)
	if _, err := repo.Training().GetByIDWithDetails(ctx, training.ID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	stale := *training
	// A second manager over the same redis stands in for a reader on another replica
	other := cache.NewCacheManager(client)

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		locked, err := tx.Training().GetForUpdate(ctx, training.ID)
		if err != nil {
			return err
		}
		locked.Title = "Prévention des escarres, niveau 2"
		if err := tx.Training().Update(ctx, locked); err != nil {
			return err
		}
		if mr.Exists(trainingCacheKey(training.ID)) {
			t.Error("expected eager eviction inside the transaction")
		}
		// The other reader sees the pre-commit row and caches it
		return other.Training.Set(ctx, cache.TrainingKey(training.ID), &stale, cache.TrainingCacheConfig.TTL)
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	if mr.Exists(trainingCacheKey(training.ID)) {
		t.Fatal("stale entry survived the commit")
	}
	got, err := repo.Training().GetByIDWithDetails(ctx, training.ID)
	if err != nil {
		t.Fatalf("GetByIDWithDetails: %v", err)
	}
	if got.Title != "Prévention des escarres, niveau 2" {
		t.Errorf("Title = %q, want the committed title", got.Title)
	}
}

func TestTrainingReadsInsideTransactionSkipCache(t *testing.T) {
	repo, mr, client := newCachedTestRepository(t)
	ctx := context.Background()
	training := seedVideoTraining(t, repo)

	poisoned := *training
	poisoned.Title = "not from the store"
	if err := cache.NewCacheManager(client).Training.Set(ctx, cache.TrainingKey(training.ID), &poisoned, cache.TrainingCacheConfig.TTL); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	boom := errors.New("boom")
	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		got, err := tx.Training().GetByIDWithDetails(ctx, training.ID)
		if err != nil {
			return err
		}
		if got.Title != training.Title {
			t.Errorf("transaction read the cache: %q", got.Title)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !mr.Exists(trainingCacheKey(training.ID)) {
		t.Error("rolled back read-only transaction should not evict")
	}
}

func TestTrainingDeleteEvicts(t *testing.T) {
	repo, mr, _ := newCachedTestRepository(t)
	ctx := context.Background()
	training := seedVideoTraining(t, repo)
	if _, err := repo.Training().GetByIDWithDetails(ctx, training.ID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := repo.Training().Delete(ctx, training.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists(trainingCacheKey(training.ID)) {
		t.Fatal("deleted training still cached")
	}
	if _, err := repo.Training().GetByIDWithDetails(ctx, training.ID); !repositories.IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
