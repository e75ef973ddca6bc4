package casdoor

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/soins-plus/training-service/internal/cache"
	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
)

type fakeClient struct {
	users map[string]*casdoorsdk.User
	calls int
}

func (f *fakeClient) GetUserByUserId(id string) (*casdoorsdk.User, error) {
	f.calls++
	return f.users[id], nil
}

func TestMapRole(t *testing.T) {
	tests := map[string]models.UserRole{
		"Admin":     models.RoleAdmin,
		"formateur": models.RoleTrainer,
		"trainer":   models.RoleTrainer,
		"nurse":     models.RoleUser,
		"":          models.RoleUser,
	}
	for in, want := range tests {
		if got := MapRole(in); got != want {
			t.Errorf("MapRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConvertUserPicksStrongestRole(t *testing.T) {
	u := ConvertUser(&casdoorsdk.User{
		Id:          "u-1",
		DisplayName: "Claire Martin",
		Email:       "claire@example.org",
		Type:        "normal-user",
		Roles:       []*casdoorsdk.Role{{Name: "user"}, {Name: "formateur"}},
		Properties:  map[string]string{"subscription_active": "true"},
	})
	if u.Role != models.RoleTrainer {
		t.Errorf("Role = %q, want trainer", u.Role)
	}
	if !u.SubscriptionActive {
		t.Error("expected subscription flag from properties")
	}
	if u.AvatarURL != nil {
		t.Error("empty avatar should stay nil")
	}

	if ConvertUser(&casdoorsdk.User{Id: "a", IsAdmin: true}).Role != models.RoleAdmin {
		t.Error("IsAdmin must map to admin")
	}
}

func TestGetByIDUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	fc := &fakeClient{users: map[string]*casdoorsdk.User{
		"u-1": {Id: "u-1", DisplayName: "Claire", Email: "claire@example.org"},
	}}
	repo := newUserCasdoor(fc, cache.NewCacheManager(client))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		user, err := repo.GetByID(ctx, "u-1")
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if user.Email != "claire@example.org" {
			t.Fatalf("unexpected user %+v", user)
		}
	}
	if fc.calls != 1 {
		t.Errorf("casdoor called %d times, want 1", fc.calls)
	}
}

func TestGetByIDsSkipsUnknown(t *testing.T) {
	fc := &fakeClient{users: map[string]*casdoorsdk.User{
		"u-1": {Id: "u-1"},
	}}
	repo := newUserCasdoor(fc, cache.NewCacheManager(nil))

	users, err := repo.GetByIDs(context.Background(), []string{"u-1", "ghost"})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u-1" {
		t.Errorf("unexpected users %+v", users)
	}

	if _, err := repo.GetByID(context.Background(), "ghost"); !repositories.IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
