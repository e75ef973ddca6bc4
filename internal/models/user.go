package models

import (
	"time"
)

type UserRole string

const (
	RoleUser    UserRole = "user"
	RoleTrainer UserRole = "trainer"
	RoleAdmin   UserRole = "admin"
)

// User is a read-only projection of a Casdoor account. It is never
// persisted by this service.
type User struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`

	// Profile info
	AvatarURL *string `json:"avatar_url"`

	// Billing gate, checked upstream before registration
	SubscriptionActive bool `json:"subscription_active"`

	EmailVerified bool `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsStaff reports whether the role may manage trainings and enrollments
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleTrainer
}
