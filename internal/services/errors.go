package services

import (
	"errors"
	"fmt"

	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/validator"
)

// ===== DOMAIN ERRORS =====

var (
	// Catalogue
	ErrTrainingNotFound = errors.New("training not found")
	ErrQuizNotFound     = errors.New("training has no quiz")
	ErrUnknownChapter   = errors.New("chapter does not belong to training")

	// Enrollment lifecycle
	ErrNotEnrolled              = errors.New("user is not enrolled in training")
	ErrAlreadyEnrolled          = errors.New("user is already enrolled in training")
	ErrCapacityExceeded         = errors.New("training has reached its maximum number of participants")
	ErrEnrollmentNotFound       = errors.New("enrollment not found")
	ErrInvalidStatusTransition  = errors.New("invalid enrollment status transition")
	ErrAttendanceNotApplicable  = errors.New("attendance only applies to scheduled trainings")
	ErrEnrollmentCompleted      = errors.New("enrollment is already completed")
	ErrMalformedSubmission      = errors.New("malformed quiz submission")
	ErrEnrollmentNotComplete    = errors.New("enrollment is not completed")
	ErrCertificateAlreadyIssued = errors.New("certificate already issued for enrollment")
	ErrCertificateNotFound      = errors.New("certificate not found")
)

// Infrastructure errors are owned by the repository layer. Callers should
// retry both with backoff.
var (
	ErrStoreUnavailable = repositories.ErrStoreUnavailable
	ErrConflict         = repositories.ErrConflict
)

type ValidationErrors = validator.ValidationErrors
type ValidationError = validator.ValidationError

// BusinessRuleError reports a rule violation that is not a plain field error.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// mapNotFound converts a repository not-found into the given domain error and
// classifies everything else.
func mapNotFound(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if repositories.IsNotFoundError(err) {
		return notFound
	}
	return repositories.ClassifyStoreError(err)
}
