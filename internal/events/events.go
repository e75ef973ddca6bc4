package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/soins-plus/training-service/internal/models"
)

const (
	EventSource  = "training-service"
	EventVersion = "1.0"
)

// Event types double as topic names
const (
	EnrollmentRegistered = "enrollment.registered"
	EnrollmentConfirmed  = "enrollment.confirmed"
	EnrollmentCompleted  = "enrollment.completed"
	CertificateIssued    = "certificate.issued"
)

// Event is the envelope written to every topic
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type EnrollmentEventData struct {
	EnrollmentID uint                    `json:"enrollment_id"`
	UserID       string                  `json:"user_id"`
	TrainingID   uint                    `json:"training_id"`
	Status       models.EnrollmentStatus `json:"status"`
	Score        *int                    `json:"score,omitempty"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
	ActorID      string                  `json:"actor_id,omitempty"`
}

type CertificateIssuedData struct {
	CertificateID uint      `json:"certificate_id"`
	EnrollmentID  uint      `json:"enrollment_id"`
	UserID        string    `json:"user_id"`
	TrainingID    uint      `json:"training_id"`
	TrainingTitle string    `json:"training_title"`
	Number        string    `json:"number"`
	FileURL       string    `json:"file_url"`
	IssuedAt      time.Time `json:"issued_at"`
}

// EventPublisher publishes domain events after the state change committed
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func NewEnrollmentEvent(eventType string, enrollment *models.Enrollment, actorID string) *Event {
	return NewEvent(eventType, EnrollmentEventData{
		EnrollmentID: enrollment.ID,
		UserID:       enrollment.UserID,
		TrainingID:   enrollment.TrainingID,
		Status:       enrollment.Status,
		Score:        enrollment.Score,
		CompletedAt:  enrollment.CompletedAt,
		ActorID:      actorID,
	})
}

func NewCertificateIssuedEvent(certificate *models.Certificate, trainingTitle string) *Event {
	return NewEvent(CertificateIssued, CertificateIssuedData{
		CertificateID: certificate.ID,
		EnrollmentID:  certificate.EnrollmentID,
		UserID:        certificate.UserID,
		TrainingID:    certificate.TrainingID,
		TrainingTitle: trainingTitle,
		Number:        certificate.Number,
		FileURL:       certificate.FileURL,
		IssuedAt:      certificate.IssuedAt,
	})
}

type rawEvent struct {
	Event
	Data json.RawMessage `json:"data"`
}

// DecodeEvent unmarshals a message payload, filling data with the event body
func DecodeEvent(msg *message.Message, data interface{}) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(msg.Payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	if data != nil {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			return nil, fmt.Errorf("failed to decode %s event data: %w", raw.Type, err)
		}
	}
	event := raw.Event
	event.Data = data
	return &event, nil
}
