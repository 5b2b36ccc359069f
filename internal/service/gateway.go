// Package service composes the upstream services into the page operations the
// gateway serves.
package service

import (
	"context"
	"errors"

	"trademinutes-gateway/internal/appointments"
	"trademinutes-gateway/internal/conversation"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/pkg/logger"

	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidRole   = errors.New("role must be owner or booker")
	ErrAlreadyBooked = errors.New("you have already booked this task")
	ErrNotBookable   = errors.New("task cannot be booked")
	ErrMissingTask   = errors.New("task id is required")
)

// Profiles resolves the caller's profile.
type Profiles interface {
	Profile(ctx context.Context, token string) (models.Profile, error)
}

// Tasks is the task catalog.
type Tasks interface {
	Get(ctx context.Context, token, id string) (models.Task, error)
	Categories(ctx context.Context, token string) ([]string, error)
	Create(ctx context.Context, token string, in models.TaskInput) (string, error)
}

// Bookings is the booking service.
type Bookings interface {
	List(ctx context.Context, token, role, userID string) ([]models.Booking, error)
	Book(ctx context.Context, token string, req models.BookingRequest) (string, error)
}

// Geocoder suggests addresses.
type Geocoder interface {
	Suggest(ctx context.Context, query string) ([]models.GeocodeSuggestion, error)
}

// Cache holds shared read caches and the conversation handoff.
type Cache interface {
	GetCategories(ctx context.Context) ([]string, bool)
	SetCategories(ctx context.Context, cats []string)
	GetAppointments(ctx context.Context, userID, role string) (models.AppointmentList, bool)
	SetAppointments(ctx context.Context, userID, role string, list models.AppointmentList)
	InvalidateAppointments(ctx context.Context, userIDs ...string)
	PutHandoff(ctx context.Context, email, conversationID string) error
	TakeHandoff(ctx context.Context, email string) (string, bool, error)
}

// EventSink receives gateway events.
type EventSink interface {
	Publish(ctx context.Context, ev *models.Event) error
}

// ActivityReader lists recorded events.
type ActivityReader interface {
	List(ctx context.Context, email string, limit int) ([]models.Activity, error)
}

// Gateway implements the page operations.
type Gateway struct {
	Profiles   Profiles
	Tasks      Tasks
	Bookings   Bookings
	Messenger  conversation.Messenger
	Geocoder   Geocoder
	Cache      Cache
	Events     EventSink
	Activities ActivityReader
	Enricher   *appointments.Enricher

	sf singleflight.Group
}

func (g *Gateway) publish(ctx context.Context, ev *models.Event) {
	if g.Events == nil {
		return
	}
	if err := g.Events.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, "Publish event failed", "kind", ev.Kind, "error", err)
	}
}
