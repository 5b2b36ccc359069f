package upstream

import (
	"context"
	"fmt"
	"net/url"

	"trademinutes-gateway/internal/models"
)

// Auth is the auth/profile service.
type Auth struct {
	c *Client
}

// NewAuth wraps c as the auth service.
func NewAuth(c *Client) *Auth { return &Auth{c: c} }

// Profile resolves the bearer credential to the user's profile.
func (a *Auth) Profile(ctx context.Context, token string) (models.Profile, error) {
	body, err := a.c.Get(ctx, "/api/auth/profile", token)
	if err != nil {
		return models.Profile{}, err
	}
	return models.DecodeProfile(body)
}

// Tasks is the task catalog service.
type Tasks struct {
	c *Client
}

// NewTasks wraps c as the task service.
func NewTasks(c *Client) *Tasks { return &Tasks{c: c} }

// Get fetches one task by id. A body without an id takes the requested one.
func (t *Tasks) Get(ctx context.Context, token, id string) (models.Task, error) {
	body, err := t.c.Get(ctx, "/api/tasks/get/"+url.PathEscape(id), token)
	if err != nil {
		return models.Task{}, err
	}
	task, err := models.DecodeTask(body)
	if err != nil {
		return models.Task{}, err
	}
	if task.ID == "" {
		task.ID = id
	}
	return task, nil
}

// Categories lists task categories.
func (t *Tasks) Categories(ctx context.Context, token string) ([]string, error) {
	body, err := t.c.Get(ctx, "/api/tasks/categories", token)
	if err != nil {
		return nil, err
	}
	return models.DecodeCategories(body)
}

// Create submits a new task and returns its id.
func (t *Tasks) Create(ctx context.Context, token string, in models.TaskInput) (string, error) {
	body, err := t.c.Post(ctx, "/api/tasks/create", token, in)
	if err != nil {
		return "", err
	}
	return models.DecodeCreatedID("task", body)
}

// Bookings is the booking service. It is served by the task service host.
type Bookings struct {
	c *Client
}

// NewBookings wraps c as the booking service.
func NewBookings(c *Client) *Bookings { return &Bookings{c: c} }

// List returns the bookings where userID has the given role (owner or booker).
func (b *Bookings) List(ctx context.Context, token, role, userID string) ([]models.Booking, error) {
	if role != models.RoleOwner && role != models.RoleBooker {
		return nil, fmt.Errorf("invalid booking role %q", role)
	}
	q := url.Values{}
	q.Set("role", role)
	q.Set("id", userID)
	body, err := b.c.Get(ctx, "/api/bookings?"+q.Encode(), token)
	if err != nil {
		return nil, err
	}
	return models.DecodeBookings(body)
}

// Book submits a booking request and returns the new booking id.
func (b *Bookings) Book(ctx context.Context, token string, req models.BookingRequest) (string, error) {
	body, err := b.c.Post(ctx, "/api/bookings/book", token, req)
	if err != nil {
		return "", err
	}
	return models.DecodeCreatedID("booking", body)
}

// Messaging is the conversation service.
type Messaging struct {
	c *Client
}

// NewMessaging wraps c as the messaging service.
func NewMessaging(c *Client) *Messaging { return &Messaging{c: c} }

// CreateConversation creates or looks up a conversation and returns its id.
func (m *Messaging) CreateConversation(ctx context.Context, token string, req models.ConversationRequest) (string, error) {
	body, err := m.c.Post(ctx, "/api/conversations", token, req)
	if err != nil {
		return "", err
	}
	return models.DecodeConversationID(body)
}

// PostMessage appends msg to the conversation.
func (m *Messaging) PostMessage(ctx context.Context, token, conversationID string, msg models.Message) error {
	_, err := m.c.Post(ctx, "/api/conversations/"+url.PathEscape(conversationID)+"/messages", token, msg)
	return err
}
