// Package conversation opens a direct conversation about a task and delivers
// the first message.
package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/upstream"
)

var (
	ErrEmptyMessage       = errors.New("message is empty")
	ErrMissingCounterpart = errors.New("task owner email not found")
	ErrMissingSender      = errors.New("sender email not found")
	ErrSelfConversation   = errors.New("cannot message yourself about your own task")
)

// Messenger is the messaging service.
type Messenger interface {
	CreateConversation(ctx context.Context, token string, req models.ConversationRequest) (string, error)
	PostMessage(ctx context.Context, token, conversationID string, msg models.Message) error
}

// Request describes one bootstrap.
type Request struct {
	SenderEmail      string
	SenderName       string
	CounterpartEmail string
	TaskID           string
	TaskTitle        string
	Avatar           string
	Content          string
}

// Step names the protocol step that failed.
type Step string

const (
	StepCreate Step = "create"
	StepSend   Step = "send"
)

// StepError is an upstream failure at one step of the protocol.
type StepError struct {
	Step           Step
	ConversationID string
	Err            error
}

func (e *StepError) Error() string {
	detail := upstream.Detail(e.Err)
	if e.Step == StepCreate {
		return "Failed to start conversation: " + detail
	}
	return "Failed to send message: " + detail
}

func (e *StepError) Unwrap() error { return e.Err }

// Participants returns the pair in a canonical order so that a direct
// conversation has one identity whoever starts it.
func Participants(a, b string) []string {
	p := []string{strings.TrimSpace(a), strings.TrimSpace(b)}
	sort.Strings(p)
	return p
}

// Validate checks the preconditions without calling the messaging service.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.SenderEmail) == "":
		return ErrMissingSender
	case strings.TrimSpace(r.CounterpartEmail) == "":
		return ErrMissingCounterpart
	case strings.EqualFold(strings.TrimSpace(r.SenderEmail), strings.TrimSpace(r.CounterpartEmail)):
		return ErrSelfConversation
	case strings.TrimSpace(r.Content) == "":
		return ErrEmptyMessage
	}
	return nil
}

// Bootstrap creates or reuses the conversation, then posts the first message.
// It returns the conversation id. Nothing is retried.
func Bootstrap(ctx context.Context, m Messenger, token string, r Request) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	id, err := m.CreateConversation(ctx, token, models.ConversationRequest{
		Type:         "direct",
		Name:         "Task: " + r.TaskTitle,
		Avatar:       r.Avatar,
		Participants: Participants(r.SenderEmail, r.CounterpartEmail),
		TaskID:       r.TaskID,
	})
	if err != nil {
		return "", &StepError{Step: StepCreate, Err: err}
	}
	err = m.PostMessage(ctx, token, id, models.Message{
		Content:    r.Content,
		SenderID:   strings.TrimSpace(r.SenderEmail),
		SenderName: r.SenderName,
		Type:       "text",
	})
	if err != nil {
		return "", &StepError{Step: StepSend, ConversationID: id, Err: err}
	}
	return id, nil
}

// IsValidation reports whether err is a precondition failure rather than an upstream one.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrMissingCounterpart) ||
		errors.Is(err, ErrMissingSender) || errors.Is(err, ErrSelfConversation)
}
