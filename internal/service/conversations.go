package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trademinutes-gateway/internal/conversation"
	"trademinutes-gateway/internal/flow"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/session"
	"trademinutes-gateway/internal/upstream"
	"trademinutes-gateway/pkg/logger"
)

// MessagesPath is where the page goes after a conversation is started.
const MessagesPath = "/messages"

// MessageInput starts a conversation with a task's owner. OwnerEmail and
// TaskTitle are looked up from the task when the page does not supply them.
type MessageInput struct {
	TaskID     string `json:"taskId"`
	OwnerEmail string `json:"taskOwnerEmail"`
	TaskTitle  string `json:"title"`
	Avatar     string `json:"avatar"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
}

// MessageResult is the outcome of a conversation bootstrap.
type MessageResult struct {
	ConversationID string     `json:"conversationId,omitempty"`
	Redirect       string     `json:"redirect,omitempty"`
	Flow           flow.State `json:"flow"`
}

// StartConversation opens (or reuses) the direct conversation between the caller
// and the task owner, posts the first message and records the conversation as
// the caller's pending handoff. The result carries the flow state even when an
// error is returned.
func (g *Gateway) StartConversation(ctx context.Context, s session.Session, in MessageInput) (MessageResult, error) {
	state, _ := flow.New().Send()
	fail := func(err error) (MessageResult, error) {
		state, _ = state.Fail(errorReason(err))
		return MessageResult{Flow: state}, err
	}

	if strings.TrimSpace(in.Content) == "" {
		return fail(conversation.ErrEmptyMessage)
	}
	if in.TaskID != "" && (in.OwnerEmail == "" || in.TaskTitle == "") {
		task, err := g.Tasks.Get(ctx, s.Token, in.TaskID)
		if err != nil {
			return fail(fmt.Errorf("load task: %w", err))
		}
		if in.OwnerEmail == "" {
			in.OwnerEmail = task.Author.Email
		}
		if in.TaskTitle == "" {
			in.TaskTitle = task.Title
		}
		if in.Avatar == "" {
			in.Avatar = task.Author.Avatar
		}
	}

	senderName := strings.TrimSpace(in.SenderName)
	if senderName == "" {
		senderName = s.Email
	}
	id, err := conversation.Bootstrap(ctx, g.Messenger, s.Token, conversation.Request{
		SenderEmail:      s.Email,
		SenderName:       senderName,
		CounterpartEmail: in.OwnerEmail,
		TaskID:           in.TaskID,
		TaskTitle:        in.TaskTitle,
		Avatar:           in.Avatar,
		Content:          in.Content,
	})
	if err != nil {
		if !conversation.IsValidation(err) {
			logger.Error(ctx, "Conversation bootstrap failed", "task_id", in.TaskID, "error", err)
		}
		return fail(err)
	}
	state, _ = state.Succeed()

	if g.Cache != nil {
		if err := g.Cache.PutHandoff(ctx, s.Email, id); err != nil {
			logger.Warn(ctx, "Conversation handoff not stored", "conversation_id", id, "error", err)
		}
	}
	g.publish(ctx, &models.Event{
		Kind:      models.EventConversationStarted,
		UserEmail: s.Email,
		TaskID:    in.TaskID,
		Reference: id,
	})
	logger.Info(ctx, "Conversation started", "conversation_id", id, "task_id", in.TaskID)
	return MessageResult{ConversationID: id, Redirect: MessagesPath, Flow: state}, nil
}

// TakeHandoff returns and clears the conversation the messaging page should open.
func (g *Gateway) TakeHandoff(ctx context.Context, s session.Session) (string, bool, error) {
	if g.Cache == nil {
		return "", false, nil
	}
	return g.Cache.TakeHandoff(ctx, s.Email)
}

func errorReason(err error) string {
	var se *conversation.StepError
	if errors.As(err, &se) {
		return se.Error()
	}
	return upstream.Detail(err)
}
