package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trademinutes-gateway/internal/flow"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/session"
	"trademinutes-gateway/internal/taskform"
	"trademinutes-gateway/internal/upstream"
	"trademinutes-gateway/pkg/logger"
)

const (
	categoriesFlight  = "categories"
	categoriesTimeout = 15 * time.Second
)

// BookedMessage is returned to the page after a successful booking.
const BookedMessage = "Appointment booked successfully!"

// TaskDetail is the task detail page payload.
type TaskDetail struct {
	Task          models.Task `json:"task"`
	AlreadyBooked bool        `json:"alreadyBooked"`
	CanBook       bool        `json:"canBook"`
	CanMessage    bool        `json:"canMessage"`
}

// BookingResult is the outcome of a booking submission.
type BookingResult struct {
	BookingID string     `json:"bookingId,omitempty"`
	Message   string     `json:"message,omitempty"`
	Flow      flow.State `json:"flow"`
}

// HasActiveBooking reports whether bookings hold a live booking of taskID.
func HasActiveBooking(bookings []models.Booking, taskID string) bool {
	for _, b := range bookings {
		if b.TaskID == taskID && b.Active() {
			return true
		}
	}
	return false
}

// bookable returns why the caller cannot book task, or nil.
func bookable(task models.Task, profile models.Profile, callerEmail string) error {
	if _, ok := task.FirstAvailability(); !ok {
		return fmt.Errorf("%w: task has no availability", ErrNotBookable)
	}
	if task.Author.ID == "" {
		return fmt.Errorf("%w: task owner unknown", ErrNotBookable)
	}
	if task.Author.ID == profile.ID || (task.Author.Email != "" && strings.EqualFold(task.Author.Email, callerEmail)) {
		return fmt.Errorf("%w: you cannot book your own task", ErrNotBookable)
	}
	return nil
}

func (g *Gateway) alreadyBooked(ctx context.Context, token, userID, taskID string) (bool, error) {
	bookings, err := g.Bookings.List(ctx, token, models.RoleBooker, userID)
	if err != nil {
		return false, err
	}
	return HasActiveBooking(bookings, taskID), nil
}

// TaskDetail loads a task with the caller's booking guard. The guard is best
// effort: when the caller's bookings cannot be listed the task shows as not booked.
func (g *Gateway) TaskDetail(ctx context.Context, s session.Session, taskID string) (TaskDetail, error) {
	if strings.TrimSpace(taskID) == "" {
		return TaskDetail{}, ErrMissingTask
	}
	task, err := g.Tasks.Get(ctx, s.Token, taskID)
	if err != nil {
		return TaskDetail{}, fmt.Errorf("load task: %w", err)
	}
	detail := TaskDetail{
		Task:       task,
		CanMessage: task.Author.Email != "" && !strings.EqualFold(task.Author.Email, s.Email),
	}

	profile, err := g.Profiles.Profile(ctx, s.Token)
	if err != nil {
		logger.Warn(ctx, "Booking guard skipped: profile unavailable", "task_id", taskID, "error", err)
		return detail, nil
	}
	booked, err := g.alreadyBooked(ctx, s.Token, profile.ID, task.ID)
	if err != nil {
		logger.Warn(ctx, "Booking guard skipped: bookings unavailable", "task_id", taskID, "error", err)
	}
	detail.AlreadyBooked = booked
	detail.CanBook = !booked && bookable(task, profile, s.Email) == nil
	return detail, nil
}

// Book submits a pending booking of the task's first availability for the caller.
// The result carries the flow state even when an error is returned.
func (g *Gateway) Book(ctx context.Context, s session.Session, taskID string) (BookingResult, error) {
	state, _ := flow.New().Send()
	fail := func(err error) (BookingResult, error) {
		state, _ = state.Fail(upstream.Detail(err))
		return BookingResult{Flow: state}, err
	}

	if strings.TrimSpace(taskID) == "" {
		return fail(ErrMissingTask)
	}
	task, err := g.Tasks.Get(ctx, s.Token, taskID)
	if err != nil {
		return fail(fmt.Errorf("load task: %w", err))
	}
	profile, err := g.Profiles.Profile(ctx, s.Token)
	if err != nil {
		return fail(fmt.Errorf("load profile: %w", err))
	}
	if err := bookable(task, profile, s.Email); err != nil {
		return fail(err)
	}
	booked, err := g.alreadyBooked(ctx, s.Token, profile.ID, task.ID)
	if err != nil {
		return fail(fmt.Errorf("check existing bookings: %w", err))
	}
	if booked {
		return fail(ErrAlreadyBooked)
	}

	slot, _ := task.FirstAvailability()
	id, err := g.Bookings.Book(ctx, s.Token, models.BookingRequest{
		TaskID:      task.ID,
		BookerID:    profile.ID,
		TaskOwnerID: task.Author.ID,
		Credits:     task.Credits,
		Timeslot:    slot,
		Status:      models.BookingPending,
	})
	if err != nil {
		logger.Error(ctx, "Booking failed", "task_id", task.ID, "error", err)
		return fail(err)
	}
	state, _ = state.Succeed()
	logger.Info(ctx, "Booking requested", "task_id", task.ID, "booking_id", id)

	affected := []string{profile.ID, task.Author.ID}
	if g.Cache != nil {
		g.Cache.InvalidateAppointments(ctx, affected...)
	}
	g.publish(ctx, &models.Event{
		Kind:      models.EventBookingRequested,
		UserEmail: s.Email,
		UserID:    profile.ID,
		TaskID:    task.ID,
		Reference: id,
		Affected:  affected,
	})
	return BookingResult{BookingID: id, Message: BookedMessage, Flow: state}, nil
}

// CreateTask validates and submits a new task. Invalid input never reaches the
// task service.
func (g *Gateway) CreateTask(ctx context.Context, s session.Session, in models.TaskInput) (string, error) {
	if err := taskform.Validate(in); err != nil {
		return "", err
	}
	id, err := g.Tasks.Create(ctx, s.Token, in)
	if err != nil {
		logger.Error(ctx, "Task creation failed", "error", err)
		return "", fmt.Errorf("create task: %w", err)
	}
	logger.Info(ctx, "Task created", "task_id", id)
	g.publish(ctx, &models.Event{
		Kind:      models.EventTaskCreated,
		UserEmail: s.Email,
		TaskID:    id,
		Reference: id,
	})
	return id, nil
}

// Categories returns task categories from cache, coalescing concurrent misses
// into one upstream call. The shared call outlives any single caller; each
// caller still returns as soon as its own ctx is done.
func (g *Gateway) Categories(ctx context.Context, s session.Session) ([]string, error) {
	if g.Cache != nil {
		if cats, ok := g.Cache.GetCategories(ctx); ok {
			return cats, nil
		}
	}
	ch := g.sf.DoChan(categoriesFlight, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), categoriesTimeout)
		defer cancel()
		cats, err := g.Tasks.Categories(fctx, s.Token)
		if err != nil {
			return nil, err
		}
		if g.Cache != nil {
			g.Cache.SetCategories(fctx, cats)
		}
		return cats, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load categories: %w", res.Err)
		}
		if res.Shared {
			logger.Debug(ctx, "Categories fetch coalesced")
		}
		return res.Val.([]string), nil
	}
}

// Suggest proxies address autocompletion.
func (g *Gateway) Suggest(ctx context.Context, query string) ([]models.GeocodeSuggestion, error) {
	out, err := g.Geocoder.Suggest(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	return out, nil
}
