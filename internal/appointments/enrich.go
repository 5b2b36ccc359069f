// Package appointments builds appointment view-models by joining bookings with
// their tasks.
package appointments

import (
	"context"
	"strconv"
	"time"

	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// slotLayout is how a booking date and start time are combined for classification.
const slotLayout = "2006-01-02 15:04"

// TaskFetcher loads one task on behalf of the caller.
type TaskFetcher interface {
	Get(ctx context.Context, token, id string) (models.Task, error)
}

// Enricher merges bookings with task details.
type Enricher struct {
	Tasks    TaskFetcher
	Location *time.Location
	// Limit bounds concurrent task fetches; <= 0 means unbounded.
	Limit int
	Now   func() time.Time
}

// Enrich returns one appointment per booking, in booking order. Every task fetch
// runs concurrently and Enrich returns only after all of them settle; a failed
// fetch degrades its own appointment and nothing else.
func (e *Enricher) Enrich(ctx context.Context, token string, bookings []models.Booking) []models.Appointment {
	out := make([]models.Appointment, len(bookings))
	now := e.now()

	var g errgroup.Group
	if e.Limit > 0 {
		g.SetLimit(e.Limit)
	}
	for i, b := range bookings {
		g.Go(func() error {
			out[i] = e.enrichOne(ctx, token, i, b, now)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Enricher) enrichOne(ctx context.Context, token string, idx int, b models.Booking, now time.Time) models.Appointment {
	appt := models.Appointment{
		ID:            b.ID,
		Title:         models.PlaceholderTitle,
		Location:      models.PlaceholderLocation,
		BookingStatus: b.Status,
		TaskID:        b.TaskID,
	}
	if appt.ID == "" {
		appt.ID = strconv.Itoa(idx)
	}

	var slot models.Availability
	if b.Timeslot != nil {
		slot = *b.Timeslot
	}

	if b.TaskID != "" && e.Tasks != nil {
		task, err := e.Tasks.Get(ctx, token, b.TaskID)
		if err != nil {
			logger.Warn(ctx, "Task fetch failed during enrichment", "booking_id", b.ID, "task_id", b.TaskID, "error", err)
			appt.Degraded = true
		} else {
			if task.Title != "" {
				appt.Title = task.Title
			}
			if task.Location != "" {
				appt.Location = task.Location
			}
			appt.TaskOwnerID = task.Author.ID
			appt.TaskOwnerEmail = task.Author.Email
			if slot.Date == "" || slot.TimeFrom == "" || slot.TimeTo == "" {
				if first, ok := task.FirstAvailability(); ok {
					slot = first
				}
			}
		}
	}

	appt.Date = orDefault(slot.Date, models.PlaceholderDate)
	appt.TimeFrom = orDefault(slot.TimeFrom, models.PlaceholderTime)
	appt.TimeTo = orDefault(slot.TimeTo, models.PlaceholderTime)
	appt.Time = appt.TimeFrom + " - " + appt.TimeTo

	status, ok := Classify(appt.Date, appt.TimeFrom, now, e.location())
	appt.Status = status
	if !ok {
		appt.Degraded = true
	}
	return appt
}

// Classify labels a slot upcoming when its start is strictly after now. A slot
// whose date or start cannot be parsed is past, with ok=false.
func Classify(date, start string, now time.Time, loc *time.Location) (status string, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	at, err := time.ParseInLocation(slotLayout, date+" "+start, loc)
	if err != nil {
		return models.StatusPast, false
	}
	if at.After(now) {
		return models.StatusUpcoming, true
	}
	return models.StatusPast, true
}

func (e *Enricher) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Enricher) location() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.Local
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
