package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"trademinutes-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTasks struct {
	tasks  map[string]models.Task
	delays map[string]time.Duration
	calls  atomic.Int32
}

func (f *fakeTasks) Get(ctx context.Context, token, id string) (models.Task, error) {
	f.calls.Add(1)
	if d := f.delays[id]; d > 0 {
		time.Sleep(d)
	}
	t, ok := f.tasks[id]
	if !ok {
		return models.Task{}, errors.New("dial tcp: connection refused")
	}
	return t, nil
}

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newEnricher(tasks TaskFetcher) *Enricher {
	return &Enricher{
		Tasks:    tasks,
		Location: time.UTC,
		Limit:    4,
		Now:      func() time.Time { return fixedNow },
	}
}

func TestTaskAvailabilityFillsMissingTimeslot(t *testing.T) {
	tasks := &fakeTasks{tasks: map[string]models.Task{
		"t1": {
			ID:           "t1",
			Title:        "Math help",
			Location:     "Library",
			Author:       models.Author{ID: "u2", Email: "owner@example.com"},
			Availability: []models.Availability{{Date: "2099-01-01", TimeFrom: "10:00", TimeTo: "11:00"}},
		},
	}}

	got := newEnricher(tasks).Enrich(context.Background(), "tok", []models.Booking{{TaskID: "t1"}})

	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, "2099-01-01", a.Date)
	assert.Equal(t, "10:00 - 11:00", a.Time)
	assert.Equal(t, models.StatusUpcoming, a.Status)
	assert.Equal(t, "Math help", a.Title)
	assert.Equal(t, "Library", a.Location)
	assert.Equal(t, "owner@example.com", a.TaskOwnerEmail)
	assert.True(t, a.CanMessageOwner())
	assert.False(t, a.Degraded)
}

func TestBookingTimeslotWinsOverTask(t *testing.T) {
	tasks := &fakeTasks{tasks: map[string]models.Task{
		"t1": {ID: "t1", Availability: []models.Availability{{Date: "2099-01-01", TimeFrom: "10:00", TimeTo: "11:00"}}},
	}}
	booking := models.Booking{
		ID:       "b1",
		TaskID:   "t1",
		Timeslot: &models.Availability{Date: "2020-05-01", TimeFrom: "09:00", TimeTo: "09:30"},
	}

	got := newEnricher(tasks).Enrich(context.Background(), "tok", []models.Booking{booking})

	require.Len(t, got, 1)
	assert.Equal(t, "2020-05-01", got[0].Date)
	assert.Equal(t, "09:00 - 09:30", got[0].Time)
	assert.Equal(t, models.StatusPast, got[0].Status)
	assert.Equal(t, "b1", got[0].ID)
}

func TestFailedTaskFetchDegradesToPlaceholders(t *testing.T) {
	tasks := &fakeTasks{tasks: map[string]models.Task{}}

	got := newEnricher(tasks).Enrich(context.Background(), "tok", []models.Booking{{TaskID: "t1"}})

	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, models.PlaceholderTitle, a.Title)
	assert.Equal(t, models.PlaceholderLocation, a.Location)
	assert.Equal(t, models.PlaceholderDate, a.Date)
	assert.Equal(t, models.PlaceholderTime, a.TimeFrom)
	assert.Equal(t, models.PlaceholderTime, a.TimeTo)
	assert.Equal(t, "- - -", a.Time)
	assert.Equal(t, models.StatusPast, a.Status)
	assert.True(t, a.Degraded)
	assert.False(t, a.CanMessageOwner())
}

func TestNoTaskNoTimeslotUsesPlaceholdersWithoutFetching(t *testing.T) {
	tasks := &fakeTasks{}

	got := newEnricher(tasks).Enrich(context.Background(), "tok", []models.Booking{{}})

	require.Len(t, got, 1)
	assert.Equal(t, models.PlaceholderDate, got[0].Date)
	assert.Equal(t, "0", got[0].ID)
	assert.Equal(t, int32(0), tasks.calls.Load())
}

func TestEnrichPreservesOrderAndIsolatesFailures(t *testing.T) {
	tasks := &fakeTasks{
		tasks:  map[string]models.Task{},
		delays: map[string]time.Duration{},
	}
	var bookings []models.Booking
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("t%d", i)
		if i%3 != 0 {
			tasks.tasks[id] = models.Task{ID: id, Title: "task " + id}
		}
		// earlier bookings answer later
		tasks.delays[id] = time.Duration(12-i) * time.Millisecond
		bookings = append(bookings, models.Booking{ID: fmt.Sprintf("b%d", i), TaskID: id})
	}

	got := newEnricher(tasks).Enrich(context.Background(), "tok", bookings)

	require.Len(t, got, len(bookings))
	for i, a := range got {
		assert.Equal(t, bookings[i].ID, a.ID)
		if i%3 == 0 {
			assert.Equal(t, models.PlaceholderTitle, a.Title, "booking %d", i)
			assert.True(t, a.Degraded)
		} else {
			assert.Equal(t, "task "+bookings[i].TaskID, a.Title, "booking %d", i)
		}
	}
	assert.Equal(t, int32(12), tasks.calls.Load())
}

func TestClassify(t *testing.T) {
	now := time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC)

	status, ok := Classify("2030-06-01", "10:00", now, time.UTC)
	assert.True(t, ok)
	assert.Equal(t, models.StatusPast, status, "equal to now is not upcoming")

	status, _ = Classify("2030-06-01", "10:01", now, time.UTC)
	assert.Equal(t, models.StatusUpcoming, status)

	status, _ = Classify("2030-06-01", "09:59", now, time.UTC)
	assert.Equal(t, models.StatusPast, status)

	status, ok = Classify(models.PlaceholderDate, models.PlaceholderTime, now, time.UTC)
	assert.False(t, ok)
	assert.Equal(t, models.StatusPast, status)
}

func TestClassifyUsesLocation(t *testing.T) {
	toronto := time.FixedZone("EST", -5*3600)
	// 10:30 in Toronto is 15:30 UTC, after 15:00 UTC
	now := time.Date(2030, 1, 1, 15, 0, 0, 0, time.UTC)
	status, ok := Classify("2030-01-01", "10:30", now, toronto)
	require.True(t, ok)
	assert.Equal(t, models.StatusUpcoming, status)
}
