package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"trademinutes-gateway/internal/conversation"
	"trademinutes-gateway/internal/flow"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/taskform"
	"trademinutes-gateway/internal/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppointmentsDefaultsToOwnerRoleAndPartitions(t *testing.T) {
	f := newFixture()
	f.bookings.byRole[models.RoleOwner] = []models.Booking{
		{ID: "b1", TaskID: "t1"},
		{ID: "b2", Timeslot: &models.Availability{Date: "2020-01-01", TimeFrom: "09:00", TimeTo: "10:00"}},
	}

	list, err := f.gw.Appointments(context.Background(), testSession, "")

	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleOwner}, f.bookings.roles)
	require.Len(t, list.Appointments, 2)
	require.Len(t, list.Upcoming, 1)
	require.Len(t, list.Past, 1)
	assert.Equal(t, "b1", list.Upcoming[0].ID)
	assert.Equal(t, "b2", list.Past[0].ID)

	_, cached := f.cache.GetAppointments(context.Background(), "u-bob", models.RoleOwner)
	assert.True(t, cached)
}

func TestAppointmentsRejectsUnknownRole(t *testing.T) {
	f := newFixture()
	_, err := f.gw.Appointments(context.Background(), testSession, "admin")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAppointmentsPageLevelFailures(t *testing.T) {
	f := newFixture()
	f.profiles.err = errUnreachable
	_, err := f.gw.Appointments(context.Background(), testSession, models.RoleBooker)
	assert.ErrorIs(t, err, errUnreachable)

	f = newFixture()
	f.bookings.listErr = &upstream.RequestError{Service: "bookings", StatusCode: http.StatusInternalServerError}
	_, err = f.gw.Appointments(context.Background(), testSession, models.RoleBooker)
	code, ok := upstream.HTTPStatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestDegradedAppointmentsAreNotCached(t *testing.T) {
	f := newFixture()
	f.bookings.byRole[models.RoleOwner] = []models.Booking{{ID: "b1", TaskID: "missing"}}

	list, err := f.gw.Appointments(context.Background(), testSession, models.RoleOwner)

	require.NoError(t, err)
	require.Len(t, list.Past, 1)
	assert.True(t, list.Past[0].Degraded)
	_, cached := f.cache.GetAppointments(context.Background(), "u-bob", models.RoleOwner)
	assert.False(t, cached)
}

func TestHasActiveBookingIgnoresCancelledAndRejected(t *testing.T) {
	bookings := []models.Booking{
		{TaskID: "t1", Status: models.BookingCancelled},
		{TaskID: "t1", Status: models.BookingRejected},
		{TaskID: "t2", Status: models.BookingPending},
	}
	assert.False(t, HasActiveBooking(bookings, "t1"))
	assert.True(t, HasActiveBooking(bookings, "t2"))

	bookings = append(bookings, models.Booking{TaskID: "t1", Status: "accepted"})
	assert.True(t, HasActiveBooking(bookings, "t1"))
}

func TestTaskDetailGuard(t *testing.T) {
	f := newFixture()
	f.bookings.byRole[models.RoleBooker] = []models.Booking{{TaskID: "t1", Status: models.BookingCancelled}}

	d, err := f.gw.TaskDetail(context.Background(), testSession, "t1")
	require.NoError(t, err)
	assert.False(t, d.AlreadyBooked)
	assert.True(t, d.CanBook)
	assert.True(t, d.CanMessage)
	assert.Equal(t, []string{models.RoleBooker}, f.bookings.roles)

	f.bookings.byRole[models.RoleBooker] = append(f.bookings.byRole[models.RoleBooker], models.Booking{TaskID: "t1", Status: models.BookingPending})
	d, err = f.gw.TaskDetail(context.Background(), testSession, "t1")
	require.NoError(t, err)
	assert.True(t, d.AlreadyBooked)
	assert.False(t, d.CanBook)
}

func TestTaskDetailToleratesGuardFailure(t *testing.T) {
	f := newFixture()
	f.bookings.listErr = errUnreachable

	d, err := f.gw.TaskDetail(context.Background(), testSession, "t1")

	require.NoError(t, err)
	assert.False(t, d.AlreadyBooked)
	assert.Equal(t, "Math help", d.Task.Title)
}

func TestTaskDetailMissingTask(t *testing.T) {
	f := newFixture()
	_, err := f.gw.TaskDetail(context.Background(), testSession, "nope")
	code, ok := upstream.HTTPStatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBookSubmitsPendingFirstSlot(t *testing.T) {
	f := newFixture()

	res, err := f.gw.Book(context.Background(), testSession, "t1")

	require.NoError(t, err)
	assert.Equal(t, "b-new", res.BookingID)
	assert.Equal(t, BookedMessage, res.Message)
	assert.Equal(t, flow.Succeeded, res.Flow.Phase)
	require.Len(t, f.bookings.booked, 1)
	assert.Equal(t, models.BookingRequest{
		TaskID:      "t1",
		BookerID:    "u-bob",
		TaskOwnerID: "u-ann",
		Credits:     2,
		Timeslot:    models.Availability{Date: "2099-01-01", TimeFrom: "10:00", TimeTo: "11:00"},
		Status:      models.BookingPending,
	}, f.bookings.booked[0])
	assert.ElementsMatch(t, []string{"u-bob", "u-ann"}, f.cache.invalidated)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventBookingRequested, f.events.events[0].Kind)
	assert.Equal(t, "b-new", f.events.events[0].Reference)
}

func TestBookRefusesDuplicate(t *testing.T) {
	f := newFixture()
	f.bookings.byRole[models.RoleBooker] = []models.Booking{{TaskID: "t1", Status: models.BookingPending}}

	res, err := f.gw.Book(context.Background(), testSession, "t1")

	assert.ErrorIs(t, err, ErrAlreadyBooked)
	assert.Equal(t, flow.Failed, res.Flow.Phase)
	assert.Empty(t, f.bookings.booked)
}

func TestBookRefusesUnbookableTasks(t *testing.T) {
	f := newFixture()
	f.tasks.tasks["own"] = models.Task{ID: "own", Author: models.Author{ID: "u-bob"}, Availability: []models.Availability{{Date: "2099-01-01", TimeFrom: "10:00", TimeTo: "11:00"}}}
	f.tasks.tasks["noslot"] = models.Task{ID: "noslot", Author: models.Author{ID: "u-ann"}}
	f.tasks.tasks["noowner"] = models.Task{ID: "noowner", Availability: []models.Availability{{Date: "2099-01-01", TimeFrom: "10:00", TimeTo: "11:00"}}}

	for _, id := range []string{"own", "noslot", "noowner"} {
		_, err := f.gw.Book(context.Background(), testSession, id)
		assert.ErrorIs(t, err, ErrNotBookable, id)
	}
	assert.Empty(t, f.bookings.booked)
}

func TestBookUpstreamFailureCarriesMessage(t *testing.T) {
	f := newFixture()
	f.bookings.bookErr = &upstream.RequestError{Service: "bookings", StatusCode: http.StatusBadRequest, Detail: "insufficient credits"}

	res, err := f.gw.Book(context.Background(), testSession, "t1")

	require.Error(t, err)
	assert.Equal(t, flow.Failed, res.Flow.Phase)
	assert.Equal(t, "insufficient credits", res.Flow.Reason)
	assert.Empty(t, f.events.events)
}

func TestCreateTaskValidatesBeforeCalling(t *testing.T) {
	f := newFixture()
	in := models.TaskInput{
		Category:     "Tutoring",
		Title:        "Math help",
		Description:  "Algebra",
		Availability: []models.Availability{{Date: "2099-01-01", TimeFrom: "11:00", TimeTo: "10:00"}},
		Location:     "Library",
		Latitude:     43.6,
		Longitude:    -79.4,
		LocationType: "in-person",
		Credits:      1,
	}

	_, err := f.gw.CreateTask(context.Background(), testSession, in)
	var ve *taskform.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Empty(t, f.tasks.created)

	in.Availability[0].TimeTo = "12:00"
	id, err := f.gw.CreateTask(context.Background(), testSession, in)
	require.NoError(t, err)
	assert.Equal(t, "t-new", id)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventTaskCreated, f.events.events[0].Kind)
}

func TestCategoriesCoalescesConcurrentMisses(t *testing.T) {
	f := newFixture()
	f.tasks.categories = []string{"Tutoring", "Errands"}
	f.tasks.catGate = make(chan struct{})

	var wg sync.WaitGroup
	results := make([][]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cats, err := f.gw.Categories(context.Background(), testSession)
			assert.NoError(t, err)
			results[i] = cats
		}(i)
	}
	for f.tasks.catCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	// give the other callers time to join the flight
	time.Sleep(50 * time.Millisecond)
	close(f.tasks.catGate)
	wg.Wait()

	assert.Equal(t, int32(1), f.tasks.catCalls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"Tutoring", "Errands"}, r)
	}

	_, err := f.gw.Categories(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tasks.catCalls.Load(), "served from cache")
}

func TestCategoriesSurvivesLeadingCallerCancel(t *testing.T) {
	f := newFixture()
	f.tasks.categories = []string{"Tutoring"}
	f.tasks.catGate = make(chan struct{})

	leadCtx, cancelLead := context.WithCancel(context.Background())
	leadErr := make(chan error, 1)
	go func() {
		_, err := f.gw.Categories(leadCtx, testSession)
		leadErr <- err
	}()
	for f.tasks.catCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	var follower []string
	var followerErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		follower, followerErr = f.gw.Categories(context.Background(), testSession)
	}()
	time.Sleep(50 * time.Millisecond)

	cancelLead()
	assert.ErrorIs(t, <-leadErr, context.Canceled)

	close(f.tasks.catGate)
	<-done
	require.NoError(t, followerErr)
	assert.Equal(t, []string{"Tutoring"}, follower)
	assert.Equal(t, int32(1), f.tasks.catCalls.Load())
}

func TestStartConversationLooksUpOwnerAndStoresHandoff(t *testing.T) {
	f := newFixture()

	res, err := f.gw.StartConversation(context.Background(), testSession, MessageInput{TaskID: "t1", Content: "Hi Ann"})

	require.NoError(t, err)
	assert.Equal(t, "c1", res.ConversationID)
	assert.Equal(t, MessagesPath, res.Redirect)
	assert.Equal(t, flow.Succeeded, res.Flow.Phase)
	require.Len(t, f.messenger.created, 1)
	assert.Equal(t, "Task: Math help", f.messenger.created[0].Name)
	assert.Equal(t, []string{"ann@example.com", "bob@example.com"}, f.messenger.created[0].Participants)

	id, ok, err := f.gw.TakeHandoff(context.Background(), testSession)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c1", id)
	_, ok, _ = f.gw.TakeHandoff(context.Background(), testSession)
	assert.False(t, ok, "handoff is single use")

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventConversationStarted, f.events.events[0].Kind)
}

func TestStartConversationSendFailureLeavesNoHandoff(t *testing.T) {
	f := newFixture()
	f.messenger.postErr = &upstream.RequestError{Service: "messaging", StatusCode: http.StatusBadGateway, Detail: "queue full"}

	res, err := f.gw.StartConversation(context.Background(), testSession, MessageInput{TaskID: "t1", OwnerEmail: "ann@example.com", TaskTitle: "Math help", Content: "Hi"})

	require.Error(t, err)
	assert.Equal(t, flow.Failed, res.Flow.Phase)
	assert.Equal(t, "Failed to send message: queue full", res.Flow.Reason)
	_, ok, _ := f.gw.TakeHandoff(context.Background(), testSession)
	assert.False(t, ok)
}

func TestStartConversationValidation(t *testing.T) {
	f := newFixture()

	_, err := f.gw.StartConversation(context.Background(), testSession, MessageInput{TaskID: "t1", Content: "  "})
	assert.ErrorIs(t, err, conversation.ErrEmptyMessage)

	_, err = f.gw.StartConversation(context.Background(), testSession, MessageInput{OwnerEmail: "BOB@example.com", TaskTitle: "x", Content: "hi"})
	assert.ErrorIs(t, err, conversation.ErrSelfConversation)
	assert.Empty(t, f.messenger.created)
}
