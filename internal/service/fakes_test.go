package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"trademinutes-gateway/internal/appointments"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/session"
	"trademinutes-gateway/internal/upstream"
)

var testSession = session.Session{Token: "tok", Email: "bob@example.com"}

type fakeProfiles struct {
	profile models.Profile
	err     error
}

func (f *fakeProfiles) Profile(ctx context.Context, token string) (models.Profile, error) {
	return f.profile, f.err
}

type fakeTasks struct {
	mu         sync.Mutex
	tasks      map[string]models.Task
	categories []string
	catCalls   atomic.Int32
	catGate    chan struct{}
	created    []models.TaskInput
	createErr  error
}

func (f *fakeTasks) Get(ctx context.Context, token, id string) (models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return models.Task{}, &upstream.RequestError{Service: "tasks", StatusCode: http.StatusNotFound, Detail: "task not found"}
	}
	return t, nil
}

func (f *fakeTasks) Categories(ctx context.Context, token string) ([]string, error) {
	f.catCalls.Add(1)
	if f.catGate != nil {
		select {
		case <-f.catGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.categories, nil
}

func (f *fakeTasks) Create(ctx context.Context, token string, in models.TaskInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	if f.createErr != nil {
		return "", f.createErr
	}
	return "t-new", nil
}

type fakeBookings struct {
	byRole  map[string][]models.Booking
	listErr error
	roles   []string
	booked  []models.BookingRequest
	bookErr error
}

func (f *fakeBookings) List(ctx context.Context, token, role, userID string) ([]models.Booking, error) {
	f.roles = append(f.roles, role)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byRole[role], nil
}

func (f *fakeBookings) Book(ctx context.Context, token string, req models.BookingRequest) (string, error) {
	f.booked = append(f.booked, req)
	if f.bookErr != nil {
		return "", f.bookErr
	}
	return "b-new", nil
}

type fakeMessenger struct {
	created []models.ConversationRequest
	posted  []models.Message
	postErr error
}

func (f *fakeMessenger) CreateConversation(ctx context.Context, token string, req models.ConversationRequest) (string, error) {
	f.created = append(f.created, req)
	return "c1", nil
}

func (f *fakeMessenger) PostMessage(ctx context.Context, token, conversationID string, msg models.Message) error {
	f.posted = append(f.posted, msg)
	return f.postErr
}

type memCache struct {
	mu           sync.Mutex
	categories   []string
	appointments map[string]models.AppointmentList
	handoff      map[string]string
	invalidated  []string
}

func newMemCache() *memCache {
	return &memCache{appointments: map[string]models.AppointmentList{}, handoff: map[string]string{}}
}

func (m *memCache) GetCategories(ctx context.Context) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categories, m.categories != nil
}

func (m *memCache) SetCategories(ctx context.Context, cats []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = cats
}

func (m *memCache) GetAppointments(ctx context.Context, userID, role string) (models.AppointmentList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.appointments[role+":"+userID]
	return l, ok
}

func (m *memCache) SetAppointments(ctx context.Context, userID, role string, list models.AppointmentList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[role+":"+userID] = list
}

func (m *memCache) InvalidateAppointments(ctx context.Context, userIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, userIDs...)
	for _, id := range userIDs {
		delete(m.appointments, models.RoleOwner+":"+id)
		delete(m.appointments, models.RoleBooker+":"+id)
	}
}

func (m *memCache) PutHandoff(ctx context.Context, email, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handoff[strings.ToLower(email)] = conversationID
	return nil
}

func (m *memCache) TakeHandoff(ctx context.Context, email string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.handoff[strings.ToLower(email)]
	delete(m.handoff, strings.ToLower(email))
	return id, ok, nil
}

type fakeEvents struct {
	events []models.Event
	err    error
}

func (f *fakeEvents) Publish(ctx context.Context, ev *models.Event) error {
	f.events = append(f.events, *ev)
	return f.err
}

var errUnreachable = errors.New("dial tcp: connection refused")

type fixture struct {
	gw        *Gateway
	profiles  *fakeProfiles
	tasks     *fakeTasks
	bookings  *fakeBookings
	messenger *fakeMessenger
	cache     *memCache
	events    *fakeEvents
}

func newFixture() *fixture {
	f := &fixture{
		profiles: &fakeProfiles{profile: models.Profile{ID: "u-bob", Email: "bob@example.com"}},
		tasks: &fakeTasks{tasks: map[string]models.Task{
			"t1": {
				ID:           "t1",
				Title:        "Math help",
				Location:     "Library",
				Credits:      2,
				Author:       models.Author{ID: "u-ann", Email: "ann@example.com", Name: "Ann", Avatar: "ann.png"},
				Availability: []models.Availability{{Date: "2099-01-01", TimeFrom: "10:00", TimeTo: "11:00"}},
			},
		}},
		bookings:  &fakeBookings{byRole: map[string][]models.Booking{}},
		messenger: &fakeMessenger{},
		cache:     newMemCache(),
		events:    &fakeEvents{},
	}
	f.gw = &Gateway{
		Profiles:  f.profiles,
		Tasks:     f.tasks,
		Bookings:  f.bookings,
		Messenger: f.messenger,
		Cache:     f.cache,
		Events:    f.events,
		Enricher: &appointments.Enricher{
			Tasks:    f.tasks,
			Location: time.UTC,
			Limit:    4,
			Now:      func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) },
		},
	}
	return f
}
