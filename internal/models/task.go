package models

// Availability is one bookable window of a task, or the booked window of a booking.
type Availability struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeFrom string `json:"timeFrom" validate:"required,datetime=15:04"`
	TimeTo   string `json:"timeTo" validate:"required,datetime=15:04"`
}

// IsZero reports whether no field of the window is set.
func (a Availability) IsZero() bool {
	return a.Date == "" && a.TimeFrom == "" && a.TimeTo == ""
}

// Author is the user who created a task.
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Task is a unit of offered work as served by the task service.
type Task struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Location     string         `json:"location"`
	Latitude     float64        `json:"latitude,omitempty"`
	Longitude    float64        `json:"longitude,omitempty"`
	LocationType string         `json:"locationType"`
	Credits      int            `json:"credits"`
	Author       Author         `json:"author"`
	Availability []Availability `json:"availability"`
	CreatedAt    int64          `json:"createdAt,omitempty"`
	CompletedAt  int64          `json:"completedAt,omitempty"`
	Status       string         `json:"status,omitempty"`
	Type         string         `json:"type,omitempty"`
	Category     string         `json:"category,omitempty"`
	IsBookable   bool           `json:"isBookable"`
	AcceptedBy   string         `json:"acceptedBy,omitempty"`
}

// FirstAvailability returns the first availability window, if any.
func (t Task) FirstAvailability() (Availability, bool) {
	if len(t.Availability) == 0 {
		return Availability{}, false
	}
	return t.Availability[0], true
}

// TaskInput is the create payload accepted from the task creation form.
// Field order is the order validation failures are reported in.
type TaskInput struct {
	Category     string         `json:"category" validate:"notblank"`
	Title        string         `json:"title" validate:"notblank"`
	Description  string         `json:"description" validate:"notblank"`
	Availability []Availability `json:"availability" validate:"len=1,dive"`
	Location     string         `json:"location" validate:"notblank"`
	Latitude     float64        `json:"latitude" validate:"required,latitude"`
	Longitude    float64        `json:"longitude" validate:"required,longitude"`
	LocationType string         `json:"locationType" validate:"oneof=in-person remote online"`
	Credits      int            `json:"credits" validate:"gt=0"`
}
