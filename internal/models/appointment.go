package models

// Appointment statuses.
const (
	StatusUpcoming = "upcoming"
	StatusPast     = "past"
)

// Placeholders rendered when neither the booking nor its task provide a value.
const (
	PlaceholderDate     = "not available"
	PlaceholderTime     = "-"
	PlaceholderTitle    = "(No title)"
	PlaceholderLocation = "(No location)"
)

// Appointment is a booking merged with its task for display.
type Appointment struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	TimeFrom       string `json:"timeFrom"`
	TimeTo         string `json:"timeTo"`
	Location       string `json:"location"`
	Status         string `json:"status"`
	BookingStatus  string `json:"bookingStatus,omitempty"`
	TaskID         string `json:"taskId,omitempty"`
	TaskOwnerID    string `json:"taskOwnerId,omitempty"`
	TaskOwnerEmail string `json:"taskOwnerEmail,omitempty"`
	// Degraded is set when the task could not be loaded or the slot could not be dated.
	Degraded bool `json:"degraded,omitempty"`
}

// CanMessageOwner reports whether the page may offer the "message task owner" action.
func (a Appointment) CanMessageOwner() bool {
	return a.TaskID != "" && a.TaskOwnerID != "" && a.TaskOwnerEmail != ""
}

// AppointmentList is the appointments page payload.
type AppointmentList struct {
	Appointments []Appointment `json:"appointments"`
	Upcoming     []Appointment `json:"upcoming"`
	Past         []Appointment `json:"past"`
}

// Partition splits appointments by status, preserving order.
func Partition(appts []Appointment) AppointmentList {
	out := AppointmentList{
		Appointments: appts,
		Upcoming:     []Appointment{},
		Past:         []Appointment{},
	}
	if out.Appointments == nil {
		out.Appointments = []Appointment{}
	}
	for _, a := range appts {
		if a.Status == StatusUpcoming {
			out.Upcoming = append(out.Upcoming, a)
		} else {
			out.Past = append(out.Past, a)
		}
	}
	return out
}
