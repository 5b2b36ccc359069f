package models

// Booking statuses the gateway reasons about. Other values are opaque.
const (
	BookingPending   = "pending"
	BookingCancelled = "cancelled"
	BookingRejected  = "rejected"
)

// Booking roles accepted by the booking service listing.
const (
	RoleOwner  = "owner"
	RoleBooker = "booker"
)

// Booking is a reservation of a task's time slot by another user.
type Booking struct {
	ID          string        `json:"id"`
	TaskID      string        `json:"taskId"`
	BookerID    string        `json:"bookerId"`
	TaskOwnerID string        `json:"taskOwnerId"`
	Timeslot    *Availability `json:"timeslot,omitempty"`
	Status      string        `json:"status"`
	Credits     int           `json:"credits"`
	BookedAt    int64         `json:"bookedAt,omitempty"`
}

// Active reports whether the booking still holds the slot.
func (b Booking) Active() bool {
	return b.Status != BookingCancelled && b.Status != BookingRejected
}

// BookingRequest is the payload sent to the booking service.
type BookingRequest struct {
	TaskID      string       `json:"taskId"`
	BookerID    string       `json:"bookerId"`
	TaskOwnerID string       `json:"taskOwnerId"`
	Credits     int          `json:"credits"`
	Timeslot    Availability `json:"timeslot"`
	Status      string       `json:"status"`
}

// Profile is the authenticated user as returned by the auth service.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
