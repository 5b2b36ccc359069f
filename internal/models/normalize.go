package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when an upstream payload cannot be mapped to a record.
var ErrMalformed = errors.New("malformed response")

func malformed(entity, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, entity, reason)
}

// object is a JSON object whose keys are folded to lower case, so that the
// capitalized keys of the task service and the camelCase keys of other
// services resolve through the same lookups.
type object map[string]json.RawMessage

func parseObject(raw json.RawMessage) (object, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}
	o := make(object, len(m))
	for k, v := range m {
		o[strings.ToLower(k)] = v
	}
	return o, true
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func (o object) raw(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := o[strings.ToLower(k)]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

// str reads a string, a number, or a {"$oid": ...} wrapper as text.
func (o object) str(keys ...string) string {
	for _, k := range keys {
		v, ok := o.raw(k)
		if !ok {
			continue
		}
		if s := rawString(v); s != "" {
			return s
		}
	}
	return ""
}

func rawString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	if inner, ok := parseObject(v); ok {
		return inner.str("$oid")
	}
	return ""
}

func (o object) float(keys ...string) float64 {
	for _, k := range keys {
		v, ok := o.raw(k)
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			return f
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func (o object) integer(keys ...string) int64 {
	return int64(o.float(keys...))
}

func (o object) boolean(keys ...string) bool {
	v, ok := o.raw(keys...)
	if !ok {
		return false
	}
	var b bool
	_ = json.Unmarshal(v, &b)
	return b
}

func (o object) obj(keys ...string) (object, bool) {
	v, ok := o.raw(keys...)
	if !ok {
		return nil, false
	}
	return parseObject(v)
}

func (o object) list(keys ...string) []json.RawMessage {
	v, ok := o.raw(keys...)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil
	}
	return items
}

// unwrap strips an optional {"data": ...} envelope.
func unwrap(payload []byte) json.RawMessage {
	raw := json.RawMessage(bytes.TrimSpace(payload))
	if o, ok := parseObject(raw); ok {
		if inner, ok := o.raw("data"); ok {
			return inner
		}
	}
	return raw
}

func decodeAvailability(o object) Availability {
	return Availability{
		Date:     o.str("date"),
		TimeFrom: o.str("timeFrom"),
		TimeTo:   o.str("timeTo"),
	}
}

// DecodeTask maps a task service response (bare or enveloped, any key casing) to a Task.
// The id may be empty; callers that fetched by id fill it in.
func DecodeTask(payload []byte) (Task, error) {
	o, ok := parseObject(unwrap(payload))
	if !ok {
		return Task{}, malformed("task", "not an object")
	}
	t := Task{
		ID:           o.str("id", "_id"),
		Title:        o.str("title"),
		Description:  o.str("description"),
		Location:     o.str("location"),
		Latitude:     o.float("latitude"),
		Longitude:    o.float("longitude"),
		LocationType: o.str("locationType"),
		Credits:      int(o.integer("credits")),
		CreatedAt:    o.integer("createdAt"),
		CompletedAt:  o.integer("completedAt"),
		Status:       o.str("status"),
		Type:         o.str("type"),
		Category:     o.str("category"),
		IsBookable:   o.boolean("isBookable"),
		AcceptedBy:   o.str("acceptedBy"),
		Availability: []Availability{},
	}
	if a, ok := o.obj("author"); ok {
		t.Author = Author{
			ID:     a.str("id", "_id"),
			Name:   a.str("name"),
			Email:  a.str("email"),
			Avatar: a.str("avatar"),
		}
	}
	for _, item := range o.list("availability") {
		if ao, ok := parseObject(item); ok {
			t.Availability = append(t.Availability, decodeAvailability(ao))
		}
	}
	return t, nil
}

// DecodeBookings maps a booking listing (array, enveloped array, or null) to bookings.
func DecodeBookings(payload []byte) ([]Booking, error) {
	raw := unwrap(payload)
	if isNull(raw) {
		return []Booking{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed("bookings", "not an array")
	}
	out := make([]Booking, 0, len(items))
	for i, item := range items {
		o, ok := parseObject(item)
		if !ok {
			return nil, malformed("bookings", fmt.Sprintf("item %d is not an object", i))
		}
		b := Booking{
			ID:          o.str("id", "_id"),
			TaskID:      o.str("taskId"),
			BookerID:    o.str("bookerId"),
			TaskOwnerID: o.str("taskOwnerId"),
			Status:      o.str("status"),
			Credits:     int(o.integer("credits")),
			BookedAt:    o.integer("bookedAt"),
		}
		if ts, ok := o.obj("timeslot"); ok {
			if a := decodeAvailability(ts); !a.IsZero() {
				b.Timeslot = &a
			}
		}
		out = append(out, b)
	}
	return out, nil
}

// DecodeProfile maps the auth service profile response to a Profile.
func DecodeProfile(payload []byte) (Profile, error) {
	o, ok := parseObject(unwrap(payload))
	if !ok {
		return Profile{}, malformed("profile", "not an object")
	}
	p := Profile{
		ID:    o.str("id", "_id"),
		Email: o.str("email"),
		Name:  o.str("name"),
	}
	if p.ID == "" {
		return Profile{}, malformed("profile", "user id not found")
	}
	return p, nil
}

// DecodeConversationID extracts the conversation id from a messaging service response.
// The service answers with a bare id string, an {"$oid": ...} wrapper, or an object
// carrying the id under one of the usual keys.
func DecodeConversationID(payload []byte) (string, error) {
	return decodeID("conversation", payload)
}

// DecodeCreatedID extracts the id of a record created by the task or booking service.
func DecodeCreatedID(entity string, payload []byte) (string, error) {
	return decodeID(entity, payload)
}

func decodeID(entity string, payload []byte) (string, error) {
	raw := unwrap(payload)
	if id := rawString(raw); id != "" {
		return id, nil
	}
	if o, ok := parseObject(raw); ok {
		if id := o.str("id", "_id", "conversationId", "bookingId", "taskId", "insertedId"); id != "" {
			return id, nil
		}
	}
	return "", malformed(entity, "missing id")
}

// DecodeCategories maps the category listing to names. Items may be strings or
// objects with a name.
func DecodeCategories(payload []byte) ([]string, error) {
	raw := unwrap(payload)
	if isNull(raw) {
		return []string{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed("categories", "not an array")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		name := rawString(item)
		if name == "" {
			if o, ok := parseObject(item); ok {
				name = o.str("name", "label")
			}
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// DecodeGeocode maps a geocoding feature collection to suggestions.
// Coordinates are [longitude, latitude].
func DecodeGeocode(payload []byte) ([]GeocodeSuggestion, error) {
	o, ok := parseObject(json.RawMessage(payload))
	if !ok {
		return nil, malformed("geocode", "not an object")
	}
	out := []GeocodeSuggestion{}
	for _, item := range o.list("features") {
		f, ok := parseObject(item)
		if !ok {
			continue
		}
		geom, ok := f.obj("geometry")
		if !ok {
			continue
		}
		var coords []float64
		if v, ok := geom.raw("coordinates"); !ok || json.Unmarshal(v, &coords) != nil || len(coords) < 2 {
			continue
		}
		out = append(out, GeocodeSuggestion{
			PlaceName: f.str("place_name"),
			Longitude: coords[0],
			Latitude:  coords[1],
		})
	}
	return out, nil
}
