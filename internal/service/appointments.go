package service

import (
	"context"
	"fmt"
	"strings"

	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/session"
	"trademinutes-gateway/pkg/logger"
)

// Appointments loads the caller's bookings in role, enriches each with its task
// and partitions them into upcoming and past. A failed profile or listing call
// fails the whole page; a failed task fetch only degrades its appointment.
func (g *Gateway) Appointments(ctx context.Context, s session.Session, role string) (models.AppointmentList, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = models.RoleOwner
	}
	if role != models.RoleOwner && role != models.RoleBooker {
		return models.AppointmentList{}, ErrInvalidRole
	}

	profile, err := g.Profiles.Profile(ctx, s.Token)
	if err != nil {
		return models.AppointmentList{}, fmt.Errorf("load profile: %w", err)
	}
	if g.Cache != nil {
		if list, ok := g.Cache.GetAppointments(ctx, profile.ID, role); ok {
			logger.Debug(ctx, "Appointments cache hit", "role", role)
			return list, nil
		}
	}

	bookings, err := g.Bookings.List(ctx, s.Token, role, profile.ID)
	if err != nil {
		return models.AppointmentList{}, fmt.Errorf("list bookings: %w", err)
	}

	appts := g.Enricher.Enrich(ctx, s.Token, bookings)
	list := models.Partition(appts)

	degraded := 0
	for _, a := range appts {
		if a.Degraded {
			degraded++
		}
	}
	if degraded > 0 {
		logger.Warn(ctx, "Appointments served degraded", "degraded", degraded, "total", len(appts))
	} else if g.Cache != nil {
		g.Cache.SetAppointments(ctx, profile.ID, role, list)
	}
	return list, nil
}
