package service

import (
	"context"

	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/repository"
	"trademinutes-gateway/internal/session"
)

// Activity lists the caller's recent gateway actions, newest first.
func (g *Gateway) Activity(ctx context.Context, s session.Session, limit int) ([]models.Activity, error) {
	if g.Activities == nil {
		return nil, repository.ErrUnavailable
	}
	return g.Activities.List(ctx, s.Email, limit)
}
