package services

import (
	"context"

	"confdesk/internal/domain"
	"confdesk/internal/repository/postgres"
)

// Stub answers for the commands the protocol documents but does not
// implement: friend-relationship management, friend-scoped discovery, and
// the recently-added listing. It never touches the session.
func (c *Commands) Stub(_ context.Context, _ *postgres.Session, _ domain.Args) *domain.Result {
	return domain.NotImplemented()
}
