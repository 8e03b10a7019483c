package services

import (
	"context"
	"log/slog"

	"confdesk/internal/domain"
	"confdesk/internal/repository/postgres"
)

// Authorizer classifies a caller by its login/password pair. Passwords are
// compared verbatim: plaintext credential storage is a documented property
// of the data model, not an oversight.
type Authorizer struct {
	log *slog.Logger
}

func NewAuthorizer(logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{log: logger}
}

// Authorize looks up a participant matching the credentials and elevates it
// to Organizer when an organiser row references it. The check is read-only;
// callers decide whether it runs against the session or inside their own
// transaction.
func (a *Authorizer) Authorize(ctx context.Context, q postgres.Querier, login, password string) (domain.Role, error) {
	id, found, err := postgres.QueryID(ctx, q,
		"select id from participant where login = $1 and password = $2", login, password)
	if err != nil {
		return domain.Unauthenticated, err
	}
	if !found {
		a.log.Debug("authorization failed", "login", login)
		return domain.Unauthenticated, nil
	}
	_, isOrganizer, err := postgres.QueryID(ctx, q,
		"select id from organiser where id = $1", id)
	if err != nil {
		return domain.Unauthenticated, err
	}
	role := domain.RegisteredUser
	if isOrganizer {
		role = domain.Organizer
	}
	a.log.Debug("authorized", "login", login, "role", role.String())
	return role, nil
}
