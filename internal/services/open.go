package services

import (
	"context"
	"log/slog"

	"confdesk/config"
	"confdesk/internal/domain"
	"confdesk/internal/repository/postgres"
)

// SessionOpener returns the executor for the session-establishing command.
// It is evaluated by the loop before any session exists; the session it
// produces is the loop's session for the rest of the run.
func SessionOpener(cfg *config.Config, logger *slog.Logger) func(ctx context.Context, args domain.Args) (*postgres.Session, *domain.Result) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, args domain.Args) (*postgres.Session, *domain.Result) {
		database := args.String("baza")
		login := args.String("login")
		logger.Info("opening session", "database", database, "login", login)
		sess, err := postgres.Open(ctx, cfg, database, login, args.String("password"))
		if err != nil {
			return nil, domain.Error(err.Error())
		}
		return sess, domain.OK()
	}
}
