package services

import (
	"context"
	"log/slog"

	"confdesk/internal/domain"
	"confdesk/internal/repository/postgres"
)

// Handler executes one command against the live session.
type Handler func(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result

// Registry is the fixed command table. It is built once at startup and
// read-only afterwards; there is no runtime registration. The
// session-establishing "open" command is not in the table, the loop owns it.
type Registry struct {
	commands map[string]Handler
}

func NewRegistry(secret string, logger *slog.Logger) *Registry {
	c := NewCommands(secret, logger)
	return &Registry{commands: map[string]Handler{
		"organizer":               c.Organizer,
		"event":                   c.Event,
		"user":                    c.User,
		"talk":                    c.Talk,
		"register_user_for_event": c.RegisterForEvent,
		"attendance":              c.Attendance,
		"evaluation":              c.Evaluation,
		"reject":                  c.Reject,
		"proposal":                c.Proposal,
		"friends":                 c.Stub,
		"user_plan":               c.UserPlan,
		"day_plan":                c.DayPlan,
		"best_talks":              c.BestTalks,
		"most_popular_talks":      c.MostPopularTalks,
		"attended_talks":          c.AttendedTalks,
		"abandoned_talks":         c.AbandonedTalks,
		"recently_added_talks":    c.Stub,
		"rejected_talks":          c.RejectedTalks,
		"proposals":               c.Proposals,
		"friends_talks":           c.Stub,
		"friends_events":          c.Stub,
		"recommended_talks":       c.Stub,
	}}
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.commands[name]
	return h, ok
}
