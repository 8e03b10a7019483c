package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"confdesk/internal/domain"
	"confdesk/internal/repository/postgres"
)

// User-visible error messages. These are wire contract: external consumers
// match on them, including the two distinct unauthorized variants.
const (
	msgBadArguments    = "Bad arguments"
	msgNotOrganizer    = "User is not an organizer."
	msgNotAuthorized   = "User was not authorized."
	msgEventNotFound   = "Specified event was not found"
	msgSpeakerNotFound = "Specified speaker was not found"
	msgUserNotFound    = "Specified user was not found"
	msgTalkNotFound    = "Specified talk was not found"
	msgTalkRejected    = "This talk was rejected."
	msgTalkAccepted    = "This talk was already accepted"
	msgRowsNeeded      = "Could not add needed rows"
	msgRowsNotAdded    = "Could not add the rows needed"
	msgRatingRange     = "Rating must be between 0 and 10"
)

// Commands holds the per-command executors. One instance serves the whole
// run; handlers keep no state of their own.
type Commands struct {
	secret string
	log    *slog.Logger
	auth   *Authorizer
}

func NewCommands(secret string, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{secret: secret, log: logger, auth: NewAuthorizer(logger)}
}

// requireRole authorizes the caller inside q and checks the result against
// the command's minimum role. A nil return means the caller may proceed;
// message is the command's own unauthorized text.
func (c *Commands) requireRole(ctx context.Context, q postgres.Querier, login, password string, min domain.Role, message string) *domain.Result {
	role, err := c.auth.Authorize(ctx, q, login, password)
	if err != nil {
		return domain.Error(err.Error())
	}
	if role < min {
		return domain.Error(message)
	}
	return nil
}

var timestampLayouts = []string{
	"2006-1-2 15:4:5",
	"2006-1-2 15:4",
	"2006-1-2",
	time.RFC3339,
}

// parseTimestamp accepts the wire timestamp format and its common variants.
// Fields need not be zero-padded.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp '%s'", s)
}

// parseRating parses a 0-10 rating. Out-of-range values fail; they are
// never clamped.
func parseRating(s string) (int, *domain.Result) {
	rating, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.Error(err.Error())
	}
	if rating < 0 || rating > 10 {
		return 0, domain.Error(msgRatingRange)
	}
	return rating, nil
}

// parseLimit parses a row-count limit; 0 means unrestricted.
func parseLimit(s string) (int, *domain.Result) {
	limit, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.Error(err.Error())
	}
	return limit, nil
}
