package services

import (
	"context"

	"confdesk/internal/domain"
	"confdesk/internal/repository/postgres"
)

// The mutating commands. Each one validates its arguments without touching
// the store, then runs authorization and every statement inside a single
// transaction that commits only on full success.

// Organizer registers a new participant with organizer privilege. It is
// gated by the configured shared secret instead of caller credentials; a
// missing or mismatched secret is indistinguishable from bad arguments.
func (c *Commands) Organizer(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	secret := args.String("secret")
	newLogin := args.String("newlogin")
	newPassword := args.String("newpassword")
	if c.secret == "" || secret != c.secret || domain.AnyEmpty(newLogin, newPassword) {
		return domain.Error(msgBadArguments)
	}
	return sess.WithTx(ctx, func(q postgres.Querier) *domain.Result {
		n, err := postgres.Exec(ctx, q,
			"INSERT INTO participant(login, password) VALUES ($1, $2)", newLogin, newPassword)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNeeded)
		}
		n, err = postgres.Exec(ctx, q,
			"INSERT INTO organiser VALUES ((SELECT id FROM participant WHERE login = $1))", newLogin)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNeeded)
		}
		return domain.OK()
	})
}

// Event registers a new event. Organizer only. The event name may be empty.
func (c *Commands) Event(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	eventName := args.String("eventname")
	start := args.String("start_timestamp")
	end := args.String("end_timestamp")
	if domain.AnyEmpty(login, password, start, end) {
		return domain.Error(msgBadArguments)
	}
	startTime, err := parseTimestamp(start)
	if err != nil {
		return domain.Error(err.Error())
	}
	endTime, err := parseTimestamp(end)
	if err != nil {
		return domain.Error(err.Error())
	}
	return sess.WithTx(ctx, func(q postgres.Querier) *domain.Result {
		if res := c.requireRole(ctx, q, login, password, domain.Organizer, msgNotOrganizer); res != nil {
			return res
		}
		n, err := postgres.Exec(ctx, q,
			"INSERT INTO event(start_time, end_time, name) VALUES ($1, $2, $3)",
			startTime, endTime, eventName)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNeeded)
		}
		return domain.OK()
	})
}

// User registers a new participant on behalf of an organizer.
func (c *Commands) User(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	newLogin := args.String("newlogin")
	newPassword := args.String("newpassword")
	if domain.AnyEmpty(login, password, newLogin, newPassword) {
		return domain.Error(msgBadArguments)
	}
	return sess.WithTx(ctx, func(q postgres.Querier) *domain.Result {
		if res := c.requireRole(ctx, q, login, password, domain.Organizer, msgNotOrganizer); res != nil {
			return res
		}
		n, err := postgres.Exec(ctx, q,
			"INSERT INTO participant(login, password) VALUES ($1, $2)", newLogin, newPassword)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNotAdded)
		}
		return domain.OK()
	})
}

// Talk registers a talk or accepts a spontaneous proposal, keyed on the
// externally given talk identifier. A new identifier creates the agenda
// entry; an existing one is updated in place unless it was rejected. The
// schedule row is overwritten, so re-registering the same identifier is an
// upsert, never a duplication.
func (c *Commands) Talk(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	speaker := args.String("speakerlogin")
	talk := args.String("talk")
	title := args.String("title")
	start := args.String("start_timestamp")
	room := args.String("room")
	initialEvaluation := args.String("initial_evaluation")
	eventName := args.String("eventname")
	if domain.AnyEmpty(login, password, speaker, talk, title, start, room, initialEvaluation) {
		return domain.Error(msgBadArguments)
	}
	startTime, err := parseTimestamp(start)
	if err != nil {
		return domain.Error(err.Error())
	}
	rating, res := parseRating(initialEvaluation)
	if res != nil {
		return res
	}
	return sess.WithTx(ctx, func(q postgres.Querier) *domain.Result {
		if res := c.requireRole(ctx, q, login, password, domain.Organizer, msgNotOrganizer); res != nil {
			return res
		}
		eventID, found, err := postgres.QueryID(ctx, q,
			"select id from event where name = $1", eventName)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgEventNotFound)
		}
		speakerID, found, err := postgres.QueryID(ctx, q,
			"select id from participant where login = $1", speaker)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgSpeakerNotFound)
		}
		agendaID, found, err := postgres.QueryID(ctx, q,
			"select id from agenda where given_id = $1", talk)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			err := q.QueryRowContext(ctx,
				"INSERT INTO agenda(given_id, talker_id, start_time, title) VALUES ($1, $2, $3, $4) RETURNING id",
				talk, speakerID, startTime, title).Scan(&agendaID)
			if err != nil {
				return domain.Error(err.Error())
			}
		} else {
			_, rejected, err := postgres.QueryID(ctx, q,
				"select id from rejected_agenda where id = $1", agendaID)
			if err != nil {
				return domain.Error(err.Error())
			}
			if rejected {
				return domain.Error(msgTalkRejected)
			}
			n, err := postgres.Exec(ctx, q,
				"UPDATE agenda SET talker_id = $1, start_time = $2, title = $3 WHERE id = $4",
				speakerID, startTime, title, agendaID)
			if err != nil {
				return domain.Error(err.Error())
			}
			if n != 1 {
				return domain.Error(msgRowsNotAdded)
			}
		}
		n, err := postgres.Exec(ctx, q,
			`INSERT INTO talk(event_id, agenda_id, organiser_rating, room) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (agenda_id) DO UPDATE
			 SET event_id = EXCLUDED.event_id, organiser_rating = EXCLUDED.organiser_rating, room = EXCLUDED.room`,
			eventID, agendaID, rating, room)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNotAdded)
		}
		return domain.OK()
	})
}

// RegisterForEvent signs the caller up for an event.
func (c *Commands) RegisterForEvent(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	eventName := args.String("eventname")
	if domain.AnyEmpty(login, password) {
		return domain.Error(msgBadArguments)
	}
	return sess.WithTx(ctx, func(q postgres.Querier) *domain.Result {
		if res := c.requireRole(ctx, q, login, password, domain.RegisteredUser, msgNotAuthorized); res != nil {
			return res
		}
		eventID, found, err := postgres.QueryID(ctx, q,
			"select id from event where name = $1", eventName)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgEventNotFound)
		}
		userID, found, err := postgres.QueryID(ctx, q,
			"select id from participant where login = $1", login)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgUserNotFound)
		}
		n, err := postgres.Exec(ctx, q,
			"INSERT INTO participant_signsupfor_event VALUES ($1, $2)", userID, eventID)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNotAdded)
		}
		return domain.OK()
	})
}

// Attendance records that the caller was physically present at a talk.
func (c *Commands) Attendance(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	talk := args.String("talk")
	if domain.AnyEmpty(login, password) {
		return domain.Error(msgBadArguments)
	}
	return sess.WithTx(ctx, func(q postgres.Querier) *domain.Result {
		if res := c.requireRole(ctx, q, login, password, domain.RegisteredUser, msgNotAuthorized); res != nil {
			return res
		}
		talkID, found, err := postgres.QueryID(ctx, q,
			"select id from agenda join talk on (id = agenda_id) where given_id = $1", talk)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgTalkNotFound)
		}
		userID, found, err := postgres.QueryID(ctx, q,
			"select id from participant where login = $1", login)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgUserNotFound)
		}
		n, err := postgres.Exec(ctx, q,
			"INSERT INTO participant_attends_talk VALUES ($1, $2)", userID, talkID)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNotAdded)
		}
		return domain.OK()
	})
}

// Evaluation records the caller's 0-10 rating of a scheduled talk.
func (c *Commands) Evaluation(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	talk := args.String("talk")
	ratingArg := args.String("rating")
	if domain.AnyEmpty(login, talk, ratingArg, password) {
		return domain.Error(msgBadArguments)
	}
	rating, res := parseRating(ratingArg)
	if res != nil {
		return res
	}
	return sess.WithTx(ctx, func(q postgres.Querier) *domain.Result {
		if res := c.requireRole(ctx, q, login, password, domain.RegisteredUser, msgNotAuthorized); res != nil {
			return res
		}
		talkID, found, err := postgres.QueryID(ctx, q,
			"select id from agenda join talk on (id = agenda_id) where given_id = $1", talk)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgTalkNotFound)
		}
		userID, found, err := postgres.QueryID(ctx, q,
			"select id from participant where login = $1", login)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgUserNotFound)
		}
		c.log.Debug("rating talk", "user", userID, "talk", talkID, "rating", rating)
		n, err := postgres.Exec(ctx, q,
			"INSERT INTO participant_rates_talk VALUES ($1, $2, $3)", userID, talkID, rating)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNotAdded)
		}
		return domain.OK()
	})
}

// Reject permanently rejects a proposed talk. A talk that was already
// accepted into the schedule cannot be rejected; together with Talk's
// rejection check this keeps every agenda entry in at most one of the
// scheduled/rejected states.
func (c *Commands) Reject(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	talk := args.String("talk")
	if domain.AnyEmpty(login, password, talk) {
		return domain.Error(msgBadArguments)
	}
	return sess.WithTx(ctx, func(q postgres.Querier) *domain.Result {
		if res := c.requireRole(ctx, q, login, password, domain.Organizer, msgNotOrganizer); res != nil {
			return res
		}
		agendaID, found, err := postgres.QueryID(ctx, q,
			"select id from agenda where given_id = $1", talk)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgTalkNotFound)
		}
		_, accepted, err := postgres.QueryID(ctx, q,
			"select agenda_id from talk where agenda_id = $1", agendaID)
		if err != nil {
			return domain.Error(err.Error())
		}
		if accepted {
			return domain.Error(msgTalkAccepted)
		}
		n, err := postgres.Exec(ctx, q,
			"INSERT INTO rejected_agenda VALUES ($1)", agendaID)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNotAdded)
		}
		return domain.OK()
	})
}

// Proposal files a spontaneous talk proposal under a fresh given identifier.
func (c *Commands) Proposal(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	talk := args.String("talk")
	title := args.String("title")
	start := args.String("start_timestamp")
	if domain.AnyEmpty(login, password, talk, start) {
		return domain.Error(msgBadArguments)
	}
	startTime, err := parseTimestamp(start)
	if err != nil {
		return domain.Error(err.Error())
	}
	return sess.WithTx(ctx, func(q postgres.Querier) *domain.Result {
		if res := c.requireRole(ctx, q, login, password, domain.RegisteredUser, msgNotAuthorized); res != nil {
			return res
		}
		userID, found, err := postgres.QueryID(ctx, q,
			"select id from participant where login = $1", login)
		if err != nil {
			return domain.Error(err.Error())
		}
		if !found {
			return domain.Error(msgUserNotFound)
		}
		n, err := postgres.Exec(ctx, q,
			"INSERT INTO agenda(given_id, talker_id, start_time, title) VALUES ($1, $2, $3, $4)",
			talk, userID, startTime, title)
		if err != nil {
			return domain.Error(err.Error())
		}
		if n != 1 {
			return domain.Error(msgRowsNotAdded)
		}
		return domain.OK()
	})
}
