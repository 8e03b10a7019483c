package services

import (
	"context"

	"confdesk/internal/domain"
	"confdesk/internal/repository/postgres"
)

// The listing commands. All of them are pure reads: no transaction, row
// ordering decided here in the statement, and the data array present in the
// result even when nothing matched. A limit of 0 (or an absent limit) means
// no restriction.

var planColumns = []string{"talk", "start_timestamp", "title", "room"}

// UserPlan lists the upcoming talks of the events the given participant
// signed up for, soonest first. No authorization: the login is a plain
// argument.
func (c *Commands) UserPlan(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	limitArg := args.String("limit")
	if limitArg == "" {
		limitArg = "0"
	}
	if domain.AnyEmpty(login) {
		return domain.Error(msgBadArguments)
	}
	limit, res := parseLimit(limitArg)
	if res != nil {
		return res
	}
	query := `with user_events as (
			select event_id from participant_signsupfor_event
			join participant on (participant_id = participant.id)
			where login = $1)
		select login, given_id, start_time, title, room from talk
		join agenda on (agenda_id = agenda.id)
		join participant on (talker_id = participant.id)
		where start_time > now() and event_id in (select * from user_events)
		order by start_time asc`
	queryArgs := []any{login}
	if limit > 0 {
		query += " limit $2"
		queryArgs = append(queryArgs, limit)
	}
	rows, err := sess.Query(ctx, query, queryArgs...)
	if err != nil {
		return domain.Error(err.Error())
	}
	data, err := postgres.CollectRows(rows, []string{"login", "talk", "start_timestamp", "title", "room"})
	if err != nil {
		return domain.Error(err.Error())
	}
	return domain.OKRows(data)
}

// DayPlan lists every talk scheduled on the given day, ordered by room and
// then by start time.
func (c *Commands) DayPlan(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	timestamp := args.String("timestamp")
	if domain.AnyEmpty(timestamp) {
		return domain.Error(msgBadArguments)
	}
	day, err := parseTimestamp(timestamp)
	if err != nil {
		return domain.Error(err.Error())
	}
	rows, err := sess.Query(ctx, `
		select given_id, start_time, title, room from talk
		join agenda on (agenda_id = agenda.id)
		where start_time::date = $1::date
		order by room, start_time asc`, day)
	if err != nil {
		return domain.Error(err.Error())
	}
	data, err := postgres.CollectRows(rows, planColumns)
	if err != nil {
		return domain.Error(err.Error())
	}
	return domain.OKRows(data)
}

// BestTalks ranks the talks starting inside the given window by average
// rating, best first. With all=1 every rating counts; otherwise only
// ratings from participants who actually attended. The organizer's initial
// rating always counts.
func (c *Commands) BestTalks(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	start := args.String("start_timestamp")
	end := args.String("end_timestamp")
	limitArg := args.String("limit")
	if limitArg == "" {
		limitArg = "0"
	}
	all := args.String("all")
	if domain.AnyEmpty(start, end) {
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
	limit, res := parseLimit(limitArg)
	if res != nil {
		return res
	}
	attendedOnly := ""
	if all != "1" {
		attendedOnly = " where (participant_id, talk_id) in (select * from participant_attends_talk)"
	}
	query := `with ratings(participant_id, talk_id, rating) as (
			select null, agenda_id, organiser_rating from talk
			union select * from participant_rates_talk` + attendedOnly + `)
		select given_id, start_time, title, talk.room from talk
		join agenda on (agenda_id = agenda.id)
		join ratings on (talk_id = agenda.id)
		where start_time <= $2 and start_time >= $1
		group by (agenda_id, agenda.id)
		order by avg(rating) desc`
	queryArgs := []any{startTime, endTime}
	if limit > 0 {
		query += " limit $3"
		queryArgs = append(queryArgs, limit)
	}
	rows, err := sess.Query(ctx, query, queryArgs...)
	if err != nil {
		return domain.Error(err.Error())
	}
	data, err := postgres.CollectRows(rows, planColumns)
	if err != nil {
		return domain.Error(err.Error())
	}
	return domain.OKRows(data)
}

// MostPopularTalks ranks the talks starting inside the given window by
// recorded attendance, highest first.
func (c *Commands) MostPopularTalks(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	start := args.String("start_timestamp")
	end := args.String("end_timestamp")
	limitArg := args.String("limit")
	if limitArg == "" {
		limitArg = "0"
	}
	if domain.AnyEmpty(start, end) {
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
	limit, res := parseLimit(limitArg)
	if res != nil {
		return res
	}
	query := `select given_id, start_time, title, room from talk
		join agenda on (agenda_id = agenda.id)
		join participant_attends_talk on (talk_id = agenda.id)
		where start_time <= $2 and start_time >= $1
		group by (agenda.id, agenda_id)
		order by count(participant_id) desc`
	queryArgs := []any{startTime, endTime}
	if limit > 0 {
		query += " limit $3"
		queryArgs = append(queryArgs, limit)
	}
	rows, err := sess.Query(ctx, query, queryArgs...)
	if err != nil {
		return domain.Error(err.Error())
	}
	data, err := postgres.CollectRows(rows, planColumns)
	if err != nil {
		return domain.Error(err.Error())
	}
	return domain.OKRows(data)
}

// AttendedTalks lists the talks the caller attended.
func (c *Commands) AttendedTalks(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	if domain.AnyEmpty(login, password) {
		return domain.Error(msgBadArguments)
	}
	if res := c.requireRole(ctx, sess.DB(), login, password, domain.RegisteredUser, msgNotAuthorized); res != nil {
		return res
	}
	rows, err := sess.Query(ctx, `
		select given_id, start_time, title, room from talk
		join agenda on (agenda_id = agenda.id)
		join participant_attends_talk on (talk_id = agenda.id)
		join participant on (participant_id = participant.id)
		where login = $1`, login)
	if err != nil {
		return domain.Error(err.Error())
	}
	data, err := postgres.CollectRows(rows, planColumns)
	if err != nil {
		return domain.Error(err.Error())
	}
	return domain.OKRows(data)
}

// AbandonedTalks lists talks by the number of participants who signed up
// for the surrounding event but never attended, largest count first.
// Organizer only.
func (c *Commands) AbandonedTalks(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	limitArg := args.String("limit")
	if limitArg == "" {
		limitArg = "0"
	}
	if domain.AnyEmpty(login, password) {
		return domain.Error(msgBadArguments)
	}
	limit, res := parseLimit(limitArg)
	if res != nil {
		return res
	}
	if res := c.requireRole(ctx, sess.DB(), login, password, domain.Organizer, msgNotAuthorized); res != nil {
		return res
	}
	query := `with missed_attendance(p_id, t_id) as (
			select participant_id, agenda_id from participant_signsupfor_event
			join talk using (event_id)
			where (participant_id, agenda_id) not in (select * from participant_attends_talk))
		select given_id, start_time, title, room, count(p_id) from talk
		join agenda on (agenda_id = agenda.id)
		join missed_attendance on (t_id = agenda.id)
		group by (agenda.id, agenda_id)
		order by count(p_id) desc`
	queryArgs := []any{}
	if limit > 0 {
		query += " limit $1"
		queryArgs = append(queryArgs, limit)
	}
	rows, err := sess.Query(ctx, query, queryArgs...)
	if err != nil {
		return domain.Error(err.Error())
	}
	data, err := postgres.CollectRows(rows, []string{"talk", "start_timestamp", "title", "room", "number"})
	if err != nil {
		return domain.Error(err.Error())
	}
	return domain.OKRows(data)
}

// RejectedTalks lists rejected proposals: all of them for an organizer,
// only the caller's own for a regular participant.
func (c *Commands) RejectedTalks(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	if domain.AnyEmpty(login, password) {
		return domain.Error(msgBadArguments)
	}
	role, err := c.auth.Authorize(ctx, sess.DB(), login, password)
	if err != nil {
		return domain.Error(err.Error())
	}
	if role == domain.Unauthenticated {
		return domain.Error(msgNotAuthorized)
	}
	query := `select given_id, login, start_time, title from rejected_agenda ra
		join agenda on (ra.id = agenda.id)
		join participant on (talker_id = participant.id)`
	queryArgs := []any{}
	if role == domain.RegisteredUser {
		query += " where login = $1"
		queryArgs = append(queryArgs, login)
	}
	rows, err := sess.Query(ctx, query, queryArgs...)
	if err != nil {
		return domain.Error(err.Error())
	}
	data, err := postgres.CollectRows(rows, []string{"talk", "speakerlogin", "start_timestamp", "title"})
	if err != nil {
		return domain.Error(err.Error())
	}
	return domain.OKRows(data)
}

// Proposals lists the spontaneous proposals still awaiting a talk or reject
// decision. Any authenticated caller may list them, though the failure
// message still claims an organizer check; both quirks are preserved
// behavior.
func (c *Commands) Proposals(ctx context.Context, sess *postgres.Session, args domain.Args) *domain.Result {
	if !sess.IsOpen() {
		return domain.ConnectionError()
	}
	login := args.String("login")
	password := args.String("password")
	if domain.AnyEmpty(login, password) {
		return domain.Error(msgBadArguments)
	}
	if res := c.requireRole(ctx, sess.DB(), login, password, domain.RegisteredUser, msgNotOrganizer); res != nil {
		return res
	}
	rows, err := sess.Query(ctx, `
		select given_id, login, start_time, title from agenda
		join participant on (talker_id = participant.id)
		where agenda.id not in ((select agenda_id from talk) union (select id from rejected_agenda))`)
	if err != nil {
		return domain.Error(err.Error())
	}
	data, err := postgres.CollectRows(rows, []string{"talk", "speakerlogin", "start_timestamp", "title"})
	if err != nil {
		return domain.Error(err.Error())
	}
	return domain.OKRows(data)
}
