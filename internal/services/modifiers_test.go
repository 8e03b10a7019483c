package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"confdesk/internal/domain"
)

const testSecret = "s3cret"

func newTestCommands() *Commands {
	return NewCommands(testSecret, testLogger())
}

func TestHandlersWithoutSession(t *testing.T) {
	ctx := context.Background()
	c := newTestCommands()

	handlers := map[string]Handler{
		"organizer":  c.Organizer,
		"event":      c.Event,
		"user":       c.User,
		"talk":       c.Talk,
		"evaluation": c.Evaluation,
		"user_plan":  c.UserPlan,
		"proposals":  c.Proposals,
	}
	for name, h := range handlers {
		res := h(ctx, nil, domain.Args{})
		require.Equal(t, domain.StatusError, res.Status, name)
		require.Equal(t, "Connection was not established", res.Message, name)
	}
}

func TestOrganizer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		args     domain.Args
		mock     func(mock sqlmock.Sqlmock)
		wantErr string
		wantOK  bool
	}{
		{
			name: "success",
			args: domain.Args{"secret": testSecret, "newlogin": "org2", "newpassword": "pw"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(
					"INSERT INTO participant(login, password) VALUES ($1, $2)")).
					WithArgs("org2", "pw").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(
					"INSERT INTO organiser VALUES ((SELECT id FROM participant WHERE login = $1))")).
					WithArgs("org2").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantOK: true,
		},
		{
			name:    "wrong secret never reaches the store",
			args:    domain.Args{"secret": "guess", "newlogin": "org2", "newpassword": "pw"},
			mock:    func(mock sqlmock.Sqlmock) {},
			wantErr: "Bad arguments",
		},
		{
			name:    "missing new credentials",
			args:    domain.Args{"secret": testSecret, "newlogin": "org2"},
			mock:    func(mock sqlmock.Sqlmock) {},
			wantErr: "Bad arguments",
		},
		{
			name: "duplicate login rolls back",
			args: domain.Args{"secret": testSecret, "newlogin": "org2", "newpassword": "pw"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(
					"INSERT INTO participant(login, password) VALUES ($1, $2)")).
					WillReturnError(errors.New(`duplicate key value violates unique constraint "participant_login_key"`))
				mock.ExpectRollback()
			},
			wantErr: "duplicate key value violates unique constraint 'participant_login_key'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, mock := newMockSession(t)
			tt.mock(mock)

			res := newTestCommands().Organizer(ctx, sess, tt.args)
			if tt.wantOK {
				require.Equal(t, domain.StatusOK, res.Status)
			} else {
				require.Equal(t, domain.StatusError, res.Status)
				require.Equal(t, tt.wantErr, res.Message)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOrganizerDisabledWithoutConfiguredSecret(t *testing.T) {
	sess, mock := newMockSession(t)
	c := NewCommands("", testLogger())

	res := c.Organizer(context.Background(), sess,
		domain.Args{"secret": "", "newlogin": "org2", "newpassword": "pw"})
	require.Equal(t, domain.StatusError, res.Status)
	require.Equal(t, "Bad arguments", res.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEvent(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	args := domain.Args{
		"login":           "org",
		"password":        "pw",
		"eventname":       "Con1",
		"start_timestamp": "2024-1-1 9:0:0",
		"end_timestamp":   "2024-1-1 18:0:0",
	}

	t.Run("organizer registers an event", func(t *testing.T) {
		sess, mock := newMockSession(t)
		mock.ExpectBegin()
		expectAuth(mock, "org", "pw", domain.Organizer)
		mock.ExpectExec(regexp.QuoteMeta(
			"INSERT INTO event(start_time, end_time, name) VALUES ($1, $2, $3)")).
			WithArgs(start, end, "Con1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res := newTestCommands().Event(ctx, sess, args)
		require.Equal(t, domain.StatusOK, res.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("plain user is refused", func(t *testing.T) {
		sess, mock := newMockSession(t)
		mock.ExpectBegin()
		expectAuth(mock, "org", "pw", domain.RegisteredUser)
		mock.ExpectRollback()

		res := newTestCommands().Event(ctx, sess, args)
		require.Equal(t, domain.StatusError, res.Status)
		require.Equal(t, "User is not an organizer.", res.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("garbage timestamp", func(t *testing.T) {
		sess, mock := newMockSession(t)
		bad := domain.Args{
			"login": "org", "password": "pw",
			"start_timestamp": "tomorrow-ish", "end_timestamp": "2024-1-1 18:0:0",
		}
		res := newTestCommands().Event(ctx, sess, bad)
		require.Equal(t, domain.StatusError, res.Status)
		require.Contains(t, res.Message, "cannot parse timestamp")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing arguments", func(t *testing.T) {
		sess, mock := newMockSession(t)
		res := newTestCommands().Event(ctx, sess, domain.Args{"login": "org"})
		require.Equal(t, domain.StatusError, res.Status)
		require.Equal(t, "Bad arguments", res.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTalk(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	args := domain.Args{
		"login":              "org",
		"password":           "pw",
		"speakerlogin":       "alice",
		"talk":               "T1",
		"title":              "Generics",
		"start_timestamp":    "2024-1-1 10:0:0",
		"room":               "A1",
		"initial_evaluation": "8",
		"eventname":          "Con1",
	}

	expectLookups := func(mock sqlmock.Sqlmock) {
		mock.ExpectBegin()
		expectAuth(mock, "org", "pw", domain.Organizer)
		mock.ExpectQuery(regexp.QuoteMeta("select id from event where name = $1")).
			WithArgs("Con1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectQuery(regexp.QuoteMeta("select id from participant where login = $1")).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	}

	t.Run("new given identifier creates the agenda entry", func(t *testing.T) {
		sess, mock := newMockSession(t)
		expectLookups(mock)
		mock.ExpectQuery(regexp.QuoteMeta("select id from agenda where given_id = $1")).
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(regexp.QuoteMeta(
			"INSERT INTO agenda(given_id, talker_id, start_time, title) VALUES ($1, $2, $3, $4) RETURNING id")).
			WithArgs("T1", int64(3), start, "Generics").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectExec(`INSERT INTO talk`).
			WithArgs(int64(2), int64(4), 8, "A1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res := newTestCommands().Talk(ctx, sess, args)
		require.Equal(t, domain.StatusOK, res.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing identifier is updated in place", func(t *testing.T) {
		sess, mock := newMockSession(t)
		expectLookups(mock)
		mock.ExpectQuery(regexp.QuoteMeta("select id from agenda where given_id = $1")).
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectQuery(regexp.QuoteMeta("select id from rejected_agenda where id = $1")).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(regexp.QuoteMeta(
			"UPDATE agenda SET talker_id = $1, start_time = $2, title = $3 WHERE id = $4")).
			WithArgs(int64(3), start, "Generics", int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO talk`).
			WithArgs(int64(2), int64(4), 8, "A1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res := newTestCommands().Talk(ctx, sess, args)
		require.Equal(t, domain.StatusOK, res.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejected identifier cannot be scheduled", func(t *testing.T) {
		sess, mock := newMockSession(t)
		expectLookups(mock)
		mock.ExpectQuery(regexp.QuoteMeta("select id from agenda where given_id = $1")).
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectQuery(regexp.QuoteMeta("select id from rejected_agenda where id = $1")).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectRollback()

		res := newTestCommands().Talk(ctx, sess, args)
		require.Equal(t, domain.StatusError, res.Status)
		require.Equal(t, "This talk was rejected.", res.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown event", func(t *testing.T) {
		sess, mock := newMockSession(t)
		mock.ExpectBegin()
		expectAuth(mock, "org", "pw", domain.Organizer)
		mock.ExpectQuery(regexp.QuoteMeta("select id from event where name = $1")).
			WithArgs("Con1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		res := newTestCommands().Talk(ctx, sess, args)
		require.Equal(t, domain.StatusError, res.Status)
		require.Equal(t, "Specified event was not found", res.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("out-of-range initial evaluation never reaches the store", func(t *testing.T) {
		sess, mock := newMockSession(t)
		bad := domain.Args{}
		for k, v := range args {
			bad[k] = v
		}
		bad["initial_evaluation"] = "11"

		res := newTestCommands().Talk(ctx, sess, bad)
		require.Equal(t, domain.StatusError, res.Status)
		require.Equal(t, "Rating must be between 0 and 10", res.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEvaluation(t *testing.T) {
	ctx := context.Background()
	args := domain.Args{"login": "bob", "password": "pw", "talk": "T1", "rating": "9"}

	t.Run("success", func(t *testing.T) {
		sess, mock := newMockSession(t)
		mock.ExpectBegin()
		expectAuth(mock, "bob", "pw", domain.RegisteredUser)
		mock.ExpectQuery(regexp.QuoteMeta(
			"select id from agenda join talk on (id = agenda_id) where given_id = $1")).
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectQuery(regexp.QuoteMeta("select id from participant where login = $1")).
			WithArgs("bob").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
		mock.ExpectExec(regexp.QuoteMeta(
			"INSERT INTO participant_rates_talk VALUES ($1, $2, $3)")).
			WithArgs(int64(9), int64(4), 9).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res := newTestCommands().Evaluation(ctx, sess, args)
		require.Equal(t, domain.StatusOK, res.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unauthenticated caller", func(t *testing.T) {
		sess, mock := newMockSession(t)
		mock.ExpectBegin()
		expectAuth(mock, "bob", "pw", domain.Unauthenticated)
		mock.ExpectRollback()

		res := newTestCommands().Evaluation(ctx, sess, args)
		require.Equal(t, domain.StatusError, res.Status)
		require.Equal(t, "User was not authorized.", res.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rating bounds", func(t *testing.T) {
		for _, rating := range []string{"11", "-1"} {
			sess, mock := newMockSession(t)
			bad := domain.Args{"login": "bob", "password": "pw", "talk": "T1", "rating": rating}

			res := newTestCommands().Evaluation(ctx, sess, bad)
			require.Equal(t, domain.StatusError, res.Status, rating)
			require.Equal(t, "Rating must be between 0 and 10", res.Message, rating)
			require.NoError(t, mock.ExpectationsWereMet())
		}
	})

	t.Run("non-numeric rating", func(t *testing.T) {
		sess, mock := newMockSession(t)
		bad := domain.Args{"login": "bob", "password": "pw", "talk": "T1", "rating": "great"}

		res := newTestCommands().Evaluation(ctx, sess, bad)
		require.Equal(t, domain.StatusError, res.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	args := domain.Args{"login": "org", "password": "pw", "talk": "T1"}

	t.Run("pending proposal is rejected", func(t *testing.T) {
		sess, mock := newMockSession(t)
		mock.ExpectBegin()
		expectAuth(mock, "org", "pw", domain.Organizer)
		mock.ExpectQuery(regexp.QuoteMeta("select id from agenda where given_id = $1")).
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectQuery(regexp.QuoteMeta("select agenda_id from talk where agenda_id = $1")).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"agenda_id"}))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rejected_agenda VALUES ($1)")).
			WithArgs(int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res := newTestCommands().Reject(ctx, sess, args)
		require.Equal(t, domain.StatusOK, res.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scheduled talk cannot be rejected", func(t *testing.T) {
		sess, mock := newMockSession(t)
		mock.ExpectBegin()
		expectAuth(mock, "org", "pw", domain.Organizer)
		mock.ExpectQuery(regexp.QuoteMeta("select id from agenda where given_id = $1")).
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectQuery(regexp.QuoteMeta("select agenda_id from talk where agenda_id = $1")).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"agenda_id"}).AddRow(4))
		mock.ExpectRollback()

		res := newTestCommands().Reject(ctx, sess, args)
		require.Equal(t, domain.StatusError, res.Status)
		require.Equal(t, "This talk was already accepted", res.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegisterForEvent(t *testing.T) {
	ctx := context.Background()
	args := domain.Args{"login": "bob", "password": "pw", "eventname": "Con1"}

	sess, mock := newMockSession(t)
	mock.ExpectBegin()
	expectAuth(mock, "bob", "pw", domain.RegisteredUser)
	mock.ExpectQuery(regexp.QuoteMeta("select id from event where name = $1")).
		WithArgs("Con1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("select id from participant where login = $1")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO participant_signsupfor_event VALUES ($1, $2)")).
		WithArgs(int64(9), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res := newTestCommands().RegisterForEvent(ctx, sess, args)
	require.Equal(t, domain.StatusOK, res.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposal(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC)
	args := domain.Args{
		"login": "bob", "password": "pw", "talk": "T9",
		"title": "Lightning", "start_timestamp": "2024-2-2 12:0:0",
	}

	sess, mock := newMockSession(t)
	mock.ExpectBegin()
	expectAuth(mock, "bob", "pw", domain.RegisteredUser)
	mock.ExpectQuery(regexp.QuoteMeta("select id from participant where login = $1")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO agenda(given_id, talker_id, start_time, title) VALUES ($1, $2, $3, $4)")).
		WithArgs("T9", int64(9), start, "Lightning").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res := newTestCommands().Proposal(ctx, sess, args)
	require.Equal(t, domain.StatusOK, res.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalTitleOptional(t *testing.T) {
	ctx := context.Background()
	sess, mock := newMockSession(t)
	mock.ExpectBegin()
	expectAuth(mock, "bob", "pw", domain.RegisteredUser)
	mock.ExpectQuery(regexp.QuoteMeta("select id from participant where login = $1")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agenda")).
		WithArgs("T9", int64(9), time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC), "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res := newTestCommands().Proposal(ctx, sess, domain.Args{
		"login": "bob", "password": "pw", "talk": "T9", "start_timestamp": "2024-2-2 12:0:0",
	})
	require.Equal(t, domain.StatusOK, res.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
