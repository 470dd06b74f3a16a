package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/event-sync/internal/database"
	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

var eventRowColumns = []string{
	"id", "title", "description", "short_description", "category_id", "city_id", "venue", "address",
	"event_date", "event_time", "image_url", "registration_url",
	"ticket_price_min", "ticket_price_max", "is_free", "source", "source_id",
	"is_approved", "is_featured", "needs_review", "review_reason",
	"first_seen_at", "created_at", "updated_at",
}

func newEventRepo(t *testing.T) (*database.EventRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return database.NewEventRepository(sqlx.NewDb(mockDB, "postgres")), mock
}

func eventRow(id, url string) *sqlmock.Rows {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(eventRowColumns).AddRow(
		id, "Sunburn Arena", "Electronic music night with headline DJs", "Sunburn Arena", "cat-music", "c-pune",
		"Mahalaxmi Lawns", "Pune", time.Date(2026, time.April, 12, 0, 0, 0, 0, time.UTC), "19:00:00",
		"https://assets.example.com/sunburn.jpg", url,
		999.0, 4999.0, false, "district", "sunburn-arena",
		true, false, false, nil,
		now, now, now,
	)
}

func TestEventRepository_FindByOutboundURL(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)
	url := "https://www.district.in/events/sunburn-arena?ref=quantumevents"

	mock.ExpectQuery("SELECT .* FROM events\\s+WHERE registration_url = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(eventRow("evt-1", url))

	event, err := repo.FindByOutboundURL(context.Background(), url, "https://www.district.in/events/sunburn-arena")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, url, event.RegistrationURL)
	assert.False(t, event.ReviewReason.Valid)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_FindByOutboundURL_NoURLs(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)

	event, err := repo.FindByOutboundURL(context.Background())
	require.NoError(t, err)
	assert.Nil(t, event)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_FindBySourceID_Miss(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)

	mock.ExpectQuery("SELECT .* FROM events\\s+WHERE source = \\$1 AND source_id = \\$2").
		WithArgs("bookmyshow", "ET00123").
		WillReturnError(sql.ErrNoRows)

	event, err := repo.FindBySourceID(context.Background(), "bookmyshow", "ET00123")
	require.NoError(t, err)
	assert.Nil(t, event)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_FindByTitleAndDate(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)
	date := time.Date(2026, time.April, 12, 19, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM events\\s+WHERE title = \\$1 AND event_date = \\$2::date").
		WithArgs("Sunburn Arena", "2026-04-12").
		WillReturnRows(eventRow("evt-2", "https://www.district.in/events/sunburn-arena"))

	event, err := repo.FindByTitleAndDate(context.Background(), "Sunburn Arena", date)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "evt-2", event.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_FindError(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)

	mock.ExpectQuery("SELECT .* FROM events").
		WillReturnError(errors.New("connection refused"))

	event, err := repo.FindBySourceID(context.Background(), "tentimes", "expo")
	require.Error(t, err)
	assert.Nil(t, event)
	assert.Contains(t, err.Error(), "find event by source id")
}

func TestEventRepository_Insert(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	event := &domain.CanonicalEvent{
		ID:              "evt-3",
		Title:           "India Food Expo",
		CategoryID:      "cat-food",
		CityID:          "c-delhi",
		EventDate:       time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC),
		EventTime:       "19:00:00",
		RegistrationURL: "https://10times.com/india-food-expo?ref=quantumevents",
		Source:          "tentimes",
		SourceID:        "india-food-expo",
		IsApproved:      true,
		FirstSeenAt:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	mock.ExpectExec("INSERT INTO events").
		WithArgs(
			"evt-3", "India Food Expo", "", "", "cat-food", "c-delhi", "", "",
			"2026-05-02", "19:00:00", "", "https://10times.com/india-food-expo?ref=quantumevents",
			0.0, 0.0, false, "tentimes", "india-food-expo",
			true, false, false, sqlmock.AnyArg(),
			now, now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), event))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Update_NotFound(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)

	mock.ExpectExec("UPDATE events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "missing", &domain.CanonicalEvent{Title: "Ghost Show"})
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrEventNotFound)
}

func TestEventRepository_ListApproved(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)

	rows := eventRow("evt-1", "https://a.example.com")
	mock.ExpectQuery("SELECT .* FROM events\\s+WHERE is_approved = true").
		WillReturnRows(rows)

	events, err := repo.ListApproved(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Mahalaxmi Lawns", events[0].Venue)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_SetCategory(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)

	mock.ExpectExec("UPDATE events SET category_id = \\$1").
		WithArgs("cat-comedy", "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetCategory(context.Background(), "evt-1", "cat-comedy"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_FlagForReview(t *testing.T) {
	t.Helper()

	repo, mock := newEventRepo(t)

	mock.ExpectExec("UPDATE events\\s+SET is_approved = false, needs_review = true").
		WithArgs("re-release", "evt-9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.FlagForReview(context.Background(), "evt-9", "re-release"))
	require.NoError(t, mock.ExpectationsWereMet())
}
