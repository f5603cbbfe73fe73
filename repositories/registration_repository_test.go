package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistrationRepoMock(t *testing.T) (RegistrationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRegistrationRepository(db), mock
}

func expectEventLock(mock sqlmock.Sqlmock, eventID, maxVolunteers int) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT max_volunteers FROM events WHERE id = $1 FOR UPDATE`)).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"max_volunteers"}).AddRow(maxVolunteers))
}

func expectActiveCount(mock sqlmock.Sqlmock, eventID, active int) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND status IN ('pending', 'confirmed')`)).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(active))
}

func TestCreateWithinCapacityInsertsUnderLock(t *testing.T) {
	repo, mock := newRegistrationRepoMock(t)

	mock.ExpectBegin()
	expectEventLock(mock, 1, 10)
	expectActiveCount(mock, 1, 9)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO event_registrations`)).
		WithArgs(1, 42, models.RegistrationStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))
	mock.ExpectCommit()

	registration := &models.EventRegistration{EventID: 1, UserID: 42, Status: models.RegistrationStatusPending}
	require.NoError(t, repo.CreateWithinCapacity(context.Background(), registration))
	assert.Equal(t, 7, registration.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithinCapacityRejectsFullEvent(t *testing.T) {
	repo, mock := newRegistrationRepoMock(t)

	// Последнее место занято: вставка не выполняется, транзакция откатывается.
	mock.ExpectBegin()
	expectEventLock(mock, 1, 10)
	expectActiveCount(mock, 1, 10)
	mock.ExpectRollback()

	registration := &models.EventRegistration{EventID: 1, UserID: 42, Status: models.RegistrationStatusPending}
	err := repo.CreateWithinCapacity(context.Background(), registration)
	assert.ErrorIs(t, err, ErrEventCapacityReached)
	assert.Zero(t, registration.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithinCapacityMissingEvent(t *testing.T) {
	repo, mock := newRegistrationRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT max_volunteers FROM events WHERE id = $1 FOR UPDATE`)).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"max_volunteers"}))
	mock.ExpectRollback()

	registration := &models.EventRegistration{EventID: 404, UserID: 42, Status: models.RegistrationStatusPending}
	err := repo.CreateWithinCapacity(context.Background(), registration)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
