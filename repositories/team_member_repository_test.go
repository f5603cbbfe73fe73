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

func newMemberRepoMock(t *testing.T) (TeamMemberRepository, sqlmock.Sqlmock, *postgresTeamMemberRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewPostgresTeamMemberRepository(db)
	return repo, mock, repo.(*postgresTeamMemberRepository)
}

func expectTeamLock(mock sqlmock.Sqlmock, teamID, maxVolunteers int) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT max_volunteers FROM teams WHERE id = $1 FOR UPDATE`)).
		WithArgs(teamID).
		WillReturnRows(sqlmock.NewRows([]string{"max_volunteers"}).AddRow(maxVolunteers))
}

func expectActiveMemberCount(mock sqlmock.Sqlmock, teamID, active int) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND status = 'active'`)).
		WithArgs(teamID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(active))
}

func newActiveMember(teamID, userID int) *models.TeamMember {
	return &models.TeamMember{
		TeamID:     teamID,
		UserID:     userID,
		RoleInTeam: models.TeamRoleVolunteer,
		Status:     models.MemberStatusActive,
	}
}

func TestAddWithinCapacityOwnsTransaction(t *testing.T) {
	repo, mock, _ := newMemberRepoMock(t)

	mock.ExpectBegin()
	expectTeamLock(mock, 1, 5)
	expectActiveMemberCount(mock, 1, 4)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO team_members`)).
		WithArgs(1, 42, models.TeamRoleVolunteer, models.MemberStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "joined_at"}).AddRow(9, time.Now()))
	mock.ExpectCommit()

	member := newActiveMember(1, 42)
	require.NoError(t, repo.AddWithinCapacity(context.Background(), nil, member))
	assert.Equal(t, 9, member.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddWithinCapacityRejectsFullTeam(t *testing.T) {
	repo, mock, _ := newMemberRepoMock(t)

	mock.ExpectBegin()
	expectTeamLock(mock, 1, 5)
	expectActiveMemberCount(mock, 1, 5)
	mock.ExpectRollback()

	member := newActiveMember(1, 42)
	err := repo.AddWithinCapacity(context.Background(), nil, member)
	assert.ErrorIs(t, err, ErrTeamCapacityReached)
	assert.Zero(t, member.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddWithinCapacityJoinsCallerTransaction(t *testing.T) {
	_, mock, repo := newMemberRepoMock(t)

	// Вызывающий владеет транзакцией: репозиторий не открывает свою и не
	// фиксирует чужую.
	mock.ExpectBegin()
	expectTeamLock(mock, 3, 5)
	expectActiveMemberCount(mock, 3, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO team_members`)).
		WithArgs(3, 7, models.TeamRoleCaptain, models.MemberStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "joined_at"}).AddRow(1, time.Now()))
	mock.ExpectCommit()

	tx, err := repo.db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	member := &models.TeamMember{
		TeamID:     3,
		UserID:     7,
		RoleInTeam: models.TeamRoleCaptain,
		Status:     models.MemberStatusActive,
	}
	require.NoError(t, repo.AddWithinCapacity(context.Background(), tx, member))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddWithinCapacityMissingTeam(t *testing.T) {
	repo, mock, _ := newMemberRepoMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT max_volunteers FROM teams WHERE id = $1 FOR UPDATE`)).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"max_volunteers"}))
	mock.ExpectRollback()

	err := repo.AddWithinCapacity(context.Background(), nil, newActiveMember(404, 42))
	assert.ErrorIs(t, err, ErrTeamNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
