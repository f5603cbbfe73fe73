package services

import (
	"context"
	"testing"
	"time"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTeamRepo struct {
	teams       map[int]*models.Team
	nextID      int
	createdWith repositories.SQLExecutor
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	repo := &fakeTeamRepo{teams: make(map[int]*models.Team), nextID: 1}
	for _, team := range teams {
		repo.teams[team.ID] = team
		if team.ID >= repo.nextID {
			repo.nextID = team.ID + 1
		}
	}
	return repo
}

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	r.createdWith = exec
	team.ID = r.nextID
	r.nextID++
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) ListByEvent(ctx context.Context, eventID int) ([]models.Team, error) {
	var out []models.Team
	for _, team := range r.teams {
		if team.EventID == eventID {
			out = append(out, *team)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) ListByCaptain(ctx context.Context, exec repositories.SQLExecutor, captainID int) ([]models.Team, error) {
	var out []models.Team
	for _, team := range r.teams {
		if team.CaptainID != nil && *team.CaptainID == captainID {
			out = append(out, *team)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) Update(ctx context.Context, team *models.Team) error {
	if _, ok := r.teams[team.ID]; !ok {
		return repositories.ErrTeamNotFound
	}
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) UpdateCaptain(ctx context.Context, exec repositories.SQLExecutor, teamID int, captainID *int) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.CaptainID = captainID
	return nil
}

func (r *fakeTeamRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.teams, id)
	return nil
}

func (r *fakeTeamRepo) Count(ctx context.Context) (int, error) {
	return len(r.teams), nil
}

type fakeTeamMemberRepo struct {
	members   map[int]*models.TeamMember
	nextID    int
	addErr    error
	addedWith repositories.SQLExecutor
}

func newFakeTeamMemberRepo() *fakeTeamMemberRepo {
	return &fakeTeamMemberRepo{members: make(map[int]*models.TeamMember), nextID: 1}
}

func (r *fakeTeamMemberRepo) AddWithinCapacity(ctx context.Context, exec repositories.SQLExecutor, member *models.TeamMember) error {
	r.addedWith = exec
	if r.addErr != nil {
		return r.addErr
	}
	member.ID = r.nextID
	r.nextID++
	member.JoinedAt = time.Now()
	r.members[member.ID] = member
	return nil
}

func (r *fakeTeamMemberRepo) GetByID(ctx context.Context, id int) (*models.TeamMember, error) {
	member, ok := r.members[id]
	if !ok {
		return nil, repositories.ErrTeamMemberNotFound
	}
	copied := *member
	return &copied, nil
}

func (r *fakeTeamMemberRepo) FindActiveByTeamAndUser(ctx context.Context, teamID, userID int) (*models.TeamMember, error) {
	for _, m := range r.members {
		if m.TeamID == teamID && m.UserID == userID && m.Status == models.MemberStatusActive {
			copied := *m
			return &copied, nil
		}
	}
	return nil, repositories.ErrTeamMemberNotFound
}

func (r *fakeTeamMemberRepo) ListActiveByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) ([]models.TeamMember, error) {
	var out []models.TeamMember
	for _, m := range r.members {
		if m.TeamID == teamID && m.Status == models.MemberStatusActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeTeamMemberRepo) ListByTeam(ctx context.Context, teamID int) ([]models.TeamMember, error) {
	var out []models.TeamMember
	for _, m := range r.members {
		if m.TeamID == teamID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeTeamMemberRepo) ListActiveByUser(ctx context.Context, exec repositories.SQLExecutor, userID int) ([]models.TeamMember, error) {
	var out []models.TeamMember
	for _, m := range r.members {
		if m.UserID == userID && m.Status == models.MemberStatusActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeTeamMemberRepo) UpdateRole(ctx context.Context, exec repositories.SQLExecutor, memberID int, role models.TeamMemberRole) error {
	member, ok := r.members[memberID]
	if !ok {
		return repositories.ErrTeamMemberNotFound
	}
	member.RoleInTeam = role
	return nil
}

func (r *fakeTeamMemberRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, memberID int, status models.TeamMemberStatus) error {
	member, ok := r.members[memberID]
	if !ok {
		return repositories.ErrTeamMemberNotFound
	}
	member.Status = status
	return nil
}

func (r *fakeTeamMemberRepo) CountActiveByTeam(ctx context.Context, teamID int) (int, error) {
	count := 0
	for _, m := range r.members {
		if m.TeamID == teamID && m.Status == models.MemberStatusActive {
			count++
		}
	}
	return count, nil
}

func member(id, userID int, joinedAt time.Time, status models.TeamMemberStatus) models.TeamMember {
	return models.TeamMember{
		ID:         id,
		UserID:     userID,
		RoleInTeam: models.TeamRoleVolunteer,
		Status:     status,
		JoinedAt:   joinedAt,
	}
}

func TestPickSuccessorEarliestJoined(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	members := []models.TeamMember{
		member(3, 30, base.Add(2*time.Hour), models.MemberStatusActive),
		member(1, 10, base, models.MemberStatusActive), // капитан, выбывает
		member(2, 20, base.Add(time.Hour), models.MemberStatusActive),
	}

	successor := pickSuccessor(members, 10)
	require.NotNil(t, successor)
	assert.Equal(t, 20, successor.UserID)
}

func TestPickSuccessorTieBreaksByID(t *testing.T) {
	joined := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	members := []models.TeamMember{
		member(7, 70, joined, models.MemberStatusActive),
		member(4, 40, joined, models.MemberStatusActive),
		member(9, 90, joined, models.MemberStatusActive),
	}

	successor := pickSuccessor(members, 99)
	require.NotNil(t, successor)
	// Одинаковое время вступления — побеждает меньший id.
	assert.Equal(t, 4, successor.ID)
}

func TestPickSuccessorSkipsInactiveMembers(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	members := []models.TeamMember{
		member(1, 10, base, models.MemberStatusRemoved),
		member(2, 20, base.Add(time.Minute), models.MemberStatusInactive),
		member(3, 30, base.Add(time.Hour), models.MemberStatusActive),
	}

	successor := pickSuccessor(members, 99)
	require.NotNil(t, successor)
	assert.Equal(t, 30, successor.UserID)
}

func TestPickSuccessorEmptyTeam(t *testing.T) {
	// Выбывает единственный участник — команда остаётся без капитана.
	members := []models.TeamMember{
		member(1, 10, time.Now(), models.MemberStatusActive),
	}
	assert.Nil(t, pickSuccessor(members, 10))
	assert.Nil(t, pickSuccessor(nil, 10))
}

func TestUpdateTeamRejectsUnknownStatus(t *testing.T) {
	svc := NewTeamService(nil, nil, nil, nil, nil, nil, testLogger())

	// Статус проверяется до обращений к хранилищу.
	bad := models.TeamStatus("archived")
	_, err := svc.Update(context.Background(), 1, 1, true, UpdateTeamInput{Status: &bad})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCreateTeamCommitsCaptainRowWithTeam(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	teamRepo := newFakeTeamRepo()
	memberRepo := newFakeTeamMemberRepo()
	svc := NewTeamService(db, teamRepo, memberRepo,
		newFakeEventRepo(publishedEvent(1, 50)), newFakeUserRepo(testVolunteer(5)),
		&fakeNotifier{}, testLogger())

	team, err := svc.Create(context.Background(), CreateTeamInput{
		EventID:       1,
		Name:          "Альфа",
		CaptainID:     5,
		MaxVolunteers: 5,
	})
	require.NoError(t, err)
	require.NotNil(t, team.CaptainID)
	assert.Equal(t, 5, *team.CaptainID)

	// Команда и капитан пишутся одной транзакцией.
	require.NotNil(t, teamRepo.createdWith)
	assert.Same(t, teamRepo.createdWith, memberRepo.addedWith)

	captain := memberRepo.members[1]
	require.NotNil(t, captain)
	assert.Equal(t, models.TeamRoleCaptain, captain.RoleInTeam)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTeamRollsBackWhenCaptainRowFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	teamRepo := newFakeTeamRepo()
	memberRepo := newFakeTeamMemberRepo()
	memberRepo.addErr = repositories.ErrTeamCapacityReached
	svc := NewTeamService(db, teamRepo, memberRepo,
		newFakeEventRepo(publishedEvent(1, 50)), newFakeUserRepo(testVolunteer(5)),
		&fakeNotifier{}, testLogger())

	_, err = svc.Create(context.Background(), CreateTeamInput{
		EventID:       1,
		Name:          "Альфа",
		CaptainID:     5,
		MaxVolunteers: 5,
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
