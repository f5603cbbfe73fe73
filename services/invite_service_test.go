package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInviteRepo struct {
	invites map[int]*models.TeamInvite
	nextID  int
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{invites: make(map[int]*models.TeamInvite), nextID: 1}
}

func (r *fakeInviteRepo) Create(ctx context.Context, invite *models.TeamInvite) error {
	invite.ID = r.nextID
	r.nextID++
	invite.CreatedAt = time.Now()
	r.invites[invite.ID] = invite
	return nil
}

func (r *fakeInviteRepo) GetByToken(ctx context.Context, token string) (*models.TeamInvite, error) {
	for _, invite := range r.invites {
		if invite.Token == token {
			copied := *invite
			return &copied, nil
		}
	}
	return nil, repositories.ErrInviteNotFound
}

func (r *fakeInviteRepo) ListByTeamID(ctx context.Context, teamID int) ([]*models.TeamInvite, error) {
	var out []*models.TeamInvite
	for _, invite := range r.invites {
		if invite.TeamID == teamID {
			copied := *invite
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.invites[id]; !ok {
		return repositories.ErrInviteNotFound
	}
	delete(r.invites, id)
	return nil
}

func (r *fakeInviteRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	now := time.Now()
	for id, invite := range r.invites {
		if now.After(invite.ExpiresAt) {
			delete(r.invites, id)
			deleted++
		}
	}
	return deleted, nil
}

type sentInvite struct {
	email    string
	teamName string
	link     string
}

type fakeInviteMailer struct {
	sent    []sentInvite
	sendErr error
}

func (m *fakeInviteMailer) SendTeamInviteEmail(userEmail, teamName, inviteLink string) error {
	m.sent = append(m.sent, sentInvite{email: userEmail, teamName: teamName, link: inviteLink})
	return m.sendErr
}

func captainedTeam(id, captainID int, name string) *models.Team {
	return &models.Team{
		ID:            id,
		EventID:       1,
		Name:          name,
		CaptainID:     &captainID,
		MaxVolunteers: 10,
		Status:        models.TeamStatusActive,
	}
}

func newInviteServiceForTest(teamRepo *fakeTeamRepo, mailer *fakeInviteMailer) (InviteService, *fakeInviteRepo) {
	inviteRepo := newFakeInviteRepo()
	svc := NewInviteService(inviteRepo, teamRepo, newFakeTeamMemberRepo(),
		&fakeNotifier{}, mailer, "https://volunteer.example", testLogger())
	return svc, inviteRepo
}

func TestCreateInviteSendsEmailWhenAddressGiven(t *testing.T) {
	mailer := &fakeInviteMailer{}
	svc, _ := newInviteServiceForTest(newFakeTeamRepo(captainedTeam(1, 5, "Альфа")), mailer)

	invite, err := svc.CreateInvite(context.Background(), 1, 5, false, "friend@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, invite.Token)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "friend@example.com", mailer.sent[0].email)
	assert.Equal(t, "Альфа", mailer.sent[0].teamName)
	assert.Equal(t, "https://volunteer.example/invites?token="+invite.Token, mailer.sent[0].link)
}

func TestCreateInviteWithoutEmailSkipsMailer(t *testing.T) {
	mailer := &fakeInviteMailer{}
	svc, _ := newInviteServiceForTest(newFakeTeamRepo(captainedTeam(1, 5, "Альфа")), mailer)

	invite, err := svc.CreateInvite(context.Background(), 1, 5, false, "")
	require.NoError(t, err)
	assert.NotEmpty(t, invite.Token)
	assert.Empty(t, mailer.sent)
}

func TestCreateInviteSurvivesMailerFailure(t *testing.T) {
	mailer := &fakeInviteMailer{sendErr: errors.New("smtp down")}
	svc, inviteRepo := newInviteServiceForTest(newFakeTeamRepo(captainedTeam(1, 5, "Альфа")), mailer)

	// Письмо не ушло, но приглашение создано и пригодно к использованию.
	invite, err := svc.CreateInvite(context.Background(), 1, 5, false, "friend@example.com")
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 1)
	assert.Contains(t, inviteRepo.invites, invite.ID)
}

func TestCreateInviteRejectsMalformedEmail(t *testing.T) {
	mailer := &fakeInviteMailer{}
	svc, _ := newInviteServiceForTest(newFakeTeamRepo(captainedTeam(1, 5, "Альфа")), mailer)

	_, err := svc.CreateInvite(context.Background(), 1, 5, false, "not-an-email")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Empty(t, mailer.sent)
}

func TestCreateInviteRequiresCaptain(t *testing.T) {
	mailer := &fakeInviteMailer{}
	svc, _ := newInviteServiceForTest(newFakeTeamRepo(captainedTeam(1, 5, "Альфа")), mailer)

	_, err := svc.CreateInvite(context.Background(), 1, 99, false, "")
	assert.ErrorIs(t, err, ErrCaptainActionForbidden)
}
