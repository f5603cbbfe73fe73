package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
)

const (
	inviteTokenLength = 16                 // Длина токена в байтах (32 символа в hex)
	inviteDuration    = 7 * 24 * time.Hour // Срок действия приглашения (7 дней)
	inviteMaxAttempts = 3
)

var ErrInviteTokenGeneration = errors.New("failed to generate unique invite token")

// TeamInviteMailer отправляет ссылку-приглашение на почту. Реализуется
// почтовым сервисом; в тестах подменяется фейком.
type TeamInviteMailer interface {
	SendTeamInviteEmail(userEmail, teamName, inviteLink string) error
}

type InviteService interface {
	// CreateInvite выпускает одноразовый токен. Если указан адрес получателя,
	// ссылка-приглашение дополнительно отправляется письмом; сбой отправки не
	// откатывает создание приглашения.
	CreateInvite(ctx context.Context, teamID, currentUserID int, isAdmin bool, inviteeEmail string) (*models.TeamInvite, error)
	GetInviteByToken(ctx context.Context, token string) (*models.TeamInvite, error)
	// AcceptInvite добавляет пользователя в команду по одноразовому токену.
	// Вместимость команды проверяется тем же атомарным условием, что и при
	// прямом добавлении капитаном.
	AcceptInvite(ctx context.Context, token string, currentUserID int) (*models.TeamMember, error)
	DeleteInvite(ctx context.Context, teamID, inviteID, currentUserID int, isAdmin bool) error
	ListTeamInvites(ctx context.Context, teamID, currentUserID int, isAdmin bool) ([]*models.TeamInvite, error)
	// CleanupExpired удаляет просроченные приглашения. Вызывается планировщиком.
	CleanupExpired(ctx context.Context) (int64, error)
}

type inviteService struct {
	inviteRepo repositories.InviteRepository
	teamRepo   repositories.TeamRepository
	memberRepo repositories.TeamMemberRepository
	notifier   NotificationService
	mailer     TeamInviteMailer
	publicURL  string
	logger     *slog.Logger
}

func NewInviteService(
	inviteRepo repositories.InviteRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	notifier NotificationService,
	mailer TeamInviteMailer,
	publicURL string,
	logger *slog.Logger,
) InviteService {
	return &inviteService{
		inviteRepo: inviteRepo,
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		notifier:   notifier,
		mailer:     mailer,
		publicURL:  publicURL,
		logger:     logger,
	}
}

func (s *inviteService) requireCaptain(ctx context.Context, teamID, currentUserID int, isAdmin bool) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	if !isAdmin && (team.CaptainID == nil || *team.CaptainID != currentUserID) {
		return nil, ErrCaptainActionForbidden
	}
	return team, nil
}

func (s *inviteService) CreateInvite(ctx context.Context, teamID, currentUserID int, isAdmin bool, inviteeEmail string) (*models.TeamInvite, error) {
	if inviteeEmail != "" {
		if err := validate.Var(inviteeEmail, "email"); err != nil {
			return nil, fmt.Errorf("%w: invalid invitee email", ErrValidationFailed)
		}
	}

	team, err := s.requireCaptain(ctx, teamID, currentUserID, isAdmin)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < inviteMaxAttempts; attempt++ {
		token, err := generateSecureToken(inviteTokenLength)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInviteTokenGeneration, err)
		}

		invite := &models.TeamInvite{
			TeamID:    teamID,
			Token:     token,
			ExpiresAt: time.Now().Add(inviteDuration),
		}

		err = s.inviteRepo.Create(ctx, invite)
		if err == nil {
			s.sendInviteEmail(ctx, team, invite, inviteeEmail)
			return invite, nil
		}
		if errors.Is(err, repositories.ErrInviteTeamInvalid) {
			return nil, ErrTeamNotFound
		}
		if !errors.Is(err, repositories.ErrInviteTokenConflict) {
			return nil, fmt.Errorf("failed to create invite: %w", err)
		}
		// Конфликт токена, пробуем заново.
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrInviteTokenGeneration, inviteMaxAttempts)
}

func (s *inviteService) sendInviteEmail(ctx context.Context, team *models.Team, invite *models.TeamInvite, inviteeEmail string) {
	if inviteeEmail == "" || s.mailer == nil {
		return
	}
	link := fmt.Sprintf("%s/invites?token=%s", s.publicURL, invite.Token)
	if err := s.mailer.SendTeamInviteEmail(inviteeEmail, team.Name, link); err != nil {
		s.logger.WarnContext(ctx, "failed to send team invite email",
			slog.Int("team_id", team.ID), slog.Int("invite_id", invite.ID), slog.Any("error", err))
	}
}

func (s *inviteService) GetInviteByToken(ctx context.Context, token string) (*models.TeamInvite, error) {
	invite, err := s.inviteRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to get invite by token: %w", err)
	}
	if time.Now().After(invite.ExpiresAt) {
		return nil, ErrInviteExpired
	}
	return invite, nil
}

func (s *inviteService) AcceptInvite(ctx context.Context, token string, currentUserID int) (*models.TeamMember, error) {
	invite, err := s.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetByID(ctx, invite.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", invite.TeamID, err)
	}

	member := &models.TeamMember{
		TeamID:     invite.TeamID,
		UserID:     currentUserID,
		RoleInTeam: models.TeamRoleVolunteer,
		Status:     models.MemberStatusActive,
	}
	if err := s.memberRepo.AddWithinCapacity(ctx, nil, member); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamCapacityReached):
			return nil, ErrTeamFull
		case errors.Is(err, repositories.ErrTeamMemberConflict):
			return nil, ErrUserAlreadyInTeam
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to join team %d via invite: %w", invite.TeamID, err)
	}

	// Приглашение одноразовое. Пользователь уже в команде, поэтому сбой
	// удаления не откатывает вступление: просроченные и неудалённые токены
	// чистит CleanupExpired.
	if err := s.inviteRepo.Delete(ctx, invite.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to delete used invite",
			slog.Int("invite_id", invite.ID), slog.Int("user_id", currentUserID), slog.Any("error", err))
	}

	if err := s.notifier.Notify(ctx, NotifyInput{
		UserID:        currentUserID,
		Type:          models.NotificationTeamJoined,
		Title:         "Вы в команде",
		Message:       fmt.Sprintf("Вы вступили в команду «%s» по приглашению.", team.Name),
		RelatedTeamID: &invite.TeamID,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to notify about invite acceptance",
			slog.Int("team_id", invite.TeamID), slog.Int("user_id", currentUserID), slog.Any("error", err))
	}

	return member, nil
}

func (s *inviteService) DeleteInvite(ctx context.Context, teamID, inviteID, currentUserID int, isAdmin bool) error {
	if _, err := s.requireCaptain(ctx, teamID, currentUserID, isAdmin); err != nil {
		return err
	}

	// Убеждаемся, что приглашение принадлежит именно этой команде.
	invites, err := s.inviteRepo.ListByTeamID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to list invites for team %d: %w", teamID, err)
	}
	found := false
	for _, invite := range invites {
		if invite.ID == inviteID {
			found = true
			break
		}
	}
	if !found {
		return ErrInviteNotFound
	}

	if err := s.inviteRepo.Delete(ctx, inviteID); err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return ErrInviteNotFound
		}
		return fmt.Errorf("failed to delete invite %d: %w", inviteID, err)
	}
	return nil
}

func (s *inviteService) ListTeamInvites(ctx context.Context, teamID, currentUserID int, isAdmin bool) ([]*models.TeamInvite, error) {
	if _, err := s.requireCaptain(ctx, teamID, currentUserID, isAdmin); err != nil {
		return nil, err
	}

	invites, err := s.inviteRepo.ListByTeamID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites for team %d: %w", teamID, err)
	}

	// Просроченные приглашения не показываем.
	active := make([]*models.TeamInvite, 0, len(invites))
	now := time.Now()
	for _, invite := range invites {
		if now.Before(invite.ExpiresAt) {
			active = append(active, invite)
		}
	}
	return active, nil
}

func (s *inviteService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.inviteRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invites: %w", err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "expired invites removed", slog.Int64("count", deleted))
	}
	return deleted, nil
}
