package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adilbek99/volunteer-system/metrics"
	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
)

type CreateTeamInput struct {
	EventID       int    `json:"event_id" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required,min=1,max=100"`
	CaptainID     int    `json:"captain_id" validate:"required,gt=0"`
	MaxVolunteers int    `json:"max_volunteers" validate:"required,gt=0"`
}

type UpdateTeamInput struct {
	Name          *string            `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	MaxVolunteers *int               `json:"max_volunteers,omitempty" validate:"omitempty,gt=0"`
	Status        *models.TeamStatus `json:"status,omitempty"`
}

// SuccessionOutcome описывает результат преемственности в одной команде.
// NewCaptainUserID равен nil, когда команда осталась без капитана.
type SuccessionOutcome struct {
	TeamID           int
	NewCaptainUserID *int
	NewCaptainMember int
}

type TeamService interface {
	Create(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	GetByID(ctx context.Context, teamID int) (*models.Team, error)
	GetDetails(ctx context.Context, teamID int) (*models.Team, error)
	ListByEvent(ctx context.Context, eventID int) ([]models.Team, error)
	Update(ctx context.Context, teamID, actorID int, isAdmin bool, input UpdateTeamInput) (*models.Team, error)
	Delete(ctx context.Context, teamID int) error
	AddMember(ctx context.Context, teamID, userID, actorID int, isAdmin bool) (*models.TeamMember, error)
	// RemoveMember переводит участника в removed. Если выбывает капитан,
	// в той же транзакции выполняется преемственность.
	RemoveMember(ctx context.Context, teamID, userID, actorID int, isAdmin bool) error
	// SuccessionOnDeparture выполняет преемственность во всех командах,
	// которыми руководит пользователь, в рамках переданной транзакции.
	// Используется админскими операциями смены роли и деактивации.
	SuccessionOnDeparture(ctx context.Context, exec repositories.SQLExecutor, userID int) ([]SuccessionOutcome, error)
	// NotifySuccession рассылает уведомления о повышениях после фиксации
	// транзакции, в которой прошла преемственность.
	NotifySuccession(ctx context.Context, outcomes []SuccessionOutcome)
}

type teamService struct {
	db         *sql.DB
	teamRepo   repositories.TeamRepository
	memberRepo repositories.TeamMemberRepository
	eventRepo  repositories.EventRepository
	userRepo   repositories.UserRepository
	notifier   NotificationService
	logger     *slog.Logger
}

func NewTeamService(
	db *sql.DB,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	eventRepo repositories.EventRepository,
	userRepo repositories.UserRepository,
	notifier NotificationService,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		db:         db,
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		eventRepo:  eventRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

// pickSuccessor выбирает преемника капитана: активный участник с самым
// ранним joined_at, при совпадении времени — с меньшим id. Выбывающий
// пользователь исключается. Возвращает nil, когда преемника нет.
func pickSuccessor(members []models.TeamMember, departedUserID int) *models.TeamMember {
	candidates := make([]models.TeamMember, 0, len(members))
	for _, m := range members {
		if m.UserID == departedUserID || m.Status != models.MemberStatusActive {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].JoinedAt.Equal(candidates[j].JoinedAt) {
			return candidates[i].JoinedAt.Before(candidates[j].JoinedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return &candidates[0]
}

func (s *teamService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if _, err := s.eventRepo.GetByID(ctx, input.EventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", input.EventID, err)
	}
	if _, err := s.userRepo.GetByID(ctx, input.CaptainID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get captain %d: %w", input.CaptainID, err)
	}

	team := &models.Team{
		EventID:       input.EventID,
		Name:          input.Name,
		CaptainID:     &input.CaptainID,
		MaxVolunteers: input.MaxVolunteers,
		Status:        models.TeamStatusActive,
	}

	// Команда и строка её капитана фиксируются одной транзакцией: команда с
	// captain_id, но без членства капитана — противоречивое состояние.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.teamRepo.Create(ctx, tx, team); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamNameConflict):
			return nil, ErrTeamNameConflict
		case errors.Is(err, repositories.ErrTeamEventInvalid):
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	captain := &models.TeamMember{
		TeamID:     team.ID,
		UserID:     input.CaptainID,
		RoleInTeam: models.TeamRoleCaptain,
		Status:     models.MemberStatusActive,
	}
	if err := s.memberRepo.AddWithinCapacity(ctx, tx, captain); err != nil {
		return nil, fmt.Errorf("failed to add captain to team %d: %w", team.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit team creation: %w", err)
	}
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	return team, nil
}

func (s *teamService) GetDetails(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of team %d: %w", teamID, err)
	}
	for i := range members {
		if members[i].User != nil {
			members[i].User.PasswordHash = ""
		}
	}
	team.Members = members

	if team.CaptainID != nil {
		captain, err := s.userRepo.GetBasicByID(ctx, *team.CaptainID)
		if err == nil {
			team.Captain = captain
		} else {
			s.logger.WarnContext(ctx, "failed to populate team captain",
				slog.Int("team_id", teamID), slog.Int("captain_id", *team.CaptainID), slog.Any("error", err))
		}
	}
	return team, nil
}

func (s *teamService) ListByEvent(ctx context.Context, eventID int) ([]models.Team, error) {
	teams, err := s.teamRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for event %d: %w", eventID, err)
	}
	return teams, nil
}

func (s *teamService) Update(ctx context.Context, teamID, actorID int, isAdmin bool, input UpdateTeamInput) (*models.Team, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if input.Status != nil {
		switch *input.Status {
		case models.TeamStatusActive, models.TeamStatusInactive:
		default:
			return nil, fmt.Errorf("%w: unknown team status %q", ErrValidationFailed, *input.Status)
		}
	}

	team, err := s.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && (team.CaptainID == nil || *team.CaptainID != actorID) {
		return nil, ErrCaptainActionForbidden
	}

	if input.Name != nil {
		team.Name = *input.Name
	}
	if input.MaxVolunteers != nil {
		active, err := s.memberRepo.CountActiveByTeam(ctx, teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to count members of team %d: %w", teamID, err)
		}
		if *input.MaxVolunteers < active {
			return nil, fmt.Errorf("%w: %d active members exceed new capacity %d",
				ErrEventInvalidCapacity, active, *input.MaxVolunteers)
		}
		team.MaxVolunteers = *input.MaxVolunteers
	}
	if input.Status != nil {
		team.Status = *input.Status
	}

	if err := s.teamRepo.Update(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to update team %d: %w", teamID, err)
	}
	return team, nil
}

func (s *teamService) Delete(ctx context.Context, teamID int) error {
	if err := s.teamRepo.Delete(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to delete team %d: %w", teamID, err)
	}
	return nil
}

func (s *teamService) AddMember(ctx context.Context, teamID, userID, actorID int, isAdmin bool) (*models.TeamMember, error) {
	team, err := s.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && (team.CaptainID == nil || *team.CaptainID != actorID) {
		return nil, ErrCaptainActionForbidden
	}

	member := &models.TeamMember{
		TeamID:     teamID,
		UserID:     userID,
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
		return nil, fmt.Errorf("failed to add user %d to team %d: %w", userID, teamID, err)
	}

	if err := s.notifier.Notify(ctx, NotifyInput{
		UserID:        userID,
		Type:          models.NotificationTeamJoined,
		Title:         "Вы в команде",
		Message:       fmt.Sprintf("Вы добавлены в команду «%s».", team.Name),
		RelatedTeamID: &teamID,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to notify about team join",
			slog.Int("team_id", teamID), slog.Int("user_id", userID), slog.Any("error", err))
	}

	return member, nil
}

func (s *teamService) RemoveMember(ctx context.Context, teamID, userID, actorID int, isAdmin bool) error {
	team, err := s.GetByID(ctx, teamID)
	if err != nil {
		return err
	}

	isCaptainActor := team.CaptainID != nil && *team.CaptainID == actorID
	isSelf := userID == actorID
	if !isAdmin && !isCaptainActor && !isSelf {
		return ErrSelfLeaveForbidden
	}

	member, err := s.memberRepo.FindActiveByTeamAndUser(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamMemberNotFound) {
			return ErrTeamMemberNotFound
		}
		return fmt.Errorf("failed to find member: %w", err)
	}

	departingCaptain := team.CaptainID != nil && *team.CaptainID == userID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.memberRepo.UpdateStatus(ctx, tx, member.ID, models.MemberStatusRemoved); err != nil {
		return fmt.Errorf("failed to remove member %d: %w", member.ID, err)
	}

	var outcomes []SuccessionOutcome
	if departingCaptain {
		outcome, err := s.successTeam(ctx, tx, team.ID, userID)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, outcome)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member removal: %w", err)
	}

	if !isSelf {
		if err := s.notifier.Notify(ctx, NotifyInput{
			UserID:        userID,
			Type:          models.NotificationTeamRemoved,
			Title:         "Исключение из команды",
			Message:       fmt.Sprintf("Вы исключены из команды «%s».", team.Name),
			RelatedTeamID: &teamID,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to notify about removal",
				slog.Int("team_id", teamID), slog.Int("user_id", userID), slog.Any("error", err))
		}
	}
	s.NotifySuccession(ctx, outcomes)
	return nil
}

// successTeam выполняет преемственность в одной команде в рамках транзакции.
func (s *teamService) successTeam(ctx context.Context, tx repositories.SQLExecutor, teamID, departedUserID int) (SuccessionOutcome, error) {
	outcome := SuccessionOutcome{TeamID: teamID}

	members, err := s.memberRepo.ListActiveByTeam(ctx, tx, teamID)
	if err != nil {
		return outcome, fmt.Errorf("failed to list members of team %d: %w", teamID, err)
	}

	successor := pickSuccessor(members, departedUserID)
	if successor == nil {
		// Команда без капитана — допустимое терминальное состояние.
		if err := s.teamRepo.UpdateCaptain(ctx, tx, teamID, nil); err != nil {
			return outcome, fmt.Errorf("failed to clear captain of team %d: %w", teamID, err)
		}
		metrics.CaptainSuccessions.Inc()
		return outcome, nil
	}

	if err := s.teamRepo.UpdateCaptain(ctx, tx, teamID, &successor.UserID); err != nil {
		return outcome, fmt.Errorf("failed to set captain of team %d: %w", teamID, err)
	}
	if err := s.memberRepo.UpdateRole(ctx, tx, successor.ID, models.TeamRoleCaptain); err != nil {
		return outcome, fmt.Errorf("failed to promote member %d: %w", successor.ID, err)
	}
	if err := s.userRepo.UpdateRole(ctx, tx, successor.UserID, models.RoleCaptain); err != nil {
		return outcome, fmt.Errorf("failed to promote user %d: %w", successor.UserID, err)
	}

	metrics.CaptainSuccessions.Inc()
	outcome.NewCaptainUserID = &successor.UserID
	outcome.NewCaptainMember = successor.ID
	return outcome, nil
}

func (s *teamService) SuccessionOnDeparture(ctx context.Context, exec repositories.SQLExecutor, userID int) ([]SuccessionOutcome, error) {
	teams, err := s.teamRepo.ListByCaptain(ctx, exec, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams captained by user %d: %w", userID, err)
	}

	outcomes := make([]SuccessionOutcome, 0, len(teams))
	for _, team := range teams {
		outcome, err := s.successTeam(ctx, exec, team.ID, userID)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}

	// Выбывший капитан сохраняет только самое раннее активное членство как
	// рядовой волонтёр; остальные членства закрываются.
	memberships, err := s.memberRepo.ListActiveByUser(ctx, exec, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships of user %d: %w", userID, err)
	}
	for i, m := range memberships {
		if i == 0 {
			if m.RoleInTeam != models.TeamRoleVolunteer {
				if err := s.memberRepo.UpdateRole(ctx, exec, m.ID, models.TeamRoleVolunteer); err != nil {
					return nil, fmt.Errorf("failed to demote member %d: %w", m.ID, err)
				}
			}
			continue
		}
		if err := s.memberRepo.UpdateStatus(ctx, exec, m.ID, models.MemberStatusRemoved); err != nil {
			return nil, fmt.Errorf("failed to close membership %d: %w", m.ID, err)
		}
	}

	return outcomes, nil
}

func (s *teamService) NotifySuccession(ctx context.Context, outcomes []SuccessionOutcome) {
	for _, outcome := range outcomes {
		if outcome.NewCaptainUserID == nil {
			continue
		}
		teamID := outcome.TeamID
		if err := s.notifier.Notify(ctx, NotifyInput{
			UserID:        *outcome.NewCaptainUserID,
			Type:          models.NotificationCaptainPromoted,
			Title:         "Вы назначены капитаном",
			Message:       "Предыдущий капитан выбыл, команда переходит под ваше руководство.",
			RelatedTeamID: &teamID,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to notify new captain",
				slog.Int("team_id", teamID), slog.Int("user_id", *outcome.NewCaptainUserID), slog.Any("error", err))
		}
	}
}
