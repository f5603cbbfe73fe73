package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adilbek99/volunteer-system/models"
)

var (
	ErrTeamMemberNotFound  = errors.New("team member not found")
	ErrTeamMemberConflict  = errors.New("user is already an active member of this team")
	ErrTeamCapacityReached = errors.New("team capacity reached")
)

type TeamMemberRepository interface {
	// AddWithinCapacity вставляет участника под блокировкой строки команды
	// (SELECT .. FOR UPDATE), как и регистрации на событие: конкурентные
	// вступления сериализуются, и активных участников никогда не становится
	// больше max_volunteers. При exec == nil репозиторий открывает собственную
	// транзакцию; иначе выполняется в переданной (вызывающий обязан передать
	// транзакцию, а не голое соединение, иначе блокировка не удерживается).
	AddWithinCapacity(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error
	GetByID(ctx context.Context, id int) (*models.TeamMember, error)
	FindActiveByTeamAndUser(ctx context.Context, teamID, userID int) (*models.TeamMember, error)
	// ListActiveByTeam возвращает активных участников в порядке вступления.
	// Порядок фиксирован вторичным ключом id, чтобы совпадающие joined_at не
	// давали недетерминированной очерёдности преемственности.
	ListActiveByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]models.TeamMember, error)
	ListByTeam(ctx context.Context, teamID int) ([]models.TeamMember, error)
	ListActiveByUser(ctx context.Context, exec SQLExecutor, userID int) ([]models.TeamMember, error)
	UpdateRole(ctx context.Context, exec SQLExecutor, memberID int, role models.TeamMemberRole) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, memberID int, status models.TeamMemberStatus) error
	CountActiveByTeam(ctx context.Context, teamID int) (int, error)
}

type postgresTeamMemberRepository struct {
	db *sql.DB
}

func NewPostgresTeamMemberRepository(db *sql.DB) TeamMemberRepository {
	return &postgresTeamMemberRepository{db: db}
}

func (r *postgresTeamMemberRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamMemberRepository) AddWithinCapacity(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error {
	if exec != nil {
		return r.addWithinCapacity(ctx, exec, member)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.addWithinCapacity(ctx, tx, member); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresTeamMemberRepository) addWithinCapacity(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error {
	// Блокировка строки команды сериализует конкурентные вступления: второй
	// участник пересчитывает состав уже после фиксации первого.
	var maxVolunteers int
	err := exec.QueryRowContext(ctx,
		`SELECT max_volunteers FROM teams WHERE id = $1 FOR UPDATE`,
		member.TeamID,
	).Scan(&maxVolunteers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		return classifyPQError(err)
	}

	var active int
	err = exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND status = 'active'`,
		member.TeamID,
	).Scan(&active)
	if err != nil {
		return classifyPQError(err)
	}
	if active >= maxVolunteers {
		return ErrTeamCapacityReached
	}

	err = exec.QueryRowContext(ctx,
		`INSERT INTO team_members (team_id, user_id, role_in_team, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, joined_at`,
		member.TeamID,
		member.UserID,
		member.RoleInTeam,
		member.Status,
	).Scan(&member.ID, &member.JoinedAt)
	if err != nil {
		if pqConstraint(err) == "team_members_active_user_key" {
			return ErrTeamMemberConflict
		}
		if pqConstraint(err) == "team_members_user_id_fkey" {
			return ErrUserNotFound
		}
		return classifyPQError(err)
	}
	return nil
}

func (r *postgresTeamMemberRepository) GetByID(ctx context.Context, id int) (*models.TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, role_in_team, status, joined_at
		FROM team_members
		WHERE id = $1`

	member := &models.TeamMember{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&member.ID, &member.TeamID, &member.UserID,
		&member.RoleInTeam, &member.Status, &member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamMemberNotFound
		}
		return nil, classifyPQError(err)
	}
	return member, nil
}

func (r *postgresTeamMemberRepository) FindActiveByTeamAndUser(ctx context.Context, teamID, userID int) (*models.TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, role_in_team, status, joined_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2 AND status = 'active'`

	member := &models.TeamMember{}
	err := r.db.QueryRowContext(ctx, query, teamID, userID).Scan(
		&member.ID, &member.TeamID, &member.UserID,
		&member.RoleInTeam, &member.Status, &member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamMemberNotFound
		}
		return nil, classifyPQError(err)
	}
	return member, nil
}

func (r *postgresTeamMemberRepository) ListActiveByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]models.TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, role_in_team, status, joined_at
		FROM team_members
		WHERE team_id = $1 AND status = 'active'
		ORDER BY joined_at ASC, id ASC`
	return r.listMembers(ctx, r.getExecutor(exec), query, teamID)
}

func (r *postgresTeamMemberRepository) ListByTeam(ctx context.Context, teamID int) ([]models.TeamMember, error) {
	query := `
		SELECT m.id, m.team_id, m.user_id, m.role_in_team, m.status, m.joined_at,
			u.id, u.first_name, u.last_name, u.email, u.role, u.is_active
		FROM team_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.team_id = $1
		ORDER BY m.joined_at ASC, m.id ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	members := make([]models.TeamMember, 0)
	for rows.Next() {
		var member models.TeamMember
		var user models.User
		err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID,
			&member.RoleInTeam, &member.Status, &member.JoinedAt,
			&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Role, &user.IsActive,
		)
		if err != nil {
			return nil, err
		}
		member.User = &user
		members = append(members, member)
	}
	return members, rows.Err()
}

func (r *postgresTeamMemberRepository) ListActiveByUser(ctx context.Context, exec SQLExecutor, userID int) ([]models.TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, role_in_team, status, joined_at
		FROM team_members
		WHERE user_id = $1 AND status = 'active'
		ORDER BY joined_at ASC, id ASC`
	return r.listMembers(ctx, r.getExecutor(exec), query, userID)
}

func (r *postgresTeamMemberRepository) listMembers(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]models.TeamMember, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	members := make([]models.TeamMember, 0)
	for rows.Next() {
		var member models.TeamMember
		err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID,
			&member.RoleInTeam, &member.Status, &member.JoinedAt,
		)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (r *postgresTeamMemberRepository) UpdateRole(ctx context.Context, exec SQLExecutor, memberID int, role models.TeamMemberRole) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE team_members SET role_in_team = $1 WHERE id = $2`, role, memberID)
	if err != nil {
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresTeamMemberRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, memberID int, status models.TeamMemberStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE team_members SET status = $1 WHERE id = $2`, status, memberID)
	if err != nil {
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresTeamMemberRepository) CountActiveByTeam(ctx context.Context, teamID int) (int, error) {
	query := `SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND status = 'active'`
	var count int
	if err := r.db.QueryRowContext(ctx, query, teamID).Scan(&count); err != nil {
		return 0, classifyPQError(err)
	}
	return count, nil
}

func (r *postgresTeamMemberRepository) requireAffected(result sql.Result) error {
	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTeamMemberNotFound
	}
	return nil
}
