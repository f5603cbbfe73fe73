package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Adilbek99/volunteer-system/models"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name conflict")
	ErrTeamEventInvalid = errors.New("team event invalid")
)

type TeamRepository interface {
	// Create вставляет команду. Сервисный слой передаёт транзакцию, когда
	// команда и строка капитана должны зафиксироваться вместе.
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByEvent(ctx context.Context, eventID int) ([]models.Team, error)
	// ListByCaptain возвращает команды, которыми руководит пользователь.
	// Используется логикой преемственности капитана.
	ListByCaptain(ctx context.Context, exec SQLExecutor, captainID int) ([]models.Team, error)
	Update(ctx context.Context, team *models.Team) error
	UpdateCaptain(ctx context.Context, exec SQLExecutor, teamID int, captainID *int) error
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (event_id, name, captain_id, max_volunteers, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		team.EventID,
		team.Name,
		team.CaptainID,
		team.MaxVolunteers,
		team.Status,
	).Scan(&team.ID, &team.CreatedAt)

	if err != nil {
		switch pqConstraint(err) {
		case "teams_event_id_name_key":
			return ErrTeamNameConflict
		case "teams_event_id_fkey":
			return ErrTeamEventInvalid
		}
		return classifyPQError(err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `
		SELECT id, event_id, name, captain_id, max_volunteers, status, created_at
		FROM teams
		WHERE id = $1`

	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.EventID, &team.Name, &team.CaptainID,
		&team.MaxVolunteers, &team.Status, &team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, classifyPQError(err)
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByEvent(ctx context.Context, eventID int) ([]models.Team, error) {
	query := `
		SELECT id, event_id, name, captain_id, max_volunteers, status, created_at
		FROM teams
		WHERE event_id = $1
		ORDER BY name ASC`
	return r.listTeams(ctx, r.db, query, eventID)
}

func (r *postgresTeamRepository) ListByCaptain(ctx context.Context, exec SQLExecutor, captainID int) ([]models.Team, error) {
	query := `
		SELECT id, event_id, name, captain_id, max_volunteers, status, created_at
		FROM teams
		WHERE captain_id = $1
		ORDER BY id ASC`
	return r.listTeams(ctx, r.getExecutor(exec), query, captainID)
}

func (r *postgresTeamRepository) listTeams(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]models.Team, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		var team models.Team
		err := rows.Scan(
			&team.ID, &team.EventID, &team.Name, &team.CaptainID,
			&team.MaxVolunteers, &team.Status, &team.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) Update(ctx context.Context, team *models.Team) error {
	query := `
		UPDATE teams SET name = $1, max_volunteers = $2, status = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, team.Name, team.MaxVolunteers, team.Status, team.ID)
	if err != nil {
		if pqConstraint(err) == "teams_event_id_name_key" {
			return ErrTeamNameConflict
		}
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresTeamRepository) UpdateCaptain(ctx context.Context, exec SQLExecutor, teamID int, captainID *int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE teams SET captain_id = $1 WHERE id = $2`, captainID, teamID)
	if err != nil {
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresTeamRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`).Scan(&total); err != nil {
		return 0, classifyPQError(err)
	}
	return total, nil
}

func (r *postgresTeamRepository) requireAffected(result sql.Result) error {
	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}
