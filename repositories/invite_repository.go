package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Adilbek99/volunteer-system/models"
)

var (
	ErrInviteNotFound      = errors.New("invite not found")
	ErrInviteTokenConflict = errors.New("invite token conflict")
	ErrInviteTeamInvalid   = errors.New("invite team invalid")
)

type InviteRepository interface {
	Create(ctx context.Context, invite *models.TeamInvite) error
	GetByToken(ctx context.Context, token string) (*models.TeamInvite, error)
	ListByTeamID(ctx context.Context, teamID int) ([]*models.TeamInvite, error)
	Delete(ctx context.Context, id int) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type postgresInviteRepository struct {
	db *sql.DB
}

func NewPostgresInviteRepository(db *sql.DB) InviteRepository {
	return &postgresInviteRepository{db: db}
}

func (r *postgresInviteRepository) Create(ctx context.Context, invite *models.TeamInvite) error {
	query := `
		INSERT INTO team_invites (team_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, invite.TeamID, invite.Token, invite.ExpiresAt).
		Scan(&invite.ID, &invite.CreatedAt)
	if err != nil {
		switch pqConstraint(err) {
		case "team_invites_token_key":
			return ErrInviteTokenConflict
		case "team_invites_team_id_fkey":
			return ErrInviteTeamInvalid
		}
		return classifyPQError(err)
	}
	return nil
}

func (r *postgresInviteRepository) GetByToken(ctx context.Context, token string) (*models.TeamInvite, error) {
	query := `SELECT id, team_id, token, expires_at, created_at FROM team_invites WHERE token = $1`

	invite := &models.TeamInvite{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&invite.ID, &invite.TeamID, &invite.Token, &invite.ExpiresAt, &invite.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, classifyPQError(err)
	}
	return invite, nil
}

func (r *postgresInviteRepository) ListByTeamID(ctx context.Context, teamID int) ([]*models.TeamInvite, error) {
	query := `SELECT id, team_id, token, expires_at, created_at FROM team_invites WHERE team_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	invites := make([]*models.TeamInvite, 0)
	for rows.Next() {
		var invite models.TeamInvite
		if err := rows.Scan(&invite.ID, &invite.TeamID, &invite.Token, &invite.ExpiresAt, &invite.CreatedAt); err != nil {
			return nil, err
		}
		invites = append(invites, &invite)
	}
	return invites, rows.Err()
}

func (r *postgresInviteRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM team_invites WHERE id = $1`, id)
	if err != nil {
		return classifyPQError(err)
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrInviteNotFound
	}
	return nil
}

func (r *postgresInviteRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM team_invites WHERE expires_at < NOW()`)
	if err != nil {
		return 0, classifyPQError(err)
	}
	return checkRowsAffected(result)
}
