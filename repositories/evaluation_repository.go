package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Adilbek99/volunteer-system/models"
)

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrEvaluationConflict = errors.New("evaluation already exists for this pair")
)

type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	ListByEvent(ctx context.Context, eventID int) ([]models.Evaluation, error)
	ListReceivedByUser(ctx context.Context, userID int) ([]models.Evaluation, error)
	CreateAdmin(ctx context.Context, evaluation *models.AdminEvaluation) error
	ListAdminByUser(ctx context.Context, userID int) ([]models.AdminEvaluation, error)
}

type postgresEvaluationRepository struct {
	db *sql.DB
}

func NewPostgresEvaluationRepository(db *sql.DB) EvaluationRepository {
	return &postgresEvaluationRepository{db: db}
}

func (r *postgresEvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	query := `
		INSERT INTO evaluations (event_id, evaluator_id, evaluated_id, punctuality, teamwork, attitude, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		evaluation.EventID,
		evaluation.EvaluatorID,
		evaluation.EvaluatedID,
		evaluation.Punctuality,
		evaluation.Teamwork,
		evaluation.Attitude,
		evaluation.Comment,
	).Scan(&evaluation.ID, &evaluation.CreatedAt)

	if err != nil {
		if pqConstraint(err) == "evaluations_event_pair_key" {
			return ErrEvaluationConflict
		}
		return classifyPQError(err)
	}
	return nil
}

func (r *postgresEvaluationRepository) ListByEvent(ctx context.Context, eventID int) ([]models.Evaluation, error) {
	query := `
		SELECT id, event_id, evaluator_id, evaluated_id, punctuality, teamwork, attitude, comment, created_at
		FROM evaluations
		WHERE event_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, eventID)
}

func (r *postgresEvaluationRepository) ListReceivedByUser(ctx context.Context, userID int) ([]models.Evaluation, error) {
	query := `
		SELECT id, event_id, evaluator_id, evaluated_id, punctuality, teamwork, attitude, comment, created_at
		FROM evaluations
		WHERE evaluated_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *postgresEvaluationRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Evaluation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	evaluations := make([]models.Evaluation, 0)
	for rows.Next() {
		var e models.Evaluation
		err := rows.Scan(
			&e.ID, &e.EventID, &e.EvaluatorID, &e.EvaluatedID,
			&e.Punctuality, &e.Teamwork, &e.Attitude, &e.Comment, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		evaluations = append(evaluations, e)
	}
	return evaluations, rows.Err()
}

func (r *postgresEvaluationRepository) CreateAdmin(ctx context.Context, evaluation *models.AdminEvaluation) error {
	query := `
		INSERT INTO admin_evaluations (event_id, user_id, admin_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		evaluation.EventID,
		evaluation.UserID,
		evaluation.AdminID,
		evaluation.Rating,
		evaluation.Comment,
	).Scan(&evaluation.ID, &evaluation.CreatedAt)

	if err != nil {
		if pqConstraint(err) == "admin_evaluations_event_user_key" {
			return ErrEvaluationConflict
		}
		return classifyPQError(err)
	}
	return nil
}

func (r *postgresEvaluationRepository) ListAdminByUser(ctx context.Context, userID int) ([]models.AdminEvaluation, error) {
	query := `
		SELECT id, event_id, user_id, admin_id, rating, comment, created_at
		FROM admin_evaluations
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	evaluations := make([]models.AdminEvaluation, 0)
	for rows.Next() {
		var e models.AdminEvaluation
		err := rows.Scan(&e.ID, &e.EventID, &e.UserID, &e.AdminID, &e.Rating, &e.Comment, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		evaluations = append(evaluations, e)
	}
	return evaluations, rows.Err()
}
