package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adilbek99/volunteer-system/models"
)

var (
	ErrTermsQuestionNotFound   = errors.New("terms question not found")
	ErrTermsAcceptanceNotFound = errors.New("terms acceptance not found")
	ErrTermsAcceptanceConflict = errors.New("terms already accepted for this event")
)

type TermsRepository interface {
	CreateQuestion(ctx context.Context, question *models.TermsQuestion) error
	DeleteQuestion(ctx context.Context, id int) error
	ListQuestionsByEvent(ctx context.Context, eventID int) ([]models.TermsQuestion, error)
	// SaveAcceptance записывает факт принятия условий вместе с ответами
	// пользователя в одной транзакции.
	SaveAcceptance(ctx context.Context, acceptance *models.TermsAcceptance, responses []models.TermsResponse) error
	GetAcceptance(ctx context.Context, eventID, userID int) (*models.TermsAcceptance, error)
}

type postgresTermsRepository struct {
	db *sql.DB
}

func NewPostgresTermsRepository(db *sql.DB) TermsRepository {
	return &postgresTermsRepository{db: db}
}

func (r *postgresTermsRepository) CreateQuestion(ctx context.Context, question *models.TermsQuestion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO event_terms_questions (event_id, question_text, type, required, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err = tx.QueryRowContext(ctx, query,
		question.EventID,
		question.QuestionText,
		question.Type,
		question.Required,
		question.Position,
	).Scan(&question.ID)
	if err != nil {
		if pqConstraint(err) == "event_terms_questions_event_id_fkey" {
			return ErrEventNotFound
		}
		return classifyPQError(err)
	}

	for i := range question.Options {
		opt := &question.Options[i]
		opt.QuestionID = question.ID
		err = tx.QueryRowContext(ctx,
			`INSERT INTO event_terms_options (question_id, option_text, position) VALUES ($1, $2, $3) RETURNING id`,
			opt.QuestionID, opt.OptionText, opt.Position,
		).Scan(&opt.ID)
		if err != nil {
			return classifyPQError(err)
		}
	}

	return tx.Commit()
}

func (r *postgresTermsRepository) DeleteQuestion(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM event_terms_questions WHERE id = $1`, id)
	if err != nil {
		return classifyPQError(err)
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrTermsQuestionNotFound
	}
	return nil
}

func (r *postgresTermsRepository) ListQuestionsByEvent(ctx context.Context, eventID int) ([]models.TermsQuestion, error) {
	query := `
		SELECT id, event_id, question_text, type, required, position
		FROM event_terms_questions
		WHERE event_id = $1
		ORDER BY position ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	questions := make([]models.TermsQuestion, 0)
	byID := make(map[int]*models.TermsQuestion)
	for rows.Next() {
		var q models.TermsQuestion
		if err := rows.Scan(&q.ID, &q.EventID, &q.QuestionText, &q.Type, &q.Required, &q.Position); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return questions, nil
	}
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	optQuery := `
		SELECT o.id, o.question_id, o.option_text, o.position
		FROM event_terms_options o
		JOIN event_terms_questions q ON o.question_id = q.id
		WHERE q.event_id = $1
		ORDER BY o.position ASC, o.id ASC`

	optRows, err := r.db.QueryContext(ctx, optQuery, eventID)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt models.TermsOption
		if err := optRows.Scan(&opt.ID, &opt.QuestionID, &opt.OptionText, &opt.Position); err != nil {
			return nil, err
		}
		if q, ok := byID[opt.QuestionID]; ok {
			q.Options = append(q.Options, opt)
		}
	}
	return questions, optRows.Err()
}

func (r *postgresTermsRepository) SaveAcceptance(ctx context.Context, acceptance *models.TermsAcceptance, responses []models.TermsResponse) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO event_terms_acceptances (event_id, user_id, vehicle_mode, vehicle_model, vehicle_plate)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, accepted_at`

	err = tx.QueryRowContext(ctx, query,
		acceptance.EventID,
		acceptance.UserID,
		acceptance.VehicleMode,
		acceptance.VehicleModel,
		acceptance.VehiclePlate,
	).Scan(&acceptance.ID, &acceptance.AcceptedAt)
	if err != nil {
		if pqConstraint(err) == "event_terms_acceptances_event_user_key" {
			return ErrTermsAcceptanceConflict
		}
		return classifyPQError(err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO event_terms_responses (acceptance_id, question_id, response_text, option_id) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("failed to prepare response insert: %w", err)
	}
	defer stmt.Close()

	for _, resp := range responses {
		if len(resp.OptionIDs) == 0 {
			if _, err := stmt.ExecContext(ctx, acceptance.ID, resp.QuestionID, resp.ResponseText, nil); err != nil {
				return classifyPQError(err)
			}
			continue
		}
		// Каждый выбранный вариант множественного выбора хранится отдельной строкой.
		for _, optionID := range resp.OptionIDs {
			if _, err := stmt.ExecContext(ctx, acceptance.ID, resp.QuestionID, nil, optionID); err != nil {
				return classifyPQError(err)
			}
		}
	}

	return tx.Commit()
}

func (r *postgresTermsRepository) GetAcceptance(ctx context.Context, eventID, userID int) (*models.TermsAcceptance, error) {
	query := `
		SELECT id, event_id, user_id, vehicle_mode, vehicle_model, vehicle_plate, accepted_at
		FROM event_terms_acceptances
		WHERE event_id = $1 AND user_id = $2`

	acceptance := &models.TermsAcceptance{}
	err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(
		&acceptance.ID, &acceptance.EventID, &acceptance.UserID,
		&acceptance.VehicleMode, &acceptance.VehicleModel, &acceptance.VehiclePlate,
		&acceptance.AcceptedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTermsAcceptanceNotFound
		}
		return nil, classifyPQError(err)
	}
	return acceptance, nil
}
