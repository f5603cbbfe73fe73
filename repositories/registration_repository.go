package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adilbek99/volunteer-system/models"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationConflict = errors.New("active registration already exists")
	ErrEventCapacityReached = errors.New("event capacity reached")
)

type RegistrationRepository interface {
	// CreateWithinCapacity вставляет заявку в транзакции, которая сначала
	// блокирует строку события (SELECT .. FOR UPDATE). Конкурентные
	// регистрации на одно событие сериализуются на этой блокировке: вторая
	// транзакция ждёт фиксации первой и пересчитывает активные заявки уже с
	// её учётом, поэтому вместимость не может быть превышена.
	CreateWithinCapacity(ctx context.Context, registration *models.EventRegistration) error
	GetByID(ctx context.Context, id int) (*models.EventRegistration, error)
	FindActiveByEventAndUser(ctx context.Context, eventID, userID int) (*models.EventRegistration, error)
	ListByEvent(ctx context.Context, eventID int) ([]models.EventRegistration, error)
	ListByUser(ctx context.Context, userID int) ([]models.EventRegistration, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus) error
	CountActiveByEvent(ctx context.Context, eventID int) (int, error)
	Count(ctx context.Context, status *models.RegistrationStatus) (int, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) CreateWithinCapacity(ctx context.Context, registration *models.EventRegistration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Под READ COMMITTED подзапрос с COUNT видит только строки, зафиксированные
	// до начала statement-а, и две гонящиеся вставки обе прошли бы проверку.
	// Блокировка строки события ставит их в очередь: вторая транзакция
	// считает заявки уже после фиксации первой.
	var maxVolunteers int
	err = tx.QueryRowContext(ctx,
		`SELECT max_volunteers FROM events WHERE id = $1 FOR UPDATE`,
		registration.EventID,
	).Scan(&maxVolunteers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return classifyPQError(err)
	}

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND status IN ('pending', 'confirmed')`,
		registration.EventID,
	).Scan(&active)
	if err != nil {
		return classifyPQError(err)
	}
	if active >= maxVolunteers {
		return ErrEventCapacityReached
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO event_registrations (event_id, user_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		registration.EventID,
		registration.UserID,
		registration.Status,
	).Scan(&registration.ID, &registration.CreatedAt)
	if err != nil {
		if pqConstraint(err) == "event_registrations_active_user_key" {
			return ErrRegistrationConflict
		}
		if pqConstraint(err) == "event_registrations_user_id_fkey" {
			return ErrUserNotFound
		}
		return classifyPQError(err)
	}

	return tx.Commit()
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, id int) (*models.EventRegistration, error) {
	query := `
		SELECT id, event_id, user_id, status, created_at
		FROM event_registrations
		WHERE id = $1`

	reg := &models.EventRegistration{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, classifyPQError(err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) FindActiveByEventAndUser(ctx context.Context, eventID, userID int) (*models.EventRegistration, error) {
	query := `
		SELECT id, event_id, user_id, status, created_at
		FROM event_registrations
		WHERE event_id = $1 AND user_id = $2 AND status IN ('pending', 'confirmed')`

	reg := &models.EventRegistration{}
	err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, classifyPQError(err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByEvent(ctx context.Context, eventID int) ([]models.EventRegistration, error) {
	query := `
		SELECT r.id, r.event_id, r.user_id, r.status, r.created_at,
			u.id, u.first_name, u.last_name, u.email, u.role, u.is_active
		FROM event_registrations r
		JOIN users u ON r.user_id = u.id
		WHERE r.event_id = $1
		ORDER BY r.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	registrations := make([]models.EventRegistration, 0)
	for rows.Next() {
		var reg models.EventRegistration
		var user models.User
		err := rows.Scan(
			&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.CreatedAt,
			&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Role, &user.IsActive,
		)
		if err != nil {
			return nil, err
		}
		reg.User = &user
		registrations = append(registrations, reg)
	}
	return registrations, rows.Err()
}

func (r *postgresRegistrationRepository) ListByUser(ctx context.Context, userID int) ([]models.EventRegistration, error) {
	query := `
		SELECT r.id, r.event_id, r.user_id, r.status, r.created_at,
			e.id, e.title, e.event_date, e.end_date, e.max_volunteers, e.status
		FROM event_registrations r
		JOIN events e ON r.event_id = e.id
		WHERE r.user_id = $1
		ORDER BY e.event_date DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	registrations := make([]models.EventRegistration, 0)
	for rows.Next() {
		var reg models.EventRegistration
		var event models.Event
		err := rows.Scan(
			&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.CreatedAt,
			&event.ID, &event.Title, &event.EventDate, &event.EndDate, &event.MaxVolunteers, &event.Status,
		)
		if err != nil {
			return nil, err
		}
		reg.Event = &event
		registrations = append(registrations, reg)
	}
	return registrations, rows.Err()
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus) error {
	executor := SQLExecutor(r.db)
	if exec != nil {
		executor = exec
	}
	result, err := executor.ExecContext(ctx, `UPDATE event_registrations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return classifyPQError(err)
	}
	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

func (r *postgresRegistrationRepository) CountActiveByEvent(ctx context.Context, eventID int) (int, error) {
	query := `
		SELECT COUNT(*) FROM event_registrations
		WHERE event_id = $1 AND status IN ('pending', 'confirmed')`
	var count int
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, classifyPQError(err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) Count(ctx context.Context, status *models.RegistrationStatus) (int, error) {
	query := `SELECT COUNT(*) FROM event_registrations`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, classifyPQError(err)
	}
	return total, nil
}
