package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adilbek99/volunteer-system/models"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrEventCategoryInvalid = errors.New("event category invalid")
)

type EventFilter struct {
	Status     *models.EventStatus
	CategoryID *int
	From       *time.Time
	To         *time.Time
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EventStatus) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, filter EventFilter) ([]models.Event, error)
	// ListDue возвращает события, статус которых должен быть переведён
	// планировщиком: published с наступившей датой начала и in_progress
	// с прошедшей датой окончания.
	ListDue(ctx context.Context, now time.Time) ([]models.Event, error)
	Count(ctx context.Context, status *models.EventStatus) (int, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

const eventColumns = `e.id, e.title, e.description, e.category_id, e.location, e.event_date, e.end_date,
	e.max_volunteers, e.status, e.created_by, e.image_key, e.created_at`

func (r *postgresEventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, description, category_id, location, event_date, end_date, max_volunteers, status, created_by, image_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.CategoryID,
		event.Location,
		event.EventDate,
		event.EndDate,
		event.MaxVolunteers,
		event.Status,
		event.CreatedBy,
		event.ImageKey,
	).Scan(&event.ID, &event.CreatedAt)

	if err != nil {
		if pqConstraint(err) == "events_category_id_fkey" {
			return ErrEventCategoryInvalid
		}
		return classifyPQError(err)
	}
	return nil
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s,
			(SELECT COUNT(*) FROM event_registrations r
			 WHERE r.event_id = e.id AND r.status IN ('pending', 'confirmed'))
		FROM events e
		WHERE e.id = $1`, eventColumns)

	event := &models.Event{}
	err := scanEventRow(r.db.QueryRowContext(ctx, query, id), event)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, classifyPQError(err)
	}
	return event, nil
}

func (r *postgresEventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events SET
			title = $1,
			description = $2,
			category_id = $3,
			location = $4,
			event_date = $5,
			end_date = $6,
			max_volunteers = $7,
			status = $8,
			image_key = $9
		WHERE id = $10`

	result, err := r.db.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.CategoryID,
		event.Location,
		event.EventDate,
		event.EndDate,
		event.MaxVolunteers,
		event.Status,
		event.ImageKey,
		event.ID,
	)
	if err != nil {
		if pqConstraint(err) == "events_category_id_fkey" {
			return ErrEventCategoryInvalid
		}
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresEventRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EventStatus) error {
	executor := SQLExecutor(r.db)
	if exec != nil {
		executor = exec
	}
	result, err := executor.ExecContext(ctx, `UPDATE events SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresEventRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresEventRepository) List(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("e.category_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("e.event_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("e.event_date <= $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
			(SELECT COUNT(*) FROM event_registrations r
			 WHERE r.event_id = e.id AND r.status IN ('pending', 'confirmed'))
		FROM events e
		%s
		ORDER BY e.event_date ASC`, eventColumns, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var event models.Event
		if err := scanEventRow(rows, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) ListDue(ctx context.Context, now time.Time) ([]models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s, 0
		FROM events e
		WHERE (e.status = 'published' AND e.event_date <= $1)
		   OR (e.status = 'in_progress' AND e.end_date <= $1)
		ORDER BY e.event_date ASC`, eventColumns)

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var event models.Event
		if err := scanEventRow(rows, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) Count(ctx context.Context, status *models.EventStatus) (int, error) {
	query := `SELECT COUNT(*) FROM events`
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

func scanEventRow(row rowScanner, event *models.Event) error {
	return row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.CategoryID,
		&event.Location,
		&event.EventDate,
		&event.EndDate,
		&event.MaxVolunteers,
		&event.Status,
		&event.CreatedBy,
		&event.ImageKey,
		&event.CreatedAt,
		&event.ActiveRegistrations,
	)
}

func (r *postgresEventRepository) requireAffected(result sql.Result) error {
	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}
