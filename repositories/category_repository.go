package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Adilbek99/volunteer-system/models"
)

var (
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryNameConflict = errors.New("category name conflict")
	ErrCategoryInUse        = errors.New("category is referenced by events")
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id int) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id int) error
}

type postgresCategoryRepository struct {
	db *sql.DB
}

func NewPostgresCategoryRepository(db *sql.DB) CategoryRepository {
	return &postgresCategoryRepository{db: db}
}

func (r *postgresCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := `INSERT INTO categories (name, description, image_key) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, category.Name, category.Description, category.ImageKey).
		Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		if pqConstraint(err) == "categories_name_key" {
			return ErrCategoryNameConflict
		}
		return classifyPQError(err)
	}
	return nil
}

func (r *postgresCategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	query := `SELECT id, name, description, image_key, created_at FROM categories WHERE id = $1`

	category := &models.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID, &category.Name, &category.Description, &category.ImageKey, &category.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, classifyPQError(err)
	}
	return category, nil
}

func (r *postgresCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, image_key, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, classifyPQError(err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ImageKey, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *postgresCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	query := `UPDATE categories SET name = $1, description = $2, image_key = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, category.Name, category.Description, category.ImageKey, category.ID)
	if err != nil {
		if pqConstraint(err) == "categories_name_key" {
			return ErrCategoryNameConflict
		}
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresCategoryRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if pqConstraint(err) == "events_category_id_fkey" {
			return ErrCategoryInUse
		}
		return classifyPQError(err)
	}
	return r.requireAffected(result)
}

func (r *postgresCategoryRepository) requireAffected(result sql.Result) error {
	rowsAffected, err := checkRowsAffected(result)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
