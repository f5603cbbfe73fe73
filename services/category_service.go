package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"github.com/Adilbek99/volunteer-system/storage"
	"github.com/google/uuid"
)

type CategoryService interface {
	Create(ctx context.Context, input CategoryInput) (*models.Category, error)
	GetByID(ctx context.Context, categoryID int) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, categoryID int, input CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, categoryID int) error
	UploadImage(ctx context.Context, categoryID int, contentType string, reader io.Reader) (*models.Category, error)
}

type CategoryInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type categoryService struct {
	categoryRepo repositories.CategoryRepository
	uploader     storage.FileUploader
	logger       *slog.Logger
}

func NewCategoryService(categoryRepo repositories.CategoryRepository, uploader storage.FileUploader, logger *slog.Logger) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		uploader:     uploader,
		logger:       logger,
	}
}

func (s *categoryService) Create(ctx context.Context, input CategoryInput) (*models.Category, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	category := &models.Category{
		Name:        input.Name,
		Description: input.Description,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repositories.ErrCategoryNameConflict) {
			return nil, ErrCategoryNameConflict
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *categoryService) GetByID(ctx context.Context, categoryID int) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category %d: %w", categoryID, err)
	}
	populateCategoryImageURL(category, s.uploader)
	return category, nil
}

func (s *categoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	for i := range categories {
		populateCategoryImageURL(&categories[i], s.uploader)
	}
	return categories, nil
}

func (s *categoryService) Update(ctx context.Context, categoryID int, input CategoryInput) (*models.Category, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	category, err := s.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	category.Name = input.Name
	category.Description = input.Description

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if errors.Is(err, repositories.ErrCategoryNameConflict) {
			return nil, ErrCategoryNameConflict
		}
		return nil, fmt.Errorf("failed to update category %d: %w", categoryID, err)
	}
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, categoryID int) error {
	category, err := s.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}

	if err := s.categoryRepo.Delete(ctx, categoryID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCategoryNotFound):
			return ErrCategoryNotFound
		case errors.Is(err, repositories.ErrCategoryInUse):
			return ErrCategoryInUse
		}
		return fmt.Errorf("failed to delete category %d: %w", categoryID, err)
	}

	if category.ImageKey != nil && *category.ImageKey != "" {
		if delErr := s.uploader.Delete(ctx, *category.ImageKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete category image",
				slog.Int("category_id", categoryID), slog.String("key", *category.ImageKey), slog.Any("error", delErr))
		}
	}
	return nil
}

func (s *categoryService) UploadImage(ctx context.Context, categoryID int, contentType string, reader io.Reader) (*models.Category, error) {
	category, err := s.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	ext, err := getExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("categories/%d/%s%s", categoryID, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload category image: %w", err)
	}

	oldKey := category.ImageKey
	category.ImageKey = &result.Key
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to save category image key: %w", err)
	}

	if oldKey != nil && *oldKey != "" && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous category image",
				slog.Int("category_id", categoryID), slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	populateCategoryImageURL(category, s.uploader)
	return category, nil
}
