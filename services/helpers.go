package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/storage"
	"github.com/go-playground/validator/v10"
)

// Единый валидатор входных структур для всех сервисов.
var validate = validator.New()

// --- Общие хелперы ---

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func validateEventDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrEventInvalidDateRange
	}
	if end.Before(start) {
		return fmt.Errorf("%w: start %s, end %s", ErrEventInvalidDateRange,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

func isValidEventStatusTransition(current, next models.EventStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.EventStatus][]models.EventStatus{
		models.EventStatusDraft:      {models.EventStatusPublished, models.EventStatusCancelled},
		models.EventStatusPublished:  {models.EventStatusInProgress, models.EventStatusCancelled},
		models.EventStatusInProgress: {models.EventStatusCompleted, models.EventStatusCancelled},
		models.EventStatusCompleted:  {},
		models.EventStatusCancelled:  {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// --- Хелперы для заполнения публичных URL изображений ---

func populateUserDetails(user *models.User, uploader storage.FileUploader) {
	if user == nil {
		return
	}
	user.PasswordHash = ""
	if user.AvatarKey != nil && *user.AvatarKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*user.AvatarKey)
		if url != "" {
			user.AvatarURL = &url
		}
	}
}

func populateEventImageURL(event *models.Event, uploader storage.FileUploader) {
	if event != nil && event.ImageKey != nil && *event.ImageKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*event.ImageKey)
		if url != "" {
			event.ImageURL = &url
		}
	}
}

func populateCategoryImageURL(category *models.Category, uploader storage.FileUploader) {
	if category != nil && category.ImageKey != nil && *category.ImageKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*category.ImageKey)
		if url != "" {
			category.ImageURL = &url
		}
	}
}

func getExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: '%s'", contentType)
	}
}
