package services

import (
	"testing"
	"time"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEventStatusTransition(t *testing.T) {
	tests := []struct {
		from  models.EventStatus
		to    models.EventStatus
		valid bool
	}{
		{models.EventStatusDraft, models.EventStatusPublished, true},
		{models.EventStatusDraft, models.EventStatusCancelled, true},
		{models.EventStatusDraft, models.EventStatusInProgress, false},
		{models.EventStatusDraft, models.EventStatusCompleted, false},
		{models.EventStatusPublished, models.EventStatusInProgress, true},
		{models.EventStatusPublished, models.EventStatusCancelled, true},
		{models.EventStatusPublished, models.EventStatusDraft, false},
		{models.EventStatusInProgress, models.EventStatusCompleted, true},
		{models.EventStatusInProgress, models.EventStatusCancelled, true},
		{models.EventStatusInProgress, models.EventStatusPublished, false},
		{models.EventStatusCompleted, models.EventStatusCancelled, false},
		{models.EventStatusCancelled, models.EventStatusPublished, false},
		// Переход в тот же статус всегда допустим.
		{models.EventStatusCompleted, models.EventStatusCompleted, true},
		{models.EventStatusDraft, models.EventStatusDraft, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.valid, isValidEventStatusTransition(tt.from, tt.to))
		})
	}
}

func TestValidateEventDates(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	assert.NoError(t, validateEventDates(start, start.Add(8*time.Hour)))
	assert.NoError(t, validateEventDates(start, start)) // однодневное событие
	assert.ErrorIs(t, validateEventDates(start, start.Add(-time.Hour)), ErrEventInvalidDateRange)
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := generateSecureToken(16)
	require.NoError(t, err)
	// hex-кодирование удваивает длину
	assert.Len(t, token, 32)

	other, err := generateSecureToken(16)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestDerefString(t *testing.T) {
	assert.Equal(t, "", derefString(nil))
	value := "abc"
	assert.Equal(t, "abc", derefString(&value))
}
