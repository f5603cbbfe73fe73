package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventAvailableSeats(t *testing.T) {
	tests := []struct {
		name        string
		max         int
		activeCount int
		want        int
	}{
		{"пустое событие", 20, 0, 20},
		{"частично заполнено", 20, 5, 15},
		{"полностью заполнено", 20, 20, 0},
		{"заявок больше вместимости", 20, 25, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := Event{MaxVolunteers: tt.max}
			assert.Equal(t, tt.want, event.AvailableSeats(tt.activeCount))
		})
	}
}
