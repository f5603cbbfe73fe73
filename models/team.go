package models

import "time"

type TeamStatus string

const (
	TeamStatusActive   TeamStatus = "active"
	TeamStatusInactive TeamStatus = "inactive"
)

type Team struct {
	ID            int        `json:"id" db:"id"`
	EventID       int        `json:"event_id" db:"event_id"`
	Name          string     `json:"name" db:"name"`
	MaxVolunteers int        `json:"max_volunteers" db:"max_volunteers"`
	Status        TeamStatus `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	// CaptainID равен nil, когда команда осталась без капитана
	// (все активные участники выбыли). Это допустимое терминальное состояние.
	CaptainID *int `json:"captain_id,omitempty" db:"captain_id"`

	Captain *User        `json:"captain,omitempty" db:"-"`
	Members []TeamMember `json:"members,omitempty" db:"-"`
}
