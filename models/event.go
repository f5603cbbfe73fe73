package models

import "time"

// EventStatus представляет статусы события, соответствующие ENUM в БД.
type EventStatus string

const (
	EventStatusDraft      EventStatus = "draft"
	EventStatusPublished  EventStatus = "published"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusCancelled  EventStatus = "cancelled"
)

type Event struct {
	ID            int         `json:"id" db:"id"`
	Title         string      `json:"title" db:"title"`
	Description   *string     `json:"description,omitempty" db:"description"`
	CategoryID    *int        `json:"category_id,omitempty" db:"category_id"`
	Location      *string     `json:"location,omitempty" db:"location"`
	EventDate     time.Time   `json:"event_date" db:"event_date"`
	EndDate       time.Time   `json:"end_date" db:"end_date"`
	MaxVolunteers int         `json:"max_volunteers" db:"max_volunteers"`
	Status        EventStatus `json:"status" db:"status"`
	CreatedBy     int         `json:"created_by" db:"created_by"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`

	ImageKey *string `json:"-" db:"image_key"`
	ImageURL *string `json:"image_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Category       *Category           `json:"category,omitempty" db:"-"`
	Registrations  []EventRegistration `json:"registrations,omitempty" db:"-"`
	Teams          []Team              `json:"teams,omitempty" db:"-"`
	TermsQuestions []TermsQuestion     `json:"terms_questions,omitempty" db:"-"`

	// Заполняется при выборке списков.
	ActiveRegistrations int `json:"active_registrations" db:"-"`
}

// AvailableSeats возвращает количество свободных мест для указанного числа
// активных заявок. Никогда не бывает отрицательным: при превышении
// вместимости возвращает 0.
func (e Event) AvailableSeats(activeCount int) int {
	seats := e.MaxVolunteers - activeCount
	if seats < 0 {
		return 0
	}
	return seats
}
