package models

import "time"

// RegistrationStatus соответствует ENUM registration_status в БД.
type RegistrationStatus string

const (
	RegistrationStatusPending     RegistrationStatus = "pending"
	RegistrationStatusConfirmed   RegistrationStatus = "confirmed"
	RegistrationStatusCancelled   RegistrationStatus = "cancelled"
	RegistrationStatusTransferred RegistrationStatus = "transferred"
)

// IsActive сообщает, занимает ли заявка место в событии.
func (s RegistrationStatus) IsActive() bool {
	return s == RegistrationStatusPending || s == RegistrationStatusConfirmed
}

type EventRegistration struct {
	ID        int                `json:"id" db:"id"`
	EventID   int                `json:"event_id" db:"event_id"`
	UserID    int                `json:"user_id" db:"user_id"`
	Status    RegistrationStatus `json:"status" db:"status"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`

	User  *User  `json:"user,omitempty" db:"-"`
	Event *Event `json:"event,omitempty" db:"-"`
}
