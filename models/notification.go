package models

import "time"

type NotificationType string

const (
	NotificationRegistrationConfirmed NotificationType = "registration_confirmed"
	NotificationRegistrationCancelled NotificationType = "registration_cancelled"
	NotificationTeamJoined            NotificationType = "team_joined"
	NotificationTeamRemoved           NotificationType = "team_removed"
	NotificationCaptainPromoted       NotificationType = "captain_promoted"
	NotificationEvaluationReceived    NotificationType = "evaluation_received"
	NotificationEventUpdated          NotificationType = "event_updated"
)

type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`

	RelatedEventID *int `json:"related_event_id,omitempty" db:"related_event_id"`
	RelatedTeamID  *int `json:"related_team_id,omitempty" db:"related_team_id"`
}
