package models

import "time"

// TermsQuestionType соответствует ENUM terms_question_type в БД.
type TermsQuestionType string

const (
	TermsQuestionText   TermsQuestionType = "text"
	TermsQuestionSingle TermsQuestionType = "single_choice"
	TermsQuestionMulti  TermsQuestionType = "multi_choice"
)

type TermsQuestion struct {
	ID           int               `json:"id" db:"id"`
	EventID      int               `json:"event_id" db:"event_id"`
	QuestionText string            `json:"question_text" db:"question_text"`
	Type         TermsQuestionType `json:"type" db:"type"`
	Required     bool              `json:"required" db:"required"`
	Position     int               `json:"position" db:"position"`

	Options []TermsOption `json:"options,omitempty" db:"-"`
}

type TermsOption struct {
	ID         int    `json:"id" db:"id"`
	QuestionID int    `json:"question_id" db:"question_id"`
	OptionText string `json:"option_text" db:"option_text"`
	Position   int    `json:"position" db:"position"`
}

type TermsResponse struct {
	QuestionID   int     `json:"question_id" db:"question_id"`
	ResponseText *string `json:"response_text,omitempty" db:"response_text"`
	OptionIDs    []int   `json:"option_ids,omitempty" db:"-"`
}

// VehicleMode — ответ на фиксированный вопрос о транспорте.
type VehicleMode string

const (
	VehicleModeProfile VehicleMode = "profile" // данные из профиля пользователя
	VehicleModeManual  VehicleMode = "manual"  // модель и номер вводятся вручную
	VehicleModeNone    VehicleMode = "none"
)

type TermsAcceptance struct {
	ID           int         `json:"id" db:"id"`
	EventID      int         `json:"event_id" db:"event_id"`
	UserID       int         `json:"user_id" db:"user_id"`
	VehicleMode  VehicleMode `json:"vehicle_mode" db:"vehicle_mode"`
	VehicleModel *string     `json:"vehicle_model,omitempty" db:"vehicle_model"`
	VehiclePlate *string     `json:"vehicle_plate,omitempty" db:"vehicle_plate"`
	AcceptedAt   time.Time   `json:"accepted_at" db:"accepted_at"`
}
