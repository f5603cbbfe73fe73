package models

import "time"

// Evaluation — взаимная оценка волонтёров после завершённого события.
type Evaluation struct {
	ID          int       `json:"id" db:"id"`
	EventID     int       `json:"event_id" db:"event_id"`
	EvaluatorID int       `json:"evaluator_id" db:"evaluator_id"`
	EvaluatedID int       `json:"evaluated_id" db:"evaluated_id"`
	Punctuality int       `json:"punctuality" db:"punctuality"`
	Teamwork    int       `json:"teamwork" db:"teamwork"`
	Attitude    int       `json:"attitude" db:"attitude"`
	Comment     *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	Evaluator *User `json:"evaluator,omitempty" db:"-"`
	Evaluated *User `json:"evaluated,omitempty" db:"-"`
}

// AdminEvaluation — оценка волонтёра администратором по итогам события.
type AdminEvaluation struct {
	ID        int       `json:"id" db:"id"`
	EventID   int       `json:"event_id" db:"event_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	AdminID   int       `json:"admin_id" db:"admin_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
