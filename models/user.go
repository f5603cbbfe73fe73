package models

import "time"

// UserRole соответствует ENUM user_role в БД.
type UserRole string

const (
	RoleVolunteer UserRole = "volunteer"
	RoleCaptain   UserRole = "captain"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	ID           int      `json:"id" db:"id"`
	FirstName    string   `json:"first_name" db:"first_name"`
	LastName     string   `json:"last_name" db:"last_name"`
	Email        string   `json:"email" db:"email"`
	Phone        *string  `json:"phone,omitempty" db:"phone"`
	PasswordHash string   `json:"-" db:"password_hash"`
	Role         UserRole `json:"role" db:"role"`
	IsActive     bool     `json:"is_active" db:"is_active"`
	IsFirstLogin bool     `json:"is_first_login" db:"is_first_login"`

	// Данные транспорта используются при заполнении формы условий участия.
	VehicleModel *string `json:"vehicle_model,omitempty" db:"vehicle_model"`
	VehiclePlate *string `json:"vehicle_plate,omitempty" db:"vehicle_plate"`

	EmailConfirmed         bool       `json:"email_confirmed" db:"email_confirmed"`
	EmailConfirmationToken *string    `json:"-" db:"email_confirmation_token"`
	PasswordResetToken     *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpiresAt *time.Time `json:"-" db:"password_reset_expires_at"`

	AvatarKey *string `json:"-" db:"avatar_key"`
	AvatarURL *string `json:"avatar_url,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserFilter struct {
	Role     *UserRole
	IsActive *bool
	Search   string
	Page     int
	Limit    int
}

type UserListResponse struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}
