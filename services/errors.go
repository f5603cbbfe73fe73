package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrAccountDeactivated     = errors.New("account is deactivated")
	ErrEventNotPublished      = errors.New("event is not open for registration")
	ErrEventAlreadyStarted    = errors.New("event has already started")
	ErrEventNotCompleted      = errors.New("event is not completed yet")
	ErrEventFull              = errors.New("event has no available seats")
	ErrTeamFull               = errors.New("team has no available seats")
	ErrTeamNameRequired       = errors.New("team name is required")
	ErrUserAlreadyInTeam      = errors.New("user is already an active member of this team")
	ErrUserNotRegistered      = errors.New("user has no active registration for this event")
	ErrSelfEvaluation         = errors.New("cannot evaluate yourself")
	ErrInviteExpired          = errors.New("invite has expired")
	ErrTermsNotAccepted       = errors.New("participation terms must be accepted first")
	ErrTermsAlreadyAccepted   = errors.New("participation terms already accepted")
	ErrTermsFormIncomplete    = errors.New("participation terms form is incomplete")
	ErrVehicleDataMissing     = errors.New("vehicle model and plate are required")
	ErrQuestionOptionsMissing = errors.New("choice question requires at least one option")

	// Ошибки конфликтов
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrTeamNameConflict     = errors.New("team name is already in use for this event")
	ErrRegistrationConflict = errors.New("user is already registered for this event")
	ErrEvaluationConflict   = errors.New("evaluation already submitted")
	ErrCategoryNameConflict = errors.New("category name is already in use")
	ErrCategoryInUse        = errors.New("category is used by existing events")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")
	ErrSelfLeaveForbidden     = errors.New("only the team captain or the member themselves can perform this action")
	ErrAdminActionForbidden   = errors.New("only an administrator can perform this action")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound         = errors.New("user not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrTeamMemberNotFound   = errors.New("team member not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrQuestionNotFound     = errors.New("terms question not found")

	// Ошибки статусов событий
	ErrEventInvalidDateRange        = errors.New("event end date must not be before start date")
	ErrEventInvalidCapacity         = errors.New("event max volunteers must be positive")
	ErrEventInvalidStatus           = errors.New("invalid event status provided")
	ErrEventInvalidStatusTransition = errors.New("invalid event status transition")
)
