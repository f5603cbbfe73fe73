package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"github.com/Adilbek99/volunteer-system/terms"
)

type TermsService interface {
	CreateQuestion(ctx context.Context, input CreateQuestionInput) (*models.TermsQuestion, error)
	DeleteQuestion(ctx context.Context, questionID int) error
	// GetForm возвращает вопросы формы и отметку о том, принимал ли
	// пользователь условия ранее.
	GetForm(ctx context.Context, eventID, userID int) ([]models.TermsQuestion, *models.TermsAcceptance, error)
	// Accept прогоняет присланное состояние формы через машину принятия:
	// условия должны быть прочитаны, обязательные вопросы отвечены, вопрос о
	// транспорте разрешён и согласие дано. Запись выполняется одной
	// транзакцией и ровно один раз.
	Accept(ctx context.Context, eventID, userID int, input AcceptTermsInput) (*models.TermsAcceptance, error)
}

type CreateQuestionInput struct {
	EventID      int                      `json:"event_id" validate:"required,gt=0"`
	QuestionText string                   `json:"question_text" validate:"required,min=1,max=500"`
	Type         models.TermsQuestionType `json:"type" validate:"required,oneof=text single_choice multi_choice"`
	Required     bool                     `json:"required"`
	Position     int                      `json:"position" validate:"gte=0"`
	Options      []string                 `json:"options,omitempty"`
}

type AcceptTermsInput struct {
	ScrollTop    float64              `json:"scroll_top"`
	ClientHeight float64              `json:"client_height"`
	ScrollHeight float64              `json:"scroll_height"`
	Agreed       bool                 `json:"agreed"`
	Vehicle      VehicleAnswerInput   `json:"vehicle"`
	Responses    []TermsResponseInput `json:"responses"`
}

type VehicleAnswerInput struct {
	Mode  models.VehicleMode `json:"mode" validate:"required,oneof=profile manual none"`
	Model string             `json:"model,omitempty"`
	Plate string             `json:"plate,omitempty"`
}

type TermsResponseInput struct {
	QuestionID int    `json:"question_id" validate:"required,gt=0"`
	Text       string `json:"text,omitempty"`
	OptionIDs  []int  `json:"option_ids,omitempty"`
}

type termsService struct {
	termsRepo repositories.TermsRepository
	eventRepo repositories.EventRepository
	userRepo  repositories.UserRepository
	logger    *slog.Logger
}

func NewTermsService(
	termsRepo repositories.TermsRepository,
	eventRepo repositories.EventRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) TermsService {
	return &termsService{
		termsRepo: termsRepo,
		eventRepo: eventRepo,
		userRepo:  userRepo,
		logger:    logger,
	}
}

func (s *termsService) CreateQuestion(ctx context.Context, input CreateQuestionInput) (*models.TermsQuestion, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if input.Type != models.TermsQuestionText && len(input.Options) == 0 {
		return nil, ErrQuestionOptionsMissing
	}

	question := &models.TermsQuestion{
		EventID:      input.EventID,
		QuestionText: input.QuestionText,
		Type:         input.Type,
		Required:     input.Required,
		Position:     input.Position,
	}
	for i, text := range input.Options {
		question.Options = append(question.Options, models.TermsOption{
			OptionText: text,
			Position:   i,
		})
	}

	if err := s.termsRepo.CreateQuestion(ctx, question); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to create terms question: %w", err)
	}
	return question, nil
}

func (s *termsService) DeleteQuestion(ctx context.Context, questionID int) error {
	if err := s.termsRepo.DeleteQuestion(ctx, questionID); err != nil {
		if errors.Is(err, repositories.ErrTermsQuestionNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete terms question %d: %w", questionID, err)
	}
	return nil
}

func (s *termsService) GetForm(ctx context.Context, eventID, userID int) ([]models.TermsQuestion, *models.TermsAcceptance, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, nil, ErrEventNotFound
		}
		return nil, nil, fmt.Errorf("failed to get event %d: %w", eventID, err)
	}

	questions, err := s.termsRepo.ListQuestionsByEvent(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list terms questions: %w", err)
	}

	acceptance, err := s.termsRepo.GetAcceptance(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrTermsAcceptanceNotFound) {
			return questions, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get terms acceptance: %w", err)
	}
	return questions, acceptance, nil
}

func (s *termsService) Accept(ctx context.Context, eventID, userID int, input AcceptTermsInput) (*models.TermsAcceptance, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if _, err := s.termsRepo.GetAcceptance(ctx, eventID, userID); err == nil {
		return nil, ErrTermsAlreadyAccepted
	} else if !errors.Is(err, repositories.ErrTermsAcceptanceNotFound) {
		return nil, fmt.Errorf("failed to check terms acceptance: %w", err)
	}

	questions, err := s.termsRepo.ListQuestionsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list terms questions: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	form := terms.NewAcceptance(questions, derefString(user.VehicleModel), derefString(user.VehiclePlate))
	form.ReadProgress(input.ScrollTop, input.ClientHeight, input.ScrollHeight)
	for _, resp := range input.Responses {
		form.SetResponse(terms.Response{
			QuestionID: resp.QuestionID,
			Text:       resp.Text,
			OptionIDs:  resp.OptionIDs,
		})
	}
	form.SetVehicle(terms.VehicleAnswer{
		Mode:  input.Vehicle.Mode,
		Model: input.Vehicle.Model,
		Plate: input.Vehicle.Plate,
	})
	form.SetAgreed(input.Agreed)

	acceptance := &models.TermsAcceptance{
		EventID: eventID,
		UserID:  userID,
	}

	err = form.Accept(func() error {
		mode, model, plate, ok := form.ResolveVehicle()
		if !ok {
			return ErrVehicleDataMissing
		}
		acceptance.VehicleMode = mode
		acceptance.VehicleModel = strPtr(model)
		acceptance.VehiclePlate = strPtr(plate)
		return s.termsRepo.SaveAcceptance(ctx, acceptance, form.Responses())
	})
	if err != nil {
		switch {
		case errors.Is(err, terms.ErrAlreadyAccepted):
			return nil, ErrTermsAlreadyAccepted
		case errors.Is(err, terms.ErrNotAcceptable):
			return nil, ErrTermsFormIncomplete
		case errors.Is(err, repositories.ErrTermsAcceptanceConflict):
			return nil, ErrTermsAlreadyAccepted
		}
		return nil, fmt.Errorf("failed to accept terms for event %d: %w", eventID, err)
	}

	s.logger.InfoContext(ctx, "terms accepted",
		slog.Int("event_id", eventID), slog.Int("user_id", userID), slog.String("vehicle_mode", string(acceptance.VehicleMode)))
	return acceptance, nil
}
