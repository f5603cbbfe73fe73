// Package terms реализует форму условий участия в событии: динамический
// набор вопросов, фиксированный вопрос о транспорте и порядок принятия.
// Принятие возможно только после прочтения текста условий (scroll-gate),
// валидного заполнения формы и явного согласия.
package terms

import (
	"errors"
	"strings"

	"github.com/Adilbek99/volunteer-system/models"
)

var (
	ErrNotAcceptable   = errors.New("terms form is not ready to be accepted")
	ErrAlreadyAccepted = errors.New("terms form has already been accepted")
)

// Порог прочтения: низ текста в пределах 5px либо прокручено не менее 90%.
const (
	scrollBottomSlackPx = 5.0
	scrollMinRatio      = 0.9
)

type Response struct {
	QuestionID int
	Text       string
	OptionIDs  []int
}

// VehicleAnswer — ответ на фиксированный вопрос о транспорте.
// Режимы взаимоисключающие: транспорт из профиля, введённый вручную или
// отказ от поездки на транспорте.
type VehicleAnswer struct {
	Mode  models.VehicleMode
	Model string
	Plate string
}

// Acceptance хранит состояние формы одного пользователя для одного события.
type Acceptance struct {
	questions []models.TermsQuestion

	profileModel string
	profilePlate string

	responses map[int]Response
	vehicle   *VehicleAnswer

	scrolled bool
	agreed   bool
	accepted bool
}

// NewAcceptance создаёт пустую форму. profileModel и profilePlate — данные
// транспорта из профиля пользователя, используются при Mode == profile.
func NewAcceptance(questions []models.TermsQuestion, profileModel, profilePlate string) *Acceptance {
	return &Acceptance{
		questions:    questions,
		profileModel: profileModel,
		profilePlate: profilePlate,
		responses:    make(map[int]Response),
	}
}

// ReadProgress отмечает форму прочитанной, когда позиция прокрутки достигает
// низа текста (с допуском 5px) или 90% высоты. Переход одноразовый:
// прокрутка вверх не сбрасывает флаг.
func (a *Acceptance) ReadProgress(scrollTop, clientHeight, scrollHeight float64) {
	if a.scrolled {
		return
	}
	if scrollTop+clientHeight >= scrollHeight-scrollBottomSlackPx {
		a.scrolled = true
		return
	}
	if scrollHeight > 0 && (scrollTop+clientHeight)/scrollHeight >= scrollMinRatio {
		a.scrolled = true
	}
}

func (a *Acceptance) Scrolled() bool { return a.scrolled }

func (a *Acceptance) SetResponse(resp Response) {
	a.responses[resp.QuestionID] = resp
}

func (a *Acceptance) SetVehicle(answer VehicleAnswer) {
	a.vehicle = &answer
}

func (a *Acceptance) SetAgreed(agreed bool) {
	a.agreed = agreed
}

func (a *Acceptance) Accepted() bool { return a.accepted }

// Valid проверяет форму: каждый обязательный вопрос должен иметь непустой
// текстовый ответ либо хотя бы один выбранный вариант; вопрос о транспорте
// обязателен всегда.
func (a *Acceptance) Valid() bool {
	for _, q := range a.questions {
		if !q.Required {
			continue
		}
		resp, ok := a.responses[q.ID]
		if !ok {
			return false
		}
		switch q.Type {
		case models.TermsQuestionText:
			if strings.TrimSpace(resp.Text) == "" {
				return false
			}
		default:
			if len(resp.OptionIDs) == 0 {
				return false
			}
		}
	}
	_, _, _, ok := a.ResolveVehicle()
	return ok
}

// ResolveVehicle возвращает итоговые данные транспорта. Для режима profile
// модель и номер берутся из профиля; для manual — из ответа. Ответ "да" без
// разрешимых модели и номера невалиден.
func (a *Acceptance) ResolveVehicle() (models.VehicleMode, string, string, bool) {
	if a.vehicle == nil {
		return "", "", "", false
	}
	switch a.vehicle.Mode {
	case models.VehicleModeNone:
		return models.VehicleModeNone, "", "", true
	case models.VehicleModeProfile:
		model := strings.TrimSpace(a.profileModel)
		plate := strings.TrimSpace(a.profilePlate)
		if model == "" || plate == "" {
			return "", "", "", false
		}
		return models.VehicleModeProfile, model, plate, true
	case models.VehicleModeManual:
		model := strings.TrimSpace(a.vehicle.Model)
		plate := strings.TrimSpace(a.vehicle.Plate)
		if model == "" || plate == "" {
			return "", "", "", false
		}
		return models.VehicleModeManual, model, plate, true
	}
	return "", "", "", false
}

// Accept вызывает onAccept не более одного раза и только когда условия
// прочитаны, форма валидна и согласие дано. Ошибка onAccept возвращается
// вызывающему, форма при этом остаётся непринятой и допускает повтор.
func (a *Acceptance) Accept(onAccept func() error) error {
	if a.accepted {
		return ErrAlreadyAccepted
	}
	if !a.scrolled || !a.agreed || !a.Valid() {
		return ErrNotAcceptable
	}
	if onAccept != nil {
		if err := onAccept(); err != nil {
			return err
		}
	}
	a.accepted = true
	return nil
}

// Responses возвращает ответы в порядке вопросов формы.
func (a *Acceptance) Responses() []models.TermsResponse {
	out := make([]models.TermsResponse, 0, len(a.responses))
	for _, q := range a.questions {
		resp, ok := a.responses[q.ID]
		if !ok {
			continue
		}
		var text *string
		if strings.TrimSpace(resp.Text) != "" {
			t := resp.Text
			text = &t
		}
		out = append(out, models.TermsResponse{
			QuestionID:   resp.QuestionID,
			ResponseText: text,
			OptionIDs:    resp.OptionIDs,
		})
	}
	return out
}
