package terms

import (
	"errors"
	"testing"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReadyAcceptance(questions []models.TermsQuestion) *Acceptance {
	a := NewAcceptance(questions, "", "")
	a.ReadProgress(900, 100, 1000)
	a.SetVehicle(VehicleAnswer{Mode: models.VehicleModeNone})
	a.SetAgreed(true)
	return a
}

func TestReadProgress(t *testing.T) {
	tests := []struct {
		name         string
		scrollTop    float64
		clientHeight float64
		scrollHeight float64
		wantScrolled bool
	}{
		{"середина текста", 100, 100, 1000, false},
		{"точно низ", 900, 100, 1000, true},
		{"низ в пределах 5px", 896, 100, 1000, true},
		{"ровно 90 процентов", 800, 100, 1000, true},
		{"чуть меньше 90 процентов", 780, 100, 1000, false},
		{"нулевая высота", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAcceptance(nil, "", "")
			a.ReadProgress(tt.scrollTop, tt.clientHeight, tt.scrollHeight)
			assert.Equal(t, tt.wantScrolled, a.Scrolled())
		})
	}
}

func TestReadProgressDoesNotReset(t *testing.T) {
	a := NewAcceptance(nil, "", "")
	a.ReadProgress(900, 100, 1000)
	require.True(t, a.Scrolled())

	// Прокрутка обратно наверх не сбрасывает флаг.
	a.ReadProgress(0, 100, 1000)
	assert.True(t, a.Scrolled())
}

func TestResolveVehicle(t *testing.T) {
	tests := []struct {
		name         string
		profileModel string
		profilePlate string
		answer       *VehicleAnswer
		wantMode     models.VehicleMode
		wantOK       bool
	}{
		{
			name:   "без ответа",
			answer: nil,
			wantOK: false,
		},
		{
			name:     "режим none",
			answer:   &VehicleAnswer{Mode: models.VehicleModeNone},
			wantMode: models.VehicleModeNone,
			wantOK:   true,
		},
		{
			name:         "из профиля",
			profileModel: "Toyota Hiace",
			profilePlate: "123ABC01",
			answer:       &VehicleAnswer{Mode: models.VehicleModeProfile},
			wantMode:     models.VehicleModeProfile,
			wantOK:       true,
		},
		{
			name:   "из профиля, но профиль пуст",
			answer: &VehicleAnswer{Mode: models.VehicleModeProfile},
			wantOK: false,
		},
		{
			name:         "из профиля, номер пробельный",
			profileModel: "Toyota Hiace",
			profilePlate: "   ",
			answer:       &VehicleAnswer{Mode: models.VehicleModeProfile},
			wantOK:       false,
		},
		{
			name:     "вручную",
			answer:   &VehicleAnswer{Mode: models.VehicleModeManual, Model: "Gazelle", Plate: "777XYZ02"},
			wantMode: models.VehicleModeManual,
			wantOK:   true,
		},
		{
			name:   "вручную без номера",
			answer: &VehicleAnswer{Mode: models.VehicleModeManual, Model: "Gazelle"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAcceptance(nil, tt.profileModel, tt.profilePlate)
			if tt.answer != nil {
				a.SetVehicle(*tt.answer)
			}
			mode, model, plate, ok := a.ResolveVehicle()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantMode, mode)
				if tt.wantMode != models.VehicleModeNone {
					assert.NotEmpty(t, model)
					assert.NotEmpty(t, plate)
				}
			}
		})
	}
}

func TestValidRequiredQuestions(t *testing.T) {
	questions := []models.TermsQuestion{
		{ID: 1, Type: models.TermsQuestionText, Required: true},
		{ID: 2, Type: models.TermsQuestionSingle, Required: true},
		{ID: 3, Type: models.TermsQuestionText, Required: false},
	}

	a := NewAcceptance(questions, "", "")
	a.SetVehicle(VehicleAnswer{Mode: models.VehicleModeNone})

	// Нет ответов на обязательные вопросы.
	assert.False(t, a.Valid())

	a.SetResponse(Response{QuestionID: 1, Text: "   "})
	a.SetResponse(Response{QuestionID: 2, OptionIDs: []int{10}})
	// Пробельный текст не считается ответом.
	assert.False(t, a.Valid())

	a.SetResponse(Response{QuestionID: 1, Text: "да, участвовал"})
	// Необязательный вопрос 3 можно не заполнять.
	assert.True(t, a.Valid())
}

func TestAcceptRequiresAllGates(t *testing.T) {
	t.Run("не прочитано", func(t *testing.T) {
		a := NewAcceptance(nil, "", "")
		a.SetVehicle(VehicleAnswer{Mode: models.VehicleModeNone})
		a.SetAgreed(true)
		assert.ErrorIs(t, a.Accept(nil), ErrNotAcceptable)
	})

	t.Run("нет согласия", func(t *testing.T) {
		a := NewAcceptance(nil, "", "")
		a.ReadProgress(900, 100, 1000)
		a.SetVehicle(VehicleAnswer{Mode: models.VehicleModeNone})
		assert.ErrorIs(t, a.Accept(nil), ErrNotAcceptable)
	})

	t.Run("нет ответа о транспорте", func(t *testing.T) {
		a := NewAcceptance(nil, "", "")
		a.ReadProgress(900, 100, 1000)
		a.SetAgreed(true)
		assert.ErrorIs(t, a.Accept(nil), ErrNotAcceptable)
	})

	t.Run("все условия выполнены", func(t *testing.T) {
		a := newReadyAcceptance(nil)
		require.NoError(t, a.Accept(nil))
		assert.True(t, a.Accepted())
	})
}

func TestAcceptOnlyOnce(t *testing.T) {
	a := newReadyAcceptance(nil)

	calls := 0
	onAccept := func() error {
		calls++
		return nil
	}

	require.NoError(t, a.Accept(onAccept))
	assert.ErrorIs(t, a.Accept(onAccept), ErrAlreadyAccepted)
	assert.Equal(t, 1, calls)
}

func TestAcceptCallbackErrorLeavesFormUnaccepted(t *testing.T) {
	a := newReadyAcceptance(nil)

	wantErr := errors.New("storage unavailable")
	err := a.Accept(func() error { return wantErr })
	require.ErrorIs(t, err, wantErr)
	assert.False(t, a.Accepted())

	// Повторная попытка после устранения сбоя проходит.
	require.NoError(t, a.Accept(nil))
	assert.True(t, a.Accepted())
}

func TestResponsesOrderedByQuestions(t *testing.T) {
	questions := []models.TermsQuestion{
		{ID: 5, Type: models.TermsQuestionText, Required: true},
		{ID: 2, Type: models.TermsQuestionMulti, Required: true},
	}
	a := NewAcceptance(questions, "", "")
	a.SetResponse(Response{QuestionID: 2, OptionIDs: []int{7, 8}})
	a.SetResponse(Response{QuestionID: 5, Text: "ответ"})

	responses := a.Responses()
	require.Len(t, responses, 2)
	assert.Equal(t, 5, responses[0].QuestionID)
	assert.Equal(t, 2, responses[1].QuestionID)
	require.NotNil(t, responses[0].ResponseText)
	assert.Equal(t, "ответ", *responses[0].ResponseText)
	assert.Nil(t, responses[1].ResponseText)
}
