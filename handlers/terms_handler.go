package handlers

import (
	"net/http"

	"github.com/Adilbek99/volunteer-system/middleware"
	"github.com/Adilbek99/volunteer-system/services"
)

type TermsHandler struct {
	termsService services.TermsService
}

func NewTermsHandler(termsService services.TermsService) *TermsHandler {
	return &TermsHandler{termsService: termsService}
}

// GetForm отдаёт форму условий участия: вопросы события и принятие текущего
// пользователя, если оно уже есть.
func (h *TermsHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	eventID, err := readIDParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	questions, acceptance, err := h.termsService.GetForm(r.Context(), eventID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"questions":  questions,
		"acceptance": acceptance,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Accept принимает условия участия. Требуется дочитать текст до конца
// (scroll_top + client_height против scroll_height), ответить на обязательные
// вопросы и явно согласиться. Повторное принятие возвращает 409.
func (h *TermsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	eventID, err := readIDParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.AcceptTermsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	acceptance, err := h.termsService.Accept(r.Context(), eventID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"acceptance": acceptance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TermsHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var input services.CreateQuestionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	question, err := h.termsService.CreateQuestion(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"question": question}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TermsHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, err := readIDParam(r, "questionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.termsService.DeleteQuestion(r.Context(), questionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
