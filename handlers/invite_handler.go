package handlers

import (
	"errors"
	"net/http"

	"github.com/Adilbek99/volunteer-system/middleware"
	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/services"
)

type InviteHandler struct {
	inviteService services.InviteService
}

func NewInviteHandler(inviteService services.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := currentActor(w, r)
	if !ok {
		return
	}

	teamID, err := readIDParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Тело запроса необязательно: адрес указывают, когда ссылку нужно
	// отправить письмом, а не скопировать вручную.
	var input struct {
		Email string `json:"email"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	invite, err := h.inviteService.CreateInvite(r.Context(), teamID, actorID, role == models.RoleAdmin, input.Email)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"invite": invite}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InviteHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		badRequestResponse(w, r, errors.New("invite token is required"))
		return
	}

	invite, err := h.inviteService.GetInviteByToken(r.Context(), token)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invite": invite}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Accept принимает приглашение по токену. Место в команде проверяется
// атомарно, приглашение одноразовое.
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		Token string `json:"token"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Token == "" {
		badRequestResponse(w, r, errors.New("invite token is required"))
		return
	}

	member, err := h.inviteService.AcceptInvite(r.Context(), input.Token, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"member": member}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InviteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := currentActor(w, r)
	if !ok {
		return
	}

	teamID, err := readIDParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	inviteID, err := readIDParam(r, "inviteID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.inviteService.DeleteInvite(r.Context(), teamID, inviteID, actorID, role == models.RoleAdmin); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InviteHandler) ListByTeam(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := currentActor(w, r)
	if !ok {
		return
	}

	teamID, err := readIDParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	invites, err := h.inviteService.ListTeamInvites(r.Context(), teamID, actorID, role == models.RoleAdmin)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invites": invites}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
