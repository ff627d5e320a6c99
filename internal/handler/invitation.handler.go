package handler

import (
	"errors"
	"log"
	"net/http"

	"huddle-api/internal/middleware"
	circlesvc "huddle-api/internal/service/circle"
	"huddle-api/pkg/response"
	"huddle-api/pkg/xerrors"
)

// invitationPayload is the wire contract for invitation resolution.
// circle_status is present only on the accepting path, where the caller needs
// to know whether their accept activated the circle.
type invitationPayload struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CircleStatus string `json:"circle_status,omitempty"`
}

type InvitationHandler struct {
	circles *circlesvc.Service
}

func NewInvitationHandler(circles *circlesvc.Service) *InvitationHandler {
	return &InvitationHandler{circles: circles}
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolveSelf(w, r, true)
}

func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.resolveSelf(w, r, false)
}

func (h *InvitationHandler) resolveSelf(w http.ResponseWriter, r *http.Request, accept bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	circleID, err := urlParamInt64(r, "circleID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid circle id")
		return
	}

	res, err := h.circles.Resolve(r.Context(), circlesvc.ResolveParams{
		CircleID: circleID,
		UserID:   userID,
		Accept:   accept,
	})
	if err != nil {
		writeInvitationError(w, circleID, err)
		return
	}

	msg := "Invitation declined"
	if accept {
		msg = "Invitation accepted"
	}
	response.Raw(w, http.StatusOK, invitationPayload{
		Success:      true,
		Message:      msg,
		CircleStatus: res.CircleStatus,
	})
}

// AdminRequests lists pending invitations across the caller's circles.
func (h *InvitationHandler) AdminRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	invs, err := h.circles.PendingRequests(r.Context(), userID)
	if err != nil {
		log.Printf("Pending invitation list failed | Creator=%d | Err=%v", userID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to load pending invitations")
		return
	}
	response.JSON(w, http.StatusOK, invs)
}

func (h *InvitationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolveAdmin(w, r, true)
}

func (h *InvitationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolveAdmin(w, r, false)
}

func (h *InvitationHandler) resolveAdmin(w http.ResponseWriter, r *http.Request, accept bool) {
	if _, ok := middleware.UserID(r.Context()); !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	invitationID, err := urlParamInt64(r, "invitationID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid invitation id")
		return
	}

	res, err := h.circles.Resolve(r.Context(), circlesvc.ResolveParams{
		InvitationID: invitationID,
		Accept:       accept,
		AsAdmin:      true,
	})
	if err != nil {
		writeInvitationError(w, invitationID, err)
		return
	}

	msg := "Invitation rejected"
	if accept {
		msg = "Invitation approved"
	}
	response.Raw(w, http.StatusOK, invitationPayload{
		Success:      true,
		Message:      msg,
		CircleStatus: res.CircleStatus,
	})
}

func writeInvitationError(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, xerrors.ErrInvitationNotFound) {
		response.Raw(w, http.StatusNotFound, invitationPayload{
			Success: false,
			Message: "No pending invitation found",
		})
		return
	}
	log.Printf("Invitation resolution failed | ID=%d | Err=%v", id, err)
	response.Error(w, http.StatusInternalServerError, "Failed to resolve invitation")
}
