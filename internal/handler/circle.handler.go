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

type CircleHandler struct {
	circles *circlesvc.Service
}

func NewCircleHandler(circles *circlesvc.Service) *CircleHandler {
	return &CircleHandler{circles: circles}
}

type createCircleRequest struct {
	CircleName       string   `json:"circle_name" validate:"required,min=3,max=100"`
	Description      string   `json:"description" validate:"max=1000"`
	ProfilePhoto     string   `json:"profile_photo" validate:"omitempty,url"`
	Categories       []string `json:"categories"`
	CircleType       string   `json:"circle_type" validate:"omitempty,oneof=public private"`
	OnlyAdminCanPost bool     `json:"only_admin_can_post"`
	AllowJoinRequest bool     `json:"allow_join_request"`
	Members          []int64  `json:"members" validate:"required,min=1"`
}

func (h *CircleHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req createCircleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	circle, err := h.circles.Create(r.Context(), circlesvc.CreateParams{
		Name:             req.CircleName,
		Description:      req.Description,
		ProfilePhoto:     req.ProfilePhoto,
		Categories:       req.Categories,
		CircleType:       req.CircleType,
		OnlyAdminCanPost: req.OnlyAdminCanPost,
		AllowJoinRequest: req.AllowJoinRequest,
		CreatedBy:        userID,
		Members:          req.Members,
	})
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotEnoughMembers):
			response.Error(w, http.StatusBadRequest, "A circle needs at least 10 invited members")
		case errors.Is(err, xerrors.ErrCircleNameTaken):
			response.Error(w, http.StatusConflict, "A circle with this name already exists")
		default:
			log.Printf("Circle create failed | Creator=%d | Err=%v", userID, err)
			response.Error(w, http.StatusInternalServerError, "Failed to create circle")
		}
		return
	}

	response.Message(w, http.StatusCreated, "Circle created. It activates once 10 invitations are accepted.", circle)
}

type inviteMembersRequest struct {
	Members []int64 `json:"members" validate:"required,min=1"`
}

// Invite lets the creator send more invitations to a circle they already
// created, typically to replace declined invitees while chasing quorum.
func (h *CircleHandler) Invite(w http.ResponseWriter, r *http.Request) {
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

	var req inviteMembersRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	circle, added, err := h.circles.Invite(r.Context(), circlesvc.InviteParams{
		CircleID:    circleID,
		RequestedBy: userID,
		Members:     req.Members,
	})
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrCircleNotFound):
			response.Error(w, http.StatusNotFound, "Circle not found")
		case errors.Is(err, xerrors.ErrForbidden):
			response.Error(w, http.StatusForbidden, "Only the circle creator can invite members")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.Error(w, http.StatusBadRequest, "No members to invite")
		default:
			log.Printf("Circle invite failed | CircleID=%d | User=%d | Err=%v", circleID, userID, err)
			response.Error(w, http.StatusInternalServerError, "Failed to send invitations")
		}
		return
	}

	response.Message(w, http.StatusOK, "Invitations sent", map[string]interface{}{
		"circle_id":        circle.ID,
		"invitations_sent": circle.InvitationsSent,
		"added":            added,
	})
}

func (h *CircleHandler) Show(w http.ResponseWriter, r *http.Request) {
	circleID, err := urlParamInt64(r, "circleID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid circle id")
		return
	}

	circle, err := h.circles.Get(r.Context(), circleID)
	if err != nil {
		if errors.Is(err, xerrors.ErrCircleNotFound) {
			response.Error(w, http.StatusNotFound, "Circle not found")
			return
		}
		log.Printf("Circle lookup failed | CircleID=%d | Err=%v", circleID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to load circle")
		return
	}
	response.JSON(w, http.StatusOK, circle)
}

// CheckStatus returns the activation progress of a circle without the full
// circle body.
func (h *CircleHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	circleID, err := urlParamInt64(r, "circleID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid circle id")
		return
	}

	circle, err := h.circles.Get(r.Context(), circleID)
	if err != nil {
		if errors.Is(err, xerrors.ErrCircleNotFound) {
			response.Error(w, http.StatusNotFound, "Circle not found")
			return
		}
		log.Printf("Circle status check failed | CircleID=%d | Err=%v", circleID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to check circle status")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"circle_id":            circle.ID,
		"status":               circle.Status,
		"invitations_sent":     circle.InvitationsSent,
		"invitations_accepted": circle.InvitationsAccepted,
		"invitations_declined": circle.InvitationsDeclined,
	})
}
