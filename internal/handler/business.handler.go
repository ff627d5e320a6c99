package handler

import (
	"errors"
	"log"
	"net/http"

	"huddle-api/internal/middleware"
	businesssvc "huddle-api/internal/service/business"
	"huddle-api/pkg/response"
	"huddle-api/pkg/xerrors"
)

type BusinessHandler struct {
	business *businesssvc.Service
}

func NewBusinessHandler(business *businesssvc.Service) *BusinessHandler {
	return &BusinessHandler{business: business}
}

type saveStepRequest struct {
	Step   int                    `json:"step" validate:"required,min=1,max=10"`
	Fields map[string]interface{} `json:"fields" validate:"required"`
}

// SaveStep caches one step of the onboarding form. Nothing hits postgres
// until submit.
func (h *BusinessHandler) SaveStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req saveStepRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	draft, err := h.business.SaveStep(r.Context(), userID, req.Step, req.Fields)
	if err != nil {
		log.Printf("Business step save failed | UserID=%d | Step=%d | Err=%v", userID, req.Step, err)
		response.Error(w, http.StatusInternalServerError, "Failed to save step")
		return
	}
	response.Message(w, http.StatusOK, "Step saved", draft)
}

func (h *BusinessHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	draft, err := h.business.GetDraft(r.Context(), userID)
	if err != nil {
		log.Printf("Business draft load failed | UserID=%d | Err=%v", userID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to load draft")
		return
	}
	if draft == nil {
		response.Error(w, http.StatusNotFound, "No draft found")
		return
	}
	response.JSON(w, http.StatusOK, draft)
}

func (h *BusinessHandler) ClearDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := h.business.ClearDraft(r.Context(), userID); err != nil {
		log.Printf("Business draft clear failed | UserID=%d | Err=%v", userID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to clear draft")
		return
	}
	response.Message(w, http.StatusOK, "Draft cleared", nil)
}

func (h *BusinessHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	items, err := h.business.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("Business list failed | UserID=%d | Err=%v", userID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to load business verifications")
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *BusinessHandler) Show(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	businessID, err := urlParamInt64(r, "businessID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid business id")
		return
	}

	b, err := h.business.Get(r.Context(), userID, businessID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "Business verification not found")
			return
		}
		log.Printf("Business lookup failed | BusinessID=%d | Err=%v", businessID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to load business verification")
		return
	}
	response.JSON(w, http.StatusOK, b)
}

func (h *BusinessHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	b, err := h.business.Submit(r.Context(), userID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNoDraftFound) {
			response.Error(w, http.StatusBadRequest, "No draft found. Save at least one step before submitting.")
			return
		}
		log.Printf("Business submit failed | UserID=%d | Err=%v", userID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to submit business verification")
		return
	}
	response.Message(w, http.StatusCreated, "Business verification submitted", b)
}
