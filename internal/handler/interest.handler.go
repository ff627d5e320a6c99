package handler

import (
	"log"
	"net/http"

	"huddle-api/internal/repository"
	"huddle-api/pkg/response"
)

// InterestHandler serves the static interest catalog users pick from when
// setting up a profile or tagging a circle.
type InterestHandler struct {
	interests *repository.InterestRepo
}

func NewInterestHandler(interests *repository.InterestRepo) *InterestHandler {
	return &InterestHandler{interests: interests}
}

func (h *InterestHandler) List(w http.ResponseWriter, r *http.Request) {
	interests, err := h.interests.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		log.Printf("Interest list failed | Err=%v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to load interests")
		return
	}
	response.JSON(w, http.StatusOK, interests)
}

func (h *InterestHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.interests.Categories(r.Context())
	if err != nil {
		log.Printf("Interest categories failed | Err=%v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to load categories")
		return
	}
	response.JSON(w, http.StatusOK, categories)
}
