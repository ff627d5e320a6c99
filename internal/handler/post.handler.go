package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"huddle-api/internal/domain"
	"huddle-api/internal/middleware"
	"huddle-api/internal/repository"
	"huddle-api/pkg/id"
	"huddle-api/pkg/response"
	"huddle-api/pkg/xerrors"
)

type PostHandler struct {
	posts *repository.PostRepo
	sf    *id.Snowflake
}

func NewPostHandler(posts *repository.PostRepo, sf *id.Snowflake) *PostHandler {
	return &PostHandler{posts: posts, sf: sf}
}

type postRequest struct {
	CircleID *int64 `json:"circle_id"`
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Content  string `json:"content" validate:"required"`
	MediaURL string `json:"media_url" validate:"omitempty,url"`
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req postRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	p := &domain.Post{
		ID:        h.sf.Generate(),
		UserID:    userID,
		CircleID:  req.CircleID,
		Title:     req.Title,
		Content:   req.Content,
		MediaURL:  req.MediaURL,
		CreatedAt: time.Now(),
	}
	if err := h.posts.Create(r.Context(), p); err != nil {
		log.Printf("Post create failed | UserID=%d | Err=%v", userID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to create post")
		return
	}
	response.Message(w, http.StatusCreated, "Post created", p)
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := 20, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	posts, err := h.posts.List(r.Context(), limit, offset)
	if err != nil {
		log.Printf("Post list failed | Err=%v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to load posts")
		return
	}
	response.JSON(w, http.StatusOK, posts)
}

func (h *PostHandler) Show(w http.ResponseWriter, r *http.Request) {
	postID, err := urlParamInt64(r, "postID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	p, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, xerrors.ErrPostNotFound) {
			response.Error(w, http.StatusNotFound, "Post not found")
			return
		}
		log.Printf("Post lookup failed | PostID=%d | Err=%v", postID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to load post")
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	postID, err := urlParamInt64(r, "postID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	existing, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, xerrors.ErrPostNotFound) {
			response.Error(w, http.StatusNotFound, "Post not found")
			return
		}
		response.Error(w, http.StatusInternalServerError, "Failed to load post")
		return
	}
	if existing.UserID != userID {
		response.Error(w, http.StatusForbidden, "You can only edit your own posts")
		return
	}

	var req postRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	existing.Title = req.Title
	existing.Content = req.Content
	existing.MediaURL = req.MediaURL
	if err := h.posts.Update(r.Context(), existing); err != nil {
		log.Printf("Post update failed | PostID=%d | Err=%v", postID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to update post")
		return
	}
	response.Message(w, http.StatusOK, "Post updated", existing)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	postID, err := urlParamInt64(r, "postID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	existing, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, xerrors.ErrPostNotFound) {
			response.Error(w, http.StatusNotFound, "Post not found")
			return
		}
		response.Error(w, http.StatusInternalServerError, "Failed to load post")
		return
	}
	if existing.UserID != userID {
		response.Error(w, http.StatusForbidden, "You can only delete your own posts")
		return
	}

	if err := h.posts.Delete(r.Context(), postID); err != nil {
		log.Printf("Post delete failed | PostID=%d | Err=%v", postID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to delete post")
		return
	}
	response.Message(w, http.StatusOK, "Post deleted", nil)
}

func (h *PostHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	postID, err := urlParamInt64(r, "postID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	views, err := h.posts.IncrementViews(r.Context(), postID)
	if err != nil {
		if errors.Is(err, xerrors.ErrPostNotFound) {
			response.Error(w, http.StatusNotFound, "Post not found")
			return
		}
		log.Printf("View increment failed | PostID=%d | Err=%v", postID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to record view")
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"views": views})
}
