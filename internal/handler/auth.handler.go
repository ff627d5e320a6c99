package handler

import (
	"errors"
	"log"
	"net/http"

	"huddle-api/internal/middleware"
	"huddle-api/internal/repository"
	authsvc "huddle-api/internal/service/auth"
	"huddle-api/pkg/response"
	"huddle-api/pkg/xerrors"
)

type AuthHandler struct {
	auth  *authsvc.Service
	users *repository.UserRepo
}

func NewAuthHandler(auth *authsvc.Service, users *repository.UserRepo) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

type registerRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Username    string `json:"username" validate:"required,min=3,max=30,alphanum"`
	EmailID     string `json:"email_id" validate:"omitempty,email"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=7"`
	Password    string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, tokens, err := h.auth.Register(r.Context(), authsvc.RegisterParams{
		Name:        req.Name,
		Username:    req.Username,
		Email:       req.EmailID,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrContactRequired):
			response.Error(w, http.StatusBadRequest, "Either phone_number or email_id is required")
		case errors.Is(err, xerrors.ErrEmailAlreadyInUse):
			response.Error(w, http.StatusConflict, "Email is already registered")
		case errors.Is(err, xerrors.ErrPhoneAlreadyInUse):
			response.Error(w, http.StatusConflict, "Phone number is already registered")
		case errors.Is(err, xerrors.ErrUsernameTaken),
			errors.Is(err, xerrors.ErrUserAlreadyExists):
			response.Error(w, http.StatusConflict, "Username is already taken")
		default:
			log.Printf("Register failed | Username=%s | Err=%v", req.Username, err)
			response.Error(w, http.StatusInternalServerError, "Registration failed. Please try again.")
		}
		return
	}

	response.Message(w, http.StatusCreated, "Account created successfully", map[string]interface{}{
		"user":   user,
		"tokens": tokens,
	})
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, tokens, err := h.auth.Login(r.Context(), req.Identifier, req.Password, clientIP(r))
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidCredentials) {
			response.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Printf("Login failed | Identifier=%s | Err=%v", req.Identifier, err)
		response.Error(w, http.StatusInternalServerError, "Login failed. Please try again.")
		return
	}

	response.Message(w, http.StatusOK, "Login successful", map[string]interface{}{
		"user":   user,
		"tokens": tokens,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, xerrors.ErrSessionNotFound) || errors.Is(err, xerrors.ErrInvalidToken) {
			response.Error(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		log.Printf("Token refresh failed | Err=%v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to refresh session")
		return
	}
	response.JSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		log.Printf("Logout failed | Err=%v", err)
	}
	response.Message(w, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, xerrors.ErrUserNotFound) {
			response.Error(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Me lookup failed | UserID=%d | Err=%v", userID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	response.JSON(w, http.StatusOK, user)
}

type checkContactRequest struct {
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=7"`
	EmailID     string `json:"email_id" validate:"omitempty,email"`
}

// CheckContact reports whether an account exists for the given contact, used
// by the client before choosing the register vs reset flow.
func (h *AuthHandler) CheckContact(w http.ResponseWriter, r *http.Request) {
	var req checkContactRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	contact := req.EmailID
	if contact == "" {
		contact = req.PhoneNumber
	}
	if contact == "" {
		response.Error(w, http.StatusBadRequest, "Either phone_number or email_id is required")
		return
	}

	exists, err := h.auth.AccountExists(r.Context(), contact)
	if err != nil {
		log.Printf("Contact check failed | Err=%v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to check contact")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

type checkUsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
}

func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req checkUsernameRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	taken, err := h.users.UsernameExists(r.Context(), req.Username)
	if err != nil {
		log.Printf("Username check failed | Err=%v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to check username")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"available": !taken})
}

type resetPasswordRequest struct {
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=7"`
	EmailID     string `json:"email_id" validate:"omitempty,email"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ResetPassword sets a new password for a contact that completed the OTP
// verify flow recently. The verified OTP is the authentication.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	contact := req.EmailID
	if contact == "" {
		contact = req.PhoneNumber
	}
	if contact == "" {
		response.Error(w, http.StatusBadRequest, "Either phone_number or email_id is required")
		return
	}

	err := h.auth.ResetPassword(r.Context(), contact, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrContactNotVerified):
			response.Error(w, http.StatusForbidden, "Contact is not verified. Please complete OTP verification first.")
		case errors.Is(err, xerrors.ErrUserNotFound):
			response.Error(w, http.StatusNotFound, "No account found for this contact")
		default:
			log.Printf("Password reset failed | Err=%v", err)
			response.Error(w, http.StatusInternalServerError, "Failed to reset password")
		}
		return
	}
	response.Message(w, http.StatusOK, "Password reset successfully", nil)
}
