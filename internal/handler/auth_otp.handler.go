package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"huddle-api/internal/middleware"
	authsvc "huddle-api/internal/service/auth"
	otpsvc "huddle-api/internal/service/otp"
	"huddle-api/pkg/response"
	"huddle-api/pkg/xerrors"
)

// otpPayload is the wire contract for send/verify/resend. attempts_remaining
// is a pointer so a zero (lockout) still serializes while "not applicable"
// is omitted.
type otpPayload struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	OtpID             *int64 `json:"otp_id,omitempty"`
	ExpiresAt         string `json:"expires_at,omitempty"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
	TimeUntilReset    string `json:"time_until_reset,omitempty"`
	DebugOtp          string `json:"debug_otp,omitempty"`
}

type OTPHandler struct {
	otp  *otpsvc.Service
	auth *authsvc.Service
}

func NewOTPHandler(otp *otpsvc.Service, auth *authsvc.Service) *OTPHandler {
	return &OTPHandler{otp: otp, auth: auth}
}

type sendOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=7"`
	EmailID     string `json:"email_id" validate:"omitempty,email"`
	Purpose     string `json:"purpose" validate:"omitempty,oneof=verification password_reset login"`
}

func (req *sendOTPRequest) contact() string {
	if req.EmailID != "" {
		return req.EmailID
	}
	return req.PhoneNumber
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=7"`
	EmailID     string `json:"email_id" validate:"omitempty,email"`
	OtpCode     string `json:"otp_code" validate:"required,len=6,numeric"`
}

func (req *verifyOTPRequest) contact() string {
	if req.EmailID != "" {
		return req.EmailID
	}
	return req.PhoneNumber
}

func (h *OTPHandler) SendOtp(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, false)
}

func (h *OTPHandler) ResendOtp(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, true)
}

func (h *OTPHandler) send(w http.ResponseWriter, r *http.Request, isResend bool) {
	var req sendOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.contact() == "" {
		response.Error(w, http.StatusBadRequest, "Either phone_number or email_id is required")
		return
	}

	var userID *int64
	if uid, ok := middleware.UserID(r.Context()); ok {
		userID = &uid
	}

	res, err := h.otp.Send(r.Context(), req.contact(), userID, clientIP(r), req.Purpose, isResend)
	if err != nil {
		writeOTPError(w, err)
		return
	}

	msg := "OTP sent successfully"
	if isResend {
		msg = "OTP resent successfully"
	}
	response.Raw(w, http.StatusOK, otpPayload{
		Success:   true,
		Message:   msg,
		OtpID:     &res.OtpID,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		DebugOtp:  res.DebugCode,
	})
}

func (h *OTPHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.contact() == "" {
		response.Error(w, http.StatusBadRequest, "Either phone_number or email_id is required")
		return
	}

	res, err := h.otp.Verify(r.Context(), req.contact(), req.OtpCode)
	if err != nil {
		writeOTPError(w, err)
		return
	}

	if err := h.auth.MarkContactVerified(r.Context(), req.contact()); err != nil {
		log.Printf("Failed to flag account verified | Contact=%s | Err=%v", req.contact(), err)
	}

	response.Raw(w, http.StatusOK, otpPayload{
		Success: true,
		Message: "OTP verified successfully",
		OtpID:   &res.OtpID,
	})
}

// writeOTPError translates a tagged OTP failure into the contract payload.
// Everything the client caused is 4xx; only delivery and storage faults
// surface as 5xx.
func writeOTPError(w http.ResponseWriter, err error) {
	var oe *otpsvc.Error
	if !errors.As(err, &oe) {
		if errors.Is(err, xerrors.ErrInvalidInput) || errors.Is(err, xerrors.ErrInvalidChannel) {
			response.Error(w, http.StatusBadRequest, "Invalid contact")
			return
		}
		log.Printf("OTP request failed | Err=%v", err)
		response.Error(w, http.StatusInternalServerError, "Failed to process OTP request. Please try again.")
		return
	}

	status := http.StatusBadRequest
	switch {
	case errors.Is(oe.Err, xerrors.ErrOTPRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(oe.Err, xerrors.ErrOTPDeliveryFailed):
		status = http.StatusBadGateway
	}

	p := otpPayload{
		Success:        false,
		Message:        oe.Message,
		TimeUntilReset: oe.TimeUntilReset,
	}
	if oe.AttemptsRemaining >= 0 {
		remaining := oe.AttemptsRemaining
		p.AttemptsRemaining = &remaining
	}
	response.Raw(w, status, p)
}
