package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"huddle-api/internal/handler"
	"huddle-api/internal/middleware"
	"huddle-api/pkg/response"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	OTP        *handler.OTPHandler
	Circle     *handler.CircleHandler
	Invitation *handler.InvitationHandler
	Post       *handler.PostHandler
	Business   *handler.BusinessHandler
	Interest   *handler.InterestHandler
}

func SetupRoutes(r chi.Router, h Handlers, auth *middleware.Auth, rdb redis.UniversalClient) chi.Router {
	// ---- Global Middleware ----
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimiter(rdb, 100, time.Minute, 10*time.Minute, "global"))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.Message(w, http.StatusOK, "ok", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ---------------- Public ----------------
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimiter(rdb, 10, 30*time.Second, 30*time.Second, "auth"))
			r.Post("/auth/register", h.Auth.Register)
			r.Post("/auth/login", h.Auth.Login)
			r.Post("/auth/refresh", h.Auth.Refresh)
			r.Post("/auth/logout", h.Auth.Logout)
			r.Post("/auth/check-contact", h.Auth.CheckContact)
			r.Post("/auth/check-username", h.Auth.CheckUsername)
			r.Post("/auth/reset-password", h.Auth.ResetPassword)
		})

		// Interest catalog is public so onboarding can show it pre-login.
		r.Get("/interests", h.Interest.List)
		r.Get("/interests/categories", h.Interest.Categories)

		// OTP endpoints get their own tighter transport limit; the engine has
		// no send cap of its own, only the post-failure lockout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimiter(rdb, 5, 30*time.Second, time.Minute, "otp"))
			r.Post("/auth/send-otp", h.OTP.SendOtp)
			r.Post("/auth/verify-otp", h.OTP.VerifyOtp)
			r.Post("/auth/resend-otp", h.OTP.ResendOtp)
		})

		// ---------------- Authenticated ----------------
		r.Group(func(pr chi.Router) {
			pr.Use(auth.Require)

			pr.Get("/auth/me", h.Auth.Me)

			// Circles & invitations
			pr.Post("/circles", h.Circle.Create)
			pr.Get("/circles/{circleID}", h.Circle.Show)
			pr.Get("/circles/{circleID}/status", h.Circle.CheckStatus)
			pr.Post("/circles/{circleID}/invite", h.Circle.Invite)
			pr.Post("/circles/{circleID}/invitations/accept", h.Invitation.Accept)
			pr.Post("/circles/{circleID}/invitations/decline", h.Invitation.Decline)
			pr.Get("/invitations/requests", h.Invitation.AdminRequests)
			pr.Post("/invitations/{invitationID}/approve", h.Invitation.Approve)
			pr.Post("/invitations/{invitationID}/reject", h.Invitation.Reject)

			// Posts
			pr.Get("/posts", h.Post.List)
			pr.Post("/posts", h.Post.Create)
			pr.Get("/posts/{postID}", h.Post.Show)
			pr.Put("/posts/{postID}", h.Post.Update)
			pr.Delete("/posts/{postID}", h.Post.Delete)
			pr.Post("/posts/{postID}/views", h.Post.IncrementViews)

			// Business verification
			pr.Post("/business/steps", h.Business.SaveStep)
			pr.Get("/business/draft", h.Business.GetDraft)
			pr.Delete("/business/draft", h.Business.ClearDraft)
			pr.Post("/business/submit", h.Business.Submit)
			pr.Get("/business", h.Business.List)
			pr.Get("/business/{businessID}", h.Business.Show)
		})
	})

	return r
}
