package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle-api/internal/config"
	"huddle-api/internal/handler"
	"huddle-api/internal/middleware"
	"huddle-api/internal/repository"
	"huddle-api/internal/router"
	authsvc "huddle-api/internal/service/auth"
	businesssvc "huddle-api/internal/service/business"
	circlesvc "huddle-api/internal/service/circle"
	"huddle-api/internal/service/delivery"
	otpsvc "huddle-api/internal/service/otp"
	"huddle-api/pkg/cache"
	"huddle-api/pkg/id"
	"huddle-api/pkg/jwtutil"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// pgx pool
	dbpool, err := pgxpool.New(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer dbpool.Close()

	// redis
	rcache := cache.NewCache([]string{cfg.RedisAddr}, cfg.RedisPass, false)

	// snowflake
	sf, err := id.NewSnowflake(cfg.SnowflakeNode)
	if err != nil {
		log.Fatalf("sf: %v", err)
	}

	// delivery
	emailSender, err := delivery.NewEmailSender(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		log.Fatalf("ses: %v", err)
	}
	smsSender := delivery.NewSMSSender(cfg.TwoFactorAPIKey, cfg.SMSSenderID, cfg.DeliveryTimeout)
	dispatcher := delivery.NewDispatcher(emailSender, smsSender)

	// repos & services
	otpRepo := repository.NewOTPRepo(dbpool)
	userRepo := repository.NewUserRepo(dbpool)
	circleRepo := repository.NewCircleRepo(dbpool)
	postRepo := repository.NewPostRepo(dbpool)
	businessRepo := repository.NewBusinessRepo(dbpool)
	interestRepo := repository.NewInterestRepo(dbpool)

	jwtMgr := jwtutil.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	otpSvc := otpsvc.NewService(otpRepo, dispatcher, sf, cfg.OTPTTL, cfg.DeliveryTimeout, cfg.Debug)
	authSvc := authsvc.NewService(userRepo, otpSvc, rcache, jwtMgr, sf, cfg.RefreshTokenTTL)
	circleSvc := circlesvc.NewService(circleRepo, sf)
	businessSvc := businesssvc.NewService(rcache, businessRepo, sf, cfg.DraftTTL)

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc, userRepo),
		OTP:        handler.NewOTPHandler(otpSvc, authSvc),
		Circle:     handler.NewCircleHandler(circleSvc),
		Invitation: handler.NewInvitationHandler(circleSvc),
		Post:       handler.NewPostHandler(postRepo, sf),
		Business:   handler.NewBusinessHandler(businessSvc),
		Interest:   handler.NewInterestHandler(interestRepo),
	}

	r := chi.NewRouter()
	router.SetupRoutes(r, h, middleware.NewAuth(jwtMgr), rcache.Client())

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Huddle API listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	// graceful stop
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
