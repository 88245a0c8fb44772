package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/notify"
	"complaintdesk/backend/internal/screen"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/telegram"
	"complaintdesk/backend/internal/view"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting ComplaintDesk Backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	connectCtx, cancel := context.WithTimeout(ctx, config.StoreOpTimeout)
	store, err := storage.New(connectCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer store.Close()
	log.Printf("Connected to %s store", cfg.StoreBackend)

	localizer, err := localization.NewBundledLocalizer()
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}
	formatter := view.NewFormatter(cfg.Location(), localizer.GetString(cfg.DefaultLanguage, "no_feedback_yet"))
	formatter.Messages = localizer
	authSvc := auth.NewService(cfg.JWTSecret, cfg.JWTTTL)

	// 2. Screen hub
	hub := screen.NewManagerService(store, localizer)
	hub.DefaultLanguage = cfg.DefaultLanguage
	if cfg.FirebaseCredentials != "" {
		notifier, err := notify.NewFCMNotifier(ctx, cfg.FirebaseCredentials, store, localizer, cfg.DefaultLanguage)
		if err != nil {
			log.Printf("WARNING: push notifications disabled: %v", err)
		} else {
			hub.Notifier = notifier
		}
	}
	go hub.Run(ctx)

	// 3. Telegram view
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBotService(cfg.TelegramBotToken, hub, authSvc, localizer, formatter, cfg.DefaultLanguage)
		if err != nil {
			log.Printf("ERROR: Telegram bot not started: %v", err)
		} else {
			go bot.Run(ctx)
		}
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, Telegram screens disabled")
	}

	// 4. HTTP
	h := handler.NewHandler(hub, store, authSvc, formatter, cfg.CORSOrigins)
	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        handler.NewRouter(h),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("HTTP listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP shutdown: %v", err)
	}

	select {
	case <-hub.Stopped():
	case <-shutdownCtx.Done():
		log.Println("WARNING: screen hub did not stop in time")
	}
	log.Println("Bye")
}
