package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumiere-studio/backend/internal/config"
	"github.com/lumiere-studio/backend/internal/handler"
	"github.com/lumiere-studio/backend/internal/logging"
	"github.com/lumiere-studio/backend/internal/mail"
	"github.com/lumiere-studio/backend/internal/push"
	"github.com/lumiere-studio/backend/internal/repository"
	"github.com/lumiere-studio/backend/internal/service"
	"github.com/lumiere-studio/backend/pkg/auth"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()

	submissionRepo := repository.NewPgSubmissionRepository(pool)

	// メール送信
	transport, err := mail.NewTransport(cfg.Mail.Transport, mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
	}, cfg.Mail.ResendAPIKey)
	if err != nil {
		logging.Fatal("invalid mail configuration", "error", err)
	}
	sender := mail.NewSender(transport, mail.Options{
		From:          cfg.Mail.From,
		FromName:      cfg.Mail.FromName,
		AdminEmail:    cfg.Mail.AdminEmail,
		Timeout:       cfg.Mail.Timeout,
		MaxAttempts:   cfg.Mail.MaxAttempts,
		RetryBackoff:  cfg.Mail.RetryBackoff,
		DefaultLocale: cfg.Mail.DefaultLocale,
		SiteURL:       cfg.Mail.SiteURL,
		Logger:        logger,
	})

	// Web Push（VAPID 鍵が未設定の場合は通知を無効化）
	var pushStore push.Store
	switch cfg.Push.Store {
	case "redis":
		client, err := repository.NewRedisClient(ctx, cfg.Push.RedisURL)
		if err != nil {
			logging.Fatal("failed to connect to redis", "error", err)
		}
		defer client.Close()
		pushStore = repository.NewRedisPushSubscriptionRepository(client, "")
	case "postgres", "":
		pushStore = repository.NewPgPushSubscriptionRepository(pool)
	default:
		logging.Fatal("unknown push store", "store", cfg.Push.Store)
	}

	var (
		pushClient push.Client
		publicKey  string
	)
	if cfg.Push.Enabled() {
		wp := push.NewWebPushClient(push.VAPIDConfig{
			PublicKey:  cfg.Push.VAPIDPublicKey,
			PrivateKey: cfg.Push.VAPIDPrivateKey,
			Subscriber: cfg.Push.Subscriber,
			TTL:        cfg.Push.TTL,
		}, cfg.Push.Timeout)
		pushClient = wp
		publicKey = wp.PublicKey()
	} else {
		logger.Warn("VAPID keys not configured; admin push notifications disabled")
	}
	notifier := push.NewNotifier(push.NewRegistry(pushStore, logger), pushClient, cfg.Push.Concurrency, cfg.Push.Timeout, logger)

	submissionService := service.NewSubmissionService(submissionRepo, sender, notifier, cfg.NotifyTimeout, logger)
	pushService := service.NewPushService(notifier, publicKey)

	h := handler.New(pool, cfg.FrontendURL)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	pushHandler := handler.NewPushHandler(pushService, logger)
	limiter := handler.NewRateLimiter(ctx, cfg.ContactRateLimit)

	wrapAdmin := func(next http.HandlerFunc) http.Handler {
		if cfg.AuthRequired {
			return auth.RequireAdmin(auth.SessionSecretBytes(cfg.SessionSecret), cfg.AdminIDs)(next)
		}
		return auth.DevAuth(next)
	}
	if cfg.AuthRequired && len(cfg.AdminIDs) == 0 {
		logger.Warn("AUTH_REQUIRED is set but ADMIN_IDS is empty; admin API will reject every session")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.Handle("POST /api/contact", limiter.Middleware(http.HandlerFunc(submissionHandler.Submit)))

	// 管理者 API
	mux.Handle("GET /api/admin/submissions", wrapAdmin(submissionHandler.AdminList))
	mux.Handle("GET /api/admin/submissions/{id}", wrapAdmin(submissionHandler.Get))
	mux.Handle("PATCH /api/admin/submissions/{id}/status", wrapAdmin(submissionHandler.UpdateStatus))
	mux.Handle("PATCH /api/admin/submissions/{id}/priority", wrapAdmin(submissionHandler.UpdatePriority))
	mux.Handle("DELETE /api/admin/submissions/{id}", wrapAdmin(submissionHandler.Trash))
	mux.Handle("POST /api/admin/submissions/{id}/restore", wrapAdmin(submissionHandler.Restore))

	mux.Handle("POST /api/admin/push/subscribe", wrapAdmin(pushHandler.Subscribe))
	mux.Handle("DELETE /api/admin/push/subscribe", wrapAdmin(pushHandler.Unsubscribe))
	mux.Handle("GET /api/admin/push/vapid-public-key", wrapAdmin(pushHandler.VAPIDPublicKey))
	mux.Handle("POST /api/admin/push/test", wrapAdmin(pushHandler.Test))

	// Submit waits for the notification phase, so the write timeout must cover it.
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.CORS(handler.SecurityHeaders(handler.RequestLogger(logger)(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.NotifyTimeout + 10*time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr, "mail_transport", transport.Name(), "push_enabled", pushClient != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.NotifyTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
