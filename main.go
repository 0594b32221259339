package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clubsite/config"
	"clubsite/config/database"
	contactHandler "clubsite/internal/contact"
	"clubsite/internal/contact/mailer"
	contactService "clubsite/internal/contact/service"
	"clubsite/internal/kv"
	siteHandler "clubsite/internal/site"
	"clubsite/internal/site/model"
	siteService "clubsite/internal/site/service"
	"clubsite/internal/store"
	uploadHandler "clubsite/internal/upload"
	"clubsite/internal/upload/repository"
	uploadService "clubsite/internal/upload/service"
	"clubsite/pkg/logger"
	"clubsite/router"
	"clubsite/socket"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
	logger.Sugar.Info("Server stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config) error {
	transport, closeStore, err := buildTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := socket.NewHub()
	st := store.New(transport, cfg.KeyPrefix)
	st.Notifier = hub

	site := siteService.NewSiteService(st, siteService.Options{
		Defaults: model.Defaults{
			ClubName:        cfg.ClubName,
			ClubDescription: cfg.ClubDescription,
			InquiryEmail:    cfg.InquiryEmail,
		},
		LegacyEncoding: cfg.LegacyEncoding,
	})

	contact := contactService.NewContactService(buildMailer(cfg), site, cfg.MailFrom)

	blobs, closeBlobs := buildBlobStore(ctx, cfg)
	defer closeBlobs()

	handler := router.Setup(router.Deps{
		Site:          siteHandler.NewSiteHandler(site, cfg.Mode, transport.Name()),
		Contact:       contactHandler.NewContactHandler(contact, cfg.ContactRateLimit, cfg.TrustedProxies...),
		Upload:        uploadHandler.NewUploadHandler(uploadService.NewUploadService(blobs)),
		Hub:           hub,
		JWTSecret:     cfg.JWTSecret,
		AllowedOrigin: cfg.AllowedOrigin,
	})
	if cfg.JWTSecret == "" {
		logger.Sugar.Warn("ADMIN_JWT_SECRET is not set; write endpoints are unauthenticated")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		logger.Sugar.Infof("Club site backend listening on %s (mode=%s, store=%s)", cfg.Addr, cfg.Mode, transport.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildTransport(ctx context.Context, cfg *config.Config) (kv.Transport, func(), error) {
	if err := cfg.CheckStore(); err != nil {
		return nil, nil, err
	}
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := kv.NewPostgresTransport(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return pg, func() { db.Close() }, nil
	case config.StoreMemory:
		if cfg.Production() {
			logger.Sugar.Warn("Memory store selected in production; documents are lost on restart")
		}
		return kv.NewMemoryTransport(), func() {}, nil
	default:
		t, err := kv.NewRESTTransport(cfg.RestURL, cfg.RestToken)
		if err != nil {
			return nil, nil, err
		}
		return t, func() {}, nil
	}
}

// buildMailer returns nil when no provider is configured; the contact
// endpoint then answers with a not-configured error.
func buildMailer(cfg *config.Config) mailer.Mailer {
	var (
		m   mailer.Mailer
		err error
	)
	switch cfg.MailDriver {
	case config.MailSMTP:
		m, err = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password)
	default:
		m, err = mailer.NewResendMailer(cfg.ResendAPIKey)
	}
	if err != nil {
		logger.Sugar.Warnf("Contact form disabled: %v", err)
		return nil
	}
	return m
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (repository.BlobStore, func()) {
	if cfg.GCSBucket == "" {
		logger.Sugar.Warn("GCS_BUCKET is not set; uploaded images are kept in memory")
		return repository.NewMemoryBlobStore("/uploads"), func() {}
	}
	gcs, err := repository.NewGCSBlobStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	if err != nil {
		logger.Sugar.Errorf("Image uploads disabled: %v", err)
		return nil, func() {}
	}
	return gcs, func() { gcs.Close() }
}
