package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/captcha"
	"github.com/giosicat/inaanak-portal/internal/config"
	"github.com/giosicat/inaanak-portal/internal/database"
	"github.com/giosicat/inaanak-portal/internal/handler"
	"github.com/giosicat/inaanak-portal/internal/mailer"
	"github.com/giosicat/inaanak-portal/internal/middleware"
	"github.com/giosicat/inaanak-portal/internal/queue"
	"github.com/giosicat/inaanak-portal/internal/repository"
	"github.com/giosicat/inaanak-portal/internal/router"
	"github.com/giosicat/inaanak-portal/internal/storage"
	"github.com/giosicat/inaanak-portal/internal/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	guardians := repository.NewGuardianRepo(db)
	ninongs := repository.NewNinongRepo(db)
	admins := repository.NewAdminRepo(db)
	tokens := repository.NewTokenRepo(db)
	invites := repository.NewInviteRepo(db)
	registrations := repository.NewRegistrationRepo(db)
	workflow := &repository.Workflow{
		DB:            db,
		Guardians:     guardians,
		Invites:       invites,
		Registrations: registrations,
	}

	if err := bootstrapAdmin(admins, cfg.BcryptCost); err != nil {
		log.Fatalf("admin bootstrap: %v", err)
	}

	files, err := storage.NewLocalStore(cfg.StorageRoot)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	verifier := captcha.NewVerifier(cfg.RecaptchaSecret)
	publisher := queue.NewPublisher()

	m, err := mailer.New(context.Background(), cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}
	go queue.StartNotificationConsumer(m)

	// Rate limiting degrades to disabled when redis is unreachable.
	var rateLimit echo.MiddlewareFunc
	rlCfg := config.LoadRateLimitConfig()
	if rlCfg.Enabled {
		if rdb := config.NewRedisClient(); rdb != nil {
			rateLimit = middleware.NewTokenBucket(rlCfg, rdb)
		} else {
			log.Println("rate limiting disabled: redis unavailable")
		}
	}

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Handlers{
		GuardianAuth:  handler.NewGuardianAuthHandler(cfg, guardians, tokens),
		NinongAuth:    handler.NewNinongAuthHandler(cfg, ninongs, tokens, publisher),
		AdminAuth:     handler.NewAdminAuthHandler(cfg, admins, tokens, verifier),
		Invites:       handler.NewInviteHandler(invites, registrations),
		Registrations: handler.NewRegistrationHandler(workflow, registrations, guardians, files, publisher),
		CheckStatus:   handler.NewCheckStatusHandler(registrations),
	}, router.Deps{
		TokenSecret: cfg.TokenSecret,
		Tokens:      tokens,
		Guardians:   guardians,
		Ninongs:     ninongs,
		Admins:      admins,
		RateLimit:   rateLimit,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// bootstrapAdmin creates the initial admin account from ADMIN_EMAIL,
// ADMIN_NAME and ADMIN_PASSWORD when no account with that email
// exists.  Covers deployments that keep the admin register endpoint
// blocked at the proxy.
func bootstrapAdmin(admins *repository.AdminRepo, bcryptCost int) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}
	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "Administrator"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := admins.GetByEmail(ctx, email); err == nil {
		return nil
	} else if err != repository.ErrNotFound {
		return err
	}
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return err
	}
	if _, err := admins.Create(ctx, name, email, hash); err != nil && err != repository.ErrEmailExists {
		return err
	}
	log.Printf("admin account provisioned: %s", email)
	return nil
}
