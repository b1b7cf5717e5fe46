package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-diary/config"
	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/internal/infrastructure/authbackend"
	"github.com/oksasatya/go-ddd-diary/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ddd-diary/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

// seed creates an account and profile for every directory user and applies
// the ADMIN_EMAILS allow-list. Running it again is harmless.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dir, err := config.LoadCredentials(cfg)
	if err != nil {
		log.Fatalf("failed to load credentials: %v", err)
	}

	var (
		accounts repository.AccountRepository
		profiles repository.ProfileRepository
		sessions authbackend.SessionStore
	)
	switch cfg.StoreDriver {
	case "postgres":
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		accounts = pginfra.NewAccountRepository(pool)
		profiles = pginfra.NewProfileRepository(pool)
	case "memory":
		logger.Warn("STORE_DRIVER=memory: dry run, nothing is persisted")
		store := memory.NewStore()
		accounts, profiles, sessions = store.Accounts(), store.Profiles(), store.Sessions()
	default:
		log.Fatalf("unknown STORE_DRIVER %q (want postgres or memory)", cfg.StoreDriver)
	}
	if sessions == nil {
		// sign-up never opens a session
		sessions = memory.NewStore().Sessions()
	}

	jwt := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	backend := authbackend.New(accounts, profiles, sessions, jwt, &authbackend.MemoryTokens{}, logger)
	defer backend.Close()

	results, err := application.NewProvisioner(backend, accounts, profiles, logger).Provision(ctx, dir, cfg.Admins())
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "USERNAME\tEMAIL\tUSER ID\tCREATED\tADMIN")
	for _, r := range results {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\n", r.Username, r.Email, r.UserID, r.Created, r.IsAdmin)
	}
	_ = tw.Flush()
}
