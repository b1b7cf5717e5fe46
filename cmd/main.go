package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/config"
	"github.com/oksasatya/go-ddd-diary/internal/container"
	esinfra "github.com/oksasatya/go-ddd-diary/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/go-ddd-diary/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ddd-diary/internal/infrastructure/postgres"
	redisinfra "github.com/oksasatya/go-ddd-diary/internal/infrastructure/redis"
	"github.com/oksasatya/go-ddd-diary/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-diary/internal/router"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	dir, err := config.LoadCredentials(cfg)
	if err != nil {
		log.Fatalf("failed to load credentials: %v", err)
	}
	if _, err := cfg.Location(); err != nil {
		log.Fatalf("invalid DIARY_TIMEZONE: %v", err)
	}

	// Redis: sessions (postgres driver) and rate limiting
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	redisUp := helpers.PingRedis(ctx, rdb) == nil

	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("STORE_DRIVER=memory: data is lost on restart")
		store := memory.NewStore()
		container.SetStores(container.Stores{
			Accounts: store.Accounts(),
			Profiles: store.Profiles(),
			Entries:  store.Entries(),
			Sessions: store.Sessions(),
		})
	case "postgres":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		if !redisUp {
			log.Fatalf("redis unreachable at %s; sessions need it", cfg.RedisAddr)
		}
		container.SetPGPool(pool)
		container.SetStores(container.Stores{
			Accounts: pginfra.NewAccountRepository(pool),
			Profiles: pginfra.NewProfileRepository(pool),
			Entries:  pginfra.NewEntryRepository(pool),
			Sessions: redisinfra.NewSessionStore(rdb),
		})
	default:
		log.Fatalf("unknown STORE_DRIVER %q (want postgres or memory)", cfg.StoreDriver)
	}
	if redisUp {
		container.SetRedis(rdb)
	} else {
		logger.Warn("redis unreachable; rate limiting disabled")
	}

	// Optional integrations: each stays off when unconfigured or unreachable.
	if cfg.GCSExportBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("GCS unavailable; day export disabled")
		} else {
			defer func() { _ = gcsClient.Close() }()
			container.SetGCS(gcsClient)
		}
	}
	if cfg.SearchEnabled {
		setupSearch(ctx, cfg, logger)
	}
	if cfg.ActivityEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQActivityQueue)
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unavailable; activity events disabled")
		} else {
			defer pub.Close()
			container.SetRabbitPub(pub)
		}
	}

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))
	container.SetDirectory(dir)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(corsCfg))
	}
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	if err := router.InitModules(ctx, reg); err != nil {
		log.Fatalf("failed to provision accounts: %v", err)
	}
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Port, "store": cfg.StoreDriver, "users": dir.Len()}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func setupSearch(ctx context.Context, cfg *config.Config, logger *logrus.Logger) {
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err == nil {
		err = helpers.PingES(ctx, es)
	}
	if err == nil {
		err = esinfra.NewEntryIndex(es, cfg.ESEntriesIndex, logger).EnsureIndex(ctx)
	}
	if err != nil {
		logger.WithError(err).Warn("Elasticsearch unavailable; entry search disabled")
		return
	}
	container.SetES(es)
}
