package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/internal/container"
	"github.com/oksasatya/go-ddd-diary/internal/domain/credential"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/internal/infrastructure/authbackend"
	esinfra "github.com/oksasatya/go-ddd-diary/internal/infrastructure/elasticsearch"
	gcsinfra "github.com/oksasatya/go-ddd-diary/internal/infrastructure/gcs"
	mqinfra "github.com/oksasatya/go-ddd-diary/internal/infrastructure/rabbitmq"
	handlers "github.com/oksasatya/go-ddd-diary/internal/interface/http"
	"github.com/oksasatya/go-ddd-diary/internal/router/modules"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
	"github.com/oksasatya/go-ddd-diary/pkg/validation"
)

// DiaryFactory builds one client's stack per request: an auth backend over
// the request's cookies, a session manager and a diary on top.
type DiaryFactory struct {
	Accounts  repository.AccountRepository
	Profiles  repository.ProfileRepository
	Sessions  authbackend.SessionStore
	JWT       *helpers.JWTManager
	Cookies   *helpers.Manager
	Directory *credential.Directory
	Entries   *application.EntryService
	Activity  application.ActivityPublisher
	Logger    *logrus.Logger
}

func (f *DiaryFactory) Open(c *gin.Context) (*application.Diary, func(), error) {
	backend := authbackend.New(f.Accounts, f.Profiles, f.Sessions, f.JWT, f.Cookies.Jar(c), f.Logger)
	mgr := application.NewSessionManager(backend, f.Directory, f.Logger)
	mgr.Activity = f.Activity
	d := application.NewDiary(mgr, f.Entries, application.NewAdminResolver(f.Profiles, f.Logger), f.Logger)
	return d, func() {
		d.Close()
		mgr.Close()
		backend.Close()
	}, nil
}

// Provision creates an account and profile for every directory user that has
// none and sets the admin flags to adminEmails. The server runs it at start.
func (f *DiaryFactory) Provision(ctx context.Context, adminEmails []string) ([]application.ProvisionResult, error) {
	backend := authbackend.New(f.Accounts, f.Profiles, f.Sessions, f.JWT, &authbackend.MemoryTokens{}, f.Logger)
	defer backend.Close()
	return application.NewProvisioner(backend, f.Accounts, f.Profiles, f.Logger).Provision(ctx, f.Directory, adminEmails)
}

// Limits are the per-window request budgets.
type Limits struct {
	Login  int
	API    int
	Window time.Duration
}

// Deps is everything Mount needs.
type Deps struct {
	Factory      *DiaryFactory
	Redis        goredis.Scripter
	Limits       Limits
	DebugMetrics bool
	Logger       *logrus.Logger
}

// Mount registers every diary module on r.
func Mount(r *Registry, d Deps) {
	validation.Init()
	errs := handlers.ErrorWriter{Logger: d.Logger}
	g := modules.Guards{
		Open:    d.Factory.Open,
		OnError: errs.Write,
		Redis:   d.Redis,
		Window:  d.Limits.Window,
	}
	entryHandler := handlers.NewEntryHandler(d.Logger)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(d.Logger), g, d.Limits.Login))
	r.Add(modules.NewEntryModule(entryHandler, g, d.Limits.API))
	r.Add(modules.NewAdminModule(entryHandler, g))
	if d.DebugMetrics {
		r.Add(modules.NewDebugModule(g, d.Limits.API))
	}
}

func buildEntryService() *application.EntryService {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	loc, err := cfg.Location()
	if err != nil {
		logger.WithError(err).Warn("unknown DIARY_TIMEZONE, using the process zone")
		loc = time.Local
	}
	svc := application.NewEntryService(container.GetStores().Entries, loc, logger)

	if es := container.GetES(); es != nil && cfg.SearchEnabled {
		svc.Indexer = esinfra.NewEntryIndex(es, cfg.ESEntriesIndex, logger)
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSExportBucket != "" {
		exports, err := gcsinfra.NewExportStore(gcs, cfg.GCSExportBucket, cfg.GCSExportPrefix)
		if err != nil {
			logger.WithError(err).Warn("day export disabled")
		} else {
			svc.Exports = exports
		}
	}
	if act := buildActivity(); act != nil {
		svc.Activity = act
	}
	return svc
}

func buildActivity() application.ActivityPublisher {
	if pub := container.GetRabbitPub(); pub != nil && container.GetConfig().ActivityEnabled {
		return mqinfra.NewActivityPublisher(pub)
	}
	return nil
}

// InitModules provisions the directory users, then initializes all
// application modules from the container and registers them with the router
// registry. Call once during startup.
func InitModules(ctx context.Context, r *Registry) error {
	cfg := container.GetConfig()
	stores := container.GetStores()

	factory := &DiaryFactory{
		Accounts:  stores.Accounts,
		Profiles:  stores.Profiles,
		Sessions:  stores.Sessions,
		JWT:       container.GetJWT(),
		Cookies:   helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		Directory: container.GetDirectory(),
		Entries:   buildEntryService(),
		Activity:  buildActivity(),
		Logger:    container.GetLogger(),
	}
	if _, err := factory.Provision(ctx, cfg.Admins()); err != nil {
		return err
	}

	var limiter goredis.Scripter
	if rdb := container.GetRedis(); rdb != nil {
		limiter = rdb
	}

	Mount(r, Deps{
		Factory: factory,
		Redis:   limiter,
		Limits: Limits{
			Login:  cfg.LoginRateLimit,
			API:    cfg.APIRateLimit,
			Window: cfg.RateWindow,
		},
		DebugMetrics: cfg.DebugMetricsEnabled,
		Logger:       container.GetLogger(),
	})
	return nil
}
