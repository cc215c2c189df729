package router

import (
	"context"
	"errors"
	"time"

	authsvc "estate-backend/internal/application/auth"
	favsvc "estate-backend/internal/application/favorites"
	healthsvc "estate-backend/internal/application/health"
	listsvc "estate-backend/internal/application/listings"
	notifsvc "estate-backend/internal/application/notifications"
	"estate-backend/internal/config"
	"estate-backend/internal/infrastructure/cache"
	"estate-backend/internal/infrastructure/database"
	"estate-backend/internal/infrastructure/events"
	authhandler "estate-backend/internal/interfaces/handlers/auth"
	favhandler "estate-backend/internal/interfaces/handlers/favorites"
	healthhandler "estate-backend/internal/interfaces/handlers/health"
	listhandler "estate-backend/internal/interfaces/handlers/listings"
	notifhandler "estate-backend/internal/interfaces/handlers/notifications"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Deps are the clients the HTTP app is built on. Events may be nil.
type Deps struct {
	DB      *gorm.DB
	Rdb     *redis.Client
	Events  events.Publisher
	Session middleware.SessionConfig
	Cors    middleware.CORSConfig

	ListingCacheTTL time.Duration
	HealthAdminKey  string
	OptionalPingers map[string]healthsvc.Pinger
}

// Resources owns the connections opened by CreateApp.
type Resources struct {
	DB   *gorm.DB
	Rdb  *redis.Client
	NATS *events.NATSPublisher
}

// Close releases every connection.
func (r *Resources) Close() {
	if r.NATS != nil {
		r.NATS.Close()
	}
	if r.Rdb != nil {
		_ = r.Rdb.Close()
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// CreateApp opens the database, Redis and (when configured) NATS, runs
// migrations and returns the wired Fiber app.
func CreateApp(cfg *config.Config) (*fiber.App, *Resources, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, nil, errors.New("REDIS_URL is required")
	}

	res := &Resources{}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	res.DB = db
	if err := database.AutoMigrate(db); err != nil {
		res.Close()
		return nil, nil, err
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		res.Close()
		return nil, nil, err
	}
	res.Rdb = redis.NewClient(opt)

	deps := Deps{
		DB:  db,
		Rdb: res.Rdb,
		Session: middleware.SessionConfig{
			Secret:            cfg.SessionSecret,
			AllowCrossSiteDev: cfg.AllowCrossSiteDev,
			IsProduction:      cfg.IsProduction(),
		},
		Cors: middleware.CORSConfig{
			AllowedSuffix: cfg.FrontendURLEndsWith,
			DevPassword:   cfg.DevPassword,
		},
		ListingCacheTTL: cfg.ListingCacheTTL,
		HealthAdminKey:  cfg.HealthAdminKey,
	}

	if cfg.NatsURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NatsURL)
		if err != nil {
			res.Close()
			return nil, nil, err
		}
		res.NATS = pub
		deps.Events = pub
		deps.OptionalPingers = map[string]healthsvc.Pinger{"nats": pub}
	}

	return NewApp(deps), res, nil
}

// NewApp builds the Fiber app with middleware and routes over deps.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.CORS(deps.Cors))
	app.Use(middleware.Session(deps.Rdb, deps.Session))
	app.Use(middleware.HealthMarker(deps.Rdb))
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            deps.Rdb,
		DB:             gormPinger(deps.DB),
		Optional:       deps.OptionalPingers,
		HealthAdminKey: deps.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	users := &authsvc.Service{DB: deps.DB}
	ah := &authhandler.Handlers{
		Users:      users,
		UserFinder: users,
		Rdb:        deps.Rdb,
		Config:     deps.Session,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/register", ah.Register)
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	repo := &listsvc.Repository{DB: deps.DB}
	listingCache := cache.NewListingCache(deps.Rdb, deps.ListingCacheTTL)
	notifications := &notifsvc.Service{DB: deps.DB}
	listings := &listsvc.Service{
		Repo:     repo,
		Cache:    listingCache,
		Notifier: notifications,
	}
	favorites := &favsvc.Service{DB: deps.DB, Listings: repo, Cache: listingCache}
	if deps.Events != nil {
		listings.Events = deps.Events
		favorites.Events = deps.Events
	}

	lh := &listhandler.Handlers{Service: listings}
	pg := app.Group("/api/v1/properties")
	pg.Get("/", lh.Search)
	pg.Post("/", middleware.RequireAuth(), lh.Create)
	pg.Get("/:id", lh.Get)
	pg.Put("/:id", middleware.RequireAuth(), lh.Update)
	pg.Patch("/:id/status", middleware.RequireAuth(), lh.UpdateStatus)
	pg.Delete("/:id", middleware.RequireAuth(), lh.Delete)

	sg := app.Group("/api/v1/sale/properties")
	sg.Get("/", lh.SaleSearch)
	sg.Put("/", middleware.RequireAuth(), lh.SaleUpdate)
	sg.Delete("/", middleware.RequireAuth(), lh.SaleDelete)

	app.Get("/api/v1/users/me/properties", middleware.RequireAuth(), lh.ListMine)

	fh := &favhandler.Handlers{Service: favorites}
	fg := app.Group("/api/v1/favorites", middleware.RequireAuth())
	fg.Get("/", fh.List)
	fg.Get("/ids", fh.IDs)
	fg.Post("/", fh.Add)
	fg.Delete("/:propertyId", fh.Remove)

	nh := &notifhandler.Handlers{Service: notifications}
	ng := app.Group("/api/v1/notifications", middleware.RequireAuth())
	ng.Get("/", nh.List)
	ng.Patch("/read-all", nh.MarkAllRead)
	ng.Patch("/:id/read", nh.MarkRead)

	app.Use(func(c *fiber.Ctx) error {
		return response.NotFound(c, "Route not found")
	})

	log.Debug().Int("routes", len(app.GetRoutes())).Msg("router ready")
	return app
}

func gormPinger(db *gorm.DB) healthsvc.Pinger {
	if db == nil {
		return nil
	}
	return healthsvc.PingerFunc(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}
