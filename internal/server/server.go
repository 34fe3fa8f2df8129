package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"dbrest/internal/config"
	"dbrest/internal/database"
	"dbrest/internal/handlers"
	"dbrest/internal/logger"
	"dbrest/internal/middlewares"
	"dbrest/internal/repositories"
	"dbrest/internal/routes"
	"dbrest/internal/services"
)

// App holds everything built once at startup. It is read-only afterwards and
// shared by every request.
type App struct {
	Config        config.AppConfig
	DB            *database.DB
	Catalog       *services.Catalog
	Registry      *services.Registry
	Records       *services.RecordService
	Introspection *services.IntrospectionService
	Procedures    *services.ProcedureService
	Revocations   *repositories.RedisRepository

	rdb *redis.Client
}

// Build reflects the schema of db and wires the services. Any reflection or
// binding failure is returned; the caller must not serve traffic.
func Build(ctx context.Context, cfg config.AppConfig, db *database.DB) (*App, error) {
	schemaRepo := repositories.NewSchemaRepository(db)

	filter := make([]string, 0, len(cfg.Tables))
	for _, t := range cfg.Tables {
		filter = append(filter, t.Name)
	}

	catalog, err := services.Reflect(ctx, schemaRepo, cfg.Database.Schema, filter)
	if err != nil {
		return nil, err
	}
	registry, err := services.NewRegistry(catalog, cfg.Tables)
	if err != nil {
		return nil, &services.ReflectionError{Err: err}
	}

	pool := services.NewQueryPool(repositories.NewRecordRepository(db), cfg.Server.MaxConcurrentQueries)
	builder := services.NewQueryBuilder(db.Dialect, catalog.Schema())

	return &App{
		Config:        cfg,
		DB:            db,
		Catalog:       catalog,
		Registry:      registry,
		Records:       services.NewRecordService(registry, builder, pool),
		Introspection: services.NewIntrospectionService(catalog.Schema(), registry, schemaRepo),
		Procedures:    services.NewProcedureService(db.Dialect, catalog.Schema(), repositories.NewProcedureRepository(db), pool),
	}, nil
}

// ConnectRedis attaches the token revocation store at addr.
func (a *App) ConnectRedis(ctx context.Context, addr string) error {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	// fail fast with a clear message
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	logger.Info("Connected to Redis successfully")

	a.rdb = rdb
	a.Revocations = repositories.NewRedisRepository(rdb)
	return nil
}

// Router returns the gin engine serving the gateway.
func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middlewares.RequestID())

	if origins := a.Config.Server.CORSOrigins; len(origins) > 0 {
		corsCfg := cors.Config{
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
			ExposeHeaders: []string{middlewares.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}
		if len(origins) == 1 && origins[0] == "*" {
			corsCfg.AllowAllOrigins = true
		} else {
			corsCfg.AllowOrigins = origins
		}
		router.Use(cors.New(corsCfg))
	}

	var revoked middlewares.RevocationChecker
	if a.Revocations != nil {
		revoked = a.Revocations
	}

	routes.RegisterRoutes(router,
		middlewares.Authenticate(a.Config.Auth, revoked),
		handlers.NewSchemaHandler(a.Introspection),
		handlers.NewProcedureHandler(a.Procedures),
		handlers.NewRecordHandler(a.Records),
	)
	return router
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			logger.Warn("Closing Redis: %v", err)
		}
	}
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// NewServer connects to the configured database, builds the App and returns
// the HTTP server for it.
func NewServer(ctx context.Context, cfg config.AppConfig) (*http.Server, *App, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.StartupTimeout)*time.Second)
	defer cancel()

	app, err := Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Auth.RedisAddr != "" {
		if err := app.ConnectRedis(ctx, cfg.Auth.RedisAddr); err != nil {
			app.Close()
			return nil, nil, err
		}
	}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return server, app, nil
}

// Open connects to the configured database and builds the App without any
// HTTP concerns.
func Open(ctx context.Context, cfg config.AppConfig) (*App, error) {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Connected to %s database", db.Dialect.Name())

	app, err := Build(ctx, cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}
