package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/audit"
	auditPostgres "github.com/frahmantamala/ecodocs/internal/audit/postgres"
	"github.com/frahmantamala/ecodocs/internal/auth"
	authPostgres "github.com/frahmantamala/ecodocs/internal/auth/postgres"
	"github.com/frahmantamala/ecodocs/internal/document"
	documentPostgres "github.com/frahmantamala/ecodocs/internal/document/postgres"
	"github.com/frahmantamala/ecodocs/internal/settings"
	settingsPostgres "github.com/frahmantamala/ecodocs/internal/settings/postgres"
	"github.com/frahmantamala/ecodocs/internal/storage"
	"github.com/frahmantamala/ecodocs/internal/transport"
	"github.com/frahmantamala/ecodocs/internal/transport/rest"
	"github.com/frahmantamala/ecodocs/internal/transport/swagger"
	"github.com/frahmantamala/ecodocs/internal/user"
	userPostgres "github.com/frahmantamala/ecodocs/internal/user/postgres"
	"github.com/frahmantamala/ecodocs/pkg/logger"
)

const (
	openAPIPath     = "api/openapi.yml"
	shutdownTimeout = 30 * time.Second
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Store  *storage.LocalStore
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.AppEnv)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.AppEnv, config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	store, err := storage.NewLocalStore(config.Storage.RootDir, lg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	specPath := ""
	if _, err := os.Stat(openAPIPath); err == nil {
		if _, err := swagger.LoadSpec(context.Background(), openAPIPath); err != nil {
			_ = db.Close()
			return nil, err
		}
		specPath = openAPIPath
	} else {
		lg.Warn("OpenAPI spec not found; API docs disabled", "path", openAPIPath)
	}

	return &Dependencies{
		Config: config,
		DB:     db,
		Gorm:   gdb,
		Store:  store,
		Router: BuildRouter(config, db, gdb, store, lg, specPath),
		Logger: lg,
	}, nil
}

// BuildRouter wires repositories, services and handlers onto a new router.
// sqlDB and gdb must share the same underlying connection pool.
func BuildRouter(cfg *internal.Config, sqlDB *sqlx.DB, gdb *gorm.DB, store *storage.LocalStore, lg *slog.Logger, specPath string) *chi.Mux {
	base := transport.NewBaseHandler(lg)
	base.PublicBaseURL = cfg.Server.BaseURL
	base.MaxRequestBytes = cfg.Storage.MaxRequestBytes

	auditService := audit.NewService(auditPostgres.NewAuditRepository(gdb), lg)

	authService := auth.NewService(
		authPostgres.NewRepository(gdb),
		auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration),
		auditService,
		cfg.Security.BCryptCost,
		lg,
	)
	userService := user.NewService(userPostgres.NewUserRepository(gdb), store, auditService, lg)
	settingsService := settings.NewService(settingsPostgres.NewSettingsRepository(gdb), store, auditService, lg)
	documentService := document.NewService(
		documentPostgres.NewDocumentRepository(gdb),
		documentPostgres.NewStatsRepository(sqlDB),
		store,
		auditService,
		lg,
	)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, sqlDB.DB, rest.Handlers{
		Auth:     auth.NewHandler(base, authService),
		User:     user.NewHandler(base, userService),
		Document: document.NewHandler(base, documentService, store),
		Settings: settings.NewHandler(base, settingsService),
		Audit:    audit.NewHandler(base, auditService),
		RBAC:     auth.NewRBACAuthorization(lg),
	}, rest.Options{
		AllowedOrigins: cfg.Server.Origins(),
		PublicDir:      store.PublicDir(),
		OpenAPIPath:    specPath,
		ExposePanics:   !cfg.IsProduction(),
	}, lg)
	return router
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers gorm over the existing pool so both share connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}
