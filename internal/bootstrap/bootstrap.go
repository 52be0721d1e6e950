package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/tracerstudy/tracer-sync/internal/app/controllers"
	appMigrations "github.com/tracerstudy/tracer-sync/internal/app/migrations"
	appRepos "github.com/tracerstudy/tracer-sync/internal/app/repositories"
	appRoutes "github.com/tracerstudy/tracer-sync/internal/app/routes"
	appServices "github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/config"
	"github.com/tracerstudy/tracer-sync/internal/db"
	appMiddleware "github.com/tracerstudy/tracer-sync/internal/middleware"
	pkgAuth "github.com/tracerstudy/tracer-sync/internal/pkg/auth"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
	"github.com/tracerstudy/tracer-sync/internal/seed"
)

// DefaultConfigPath is used when no --config flag is given
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Database            *db.PostgresDB
	Repos               *appRepos.Repositories
	ImportService       appServices.ImportService
	DashboardService    appServices.DashboardService
	OperatorService     appServices.OperatorService
	JWTService          *pkgAuth.JWTService
	AuthMiddleware      *appMiddleware.AuthMiddleware
	ImportController    *appControllers.ImportController
	DashboardController *appControllers.DashboardController
	OperatorController  *appControllers.OperatorController
	Logger              zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "pretty",
	})

	lgr := log.Logger
	lgr.Debug().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Debug().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Debug().Msg("Database connection successfully established.")
	return database, nil
}

// MigrateAndSeed applies the embedded migrations, then the seed file when one is configured.
func MigrateAndSeed(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) ([]string, error) {
	applied, err := appMigrations.NewMigrator(database.Pool).Migrate(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return applied, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Strs("applied", applied).Msg("Database migrations applied")

	if cfg.Seed.File == "" {
		return applied, nil
	}
	catalog, err := seed.LoadCatalog(cfg.Seed.File)
	if err != nil {
		return applied, err
	}
	repos := appRepos.NewRepositories(database.Pool)
	if err := seed.CreateDefaultData(ctx, repos.FacultyRepository, repos.ProgramRepository, catalog, lgr); err != nil {
		return applied, fmt.Errorf("seeding reference data failed: %w", err)
	}
	return applied, nil
}

// IngestOptions maps the ingest configuration onto the loader and preview settings.
func IngestOptions(cfg *config.Config) appServices.IngestOptions {
	return appServices.IngestOptions{
		Encodings:        cfg.Ingest.Encodings,
		SkipOffsets:      cfg.Ingest.SkipOffsets,
		SampleRows:       cfg.Ingest.SampleRows,
		PreviewRows:      cfg.Ingest.PreviewRows,
		PreviewCellLimit: cfg.Ingest.PreviewCellLimit,
	}
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) *Dependencies {
	deps := &Dependencies{Database: database, Logger: lgr}
	deps.Repos = appRepos.NewRepositories(database.Pool)

	resolver := appServices.NewResolver(appServices.ResolverOptions{
		DefaultFaculty: cfg.Resolver.DefaultFaculty,
		DefaultProgram: cfg.Resolver.DefaultProgram,
		Fuzzy:          cfg.Resolver.Fuzzy,
	})
	aggregates := appServices.NewAggregateUpdater()

	deps.ImportService = appServices.NewImportService(
		NewPassRunner(database, cfg.PassTimeout(), cfg.Database.LockKey),
		deps.Repos.ImportRunRepository,
		appServices.NewEngine(resolver, aggregates),
		appServices.NewRecounter(resolver, aggregates),
		[]appServices.Profile{
			appServices.ImportProfile(cfg.Profiles.Import),
			appServices.TracerProfile(cfg.Profiles.Tracer),
		},
		IngestOptions(cfg),
	)
	deps.DashboardService = appServices.NewDashboardService(deps.Repos.ReportRepository)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: cfg.AccessTokenTTL(),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.OperatorService = appServices.NewOperatorService(deps.Repos.OperatorRepository, deps.JWTService)

	deps.ImportController = appControllers.NewImportController(deps.ImportService, int64(cfg.Server.MaxUploadMB)<<20)
	deps.DashboardController = appControllers.NewDashboardController(deps.DashboardService)
	deps.OperatorController = appControllers.NewOperatorController(deps.OperatorService)

	return deps
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	lgr.Info().Str("mode", gin.Mode()).Msg("Gin mode set")

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger())
	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	appRoutes.SetupSystemRoutes(router, deps.Database.Pool, metricsPath)
	appRoutes.SetupRouter(router, deps.ImportController, deps.DashboardController, deps.OperatorController, deps.AuthMiddleware)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found", "timestamp": time.Now()})
	})

	return router
}
