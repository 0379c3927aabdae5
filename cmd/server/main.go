package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/adpulse/adpulse/internal/alerts"
	"github.com/adpulse/adpulse/internal/database"
	"github.com/adpulse/adpulse/internal/scheduler"
	"github.com/adpulse/adpulse/internal/server"
	"github.com/adpulse/adpulse/internal/store"
	syncsvc "github.com/adpulse/adpulse/internal/sync"
	"github.com/adpulse/adpulse/pkg/anomaly"
	"github.com/adpulse/adpulse/pkg/cache"
	"github.com/adpulse/adpulse/pkg/config"
	"github.com/adpulse/adpulse/pkg/logger"
	"github.com/adpulse/adpulse/pkg/notify"
	"github.com/adpulse/adpulse/pkg/platforms/facebook"
	"github.com/adpulse/adpulse/pkg/platforms/google"
	"github.com/adpulse/adpulse/pkg/tracing"
)

// appConfig is the full configuration tree loaded from file and env.
type appConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" default:"json"`

	Server    *server.Config    `yaml:"server"`
	Scheduler *scheduler.Config `yaml:"scheduler"`
	Tracing   *tracing.Config   `yaml:"tracing"`

	RedisEnabled bool               `yaml:"redis_enabled" env:"REDIS_ENABLED" default:"false"`
	Redis        *cache.RedisConfig `yaml:"redis"`

	Credentials syncsvc.CredentialsConfig `yaml:"credentials"`
	Email       notify.EmailConfig        `yaml:"email"`

	Facebook *facebook.Config `yaml:"facebook_api"`
	Google   *google.Config   `yaml:"google_api"`
}

func defaultAppConfig() *appConfig {
	return &appConfig{
		LogLevel:  "info",
		LogFormat: "json",
		Server:    server.GetDefaultConfig(),
		Scheduler: scheduler.GetDefaultConfig(),
		Tracing:   tracing.GetDefaultConfig(),
		Redis:     cache.DefaultRedisConfig(),
		Facebook:  &facebook.Config{},
		Google:    &google.Config{},
	}
}

func main() {
	var (
		configFile     = flag.String("config", "", "Path to configuration file")
		generateConfig = flag.String("generate-config", "", "Generate example configuration file at specified path")
		validateOnly   = flag.Bool("validate-config", false, "Validate configuration and exit")
		host           = flag.String("host", "", "Server host override")
		port           = flag.Int("port", 0, "Server port override")
		dbHost         = flag.String("db-host", "", "Database host override")
		dbPort         = flag.Int("db-port", 0, "Database port override")
		dbPassword     = flag.String("db-password", "", "Database password override")
		logLevel       = flag.String("log-level", "", "Log level override")
		version        = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Println("AdPulse Server v1.0.0")
		os.Exit(0)
	}

	loader := config.NewLoader("ADPULSE")
	appCfg := defaultAppConfig()

	if *generateConfig != "" {
		if err := config.ValidateConfigPath(*generateConfig); err != nil {
			log.Fatalf("Invalid config path: %v", err)
		}
		if err := loader.WriteExample(*generateConfig, appCfg); err != nil {
			log.Fatalf("Failed to generate config file: %v", err)
		}
		fmt.Printf("Example configuration file generated at: %s\n", *generateConfig)
		os.Exit(0)
	}

	if err := loader.Load(*configFile, appCfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command line flags win over file and environment.
	if *host != "" {
		appCfg.Server.Host = *host
	}
	if *port != 0 {
		appCfg.Server.Port = *port
	}
	if *dbHost != "" {
		appCfg.Server.Database.Host = *dbHost
	}
	if *dbPort != 0 {
		appCfg.Server.Database.Port = *dbPort
	}
	if envPort := os.Getenv("SERVER_PORT"); envPort != "" && *port == 0 {
		if p, err := strconv.Atoi(envPort); err == nil {
			appCfg.Server.Port = p
		}
	}
	if *dbPassword != "" {
		appCfg.Server.Database.Password = *dbPassword
	}
	if *logLevel != "" {
		appCfg.LogLevel = *logLevel
	}

	if *validateOnly {
		if err := appCfg.Server.Validate(); err != nil {
			fmt.Printf("Configuration validation failed:\n%v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration validation passed successfully.")
		os.Exit(0)
	}

	logFormat := logger.JSONFormat
	if appCfg.LogFormat == "text" {
		logFormat = logger.TextFormat
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:   logger.ParseLogLevel(appCfg.LogLevel),
		Format:  logFormat,
		Output:  os.Stdout,
		Service: "adpulse",
		Version: "1.0.0",
	})

	shutdownTracing, err := tracing.Init(context.Background(), appCfg.Tracing)
	if err != nil {
		appLogger.Fatal("Failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	db, err := database.New(appCfg.Server.Database)
	if err != nil {
		appLogger.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(connectCtx); err != nil {
		appLogger.Fatal("Failed to connect to database: %v", err)
	}

	var cacheStore cache.Cache
	if appCfg.RedisEnabled {
		cacheStore, err = cache.NewRedisCache(appCfg.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to redis: %v", err)
		}
	} else {
		cacheStore = cache.NewMemoryCache()
	}
	defer cacheStore.Close()

	// Stores
	metricStore := store.NewMetricStore(db.Tenant())
	ruleStore := store.NewAlertRuleStore(db.Tenant())
	accountStore := store.NewAccountStore(db)

	// Sync pipeline
	credSource := syncsvc.NewConfigCredentialSource(appCfg.Credentials)
	syncService := syncsvc.NewService(
		metricStore,
		accountStore,
		syncsvc.NewHealthCounters(cacheStore),
		appLogger,
		facebook.NewClient(appCfg.Facebook),
		google.NewClient(appCfg.Google),
	)

	// Alerting
	detector := anomaly.NewDetector(metricStore)
	dispatcher := notify.NewDispatcher(appLogger, notify.NewEmailChannel(appCfg.Email))
	evaluator := alerts.NewEvaluator(ruleStore, metricStore, detector, dispatcher, appLogger)

	// Background jobs
	sched := scheduler.New(appCfg.Scheduler, accountStore, syncService, credSource, evaluator, appLogger)
	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// HTTP API
	health := server.HealthHandler(map[string]server.HealthChecker{
		"database": db,
		"cache":    cacheStore,
	})
	srv, err := server.New(appCfg.Server, appLogger, health,
		server.NewAlertRuleController(ruleStore, evaluator, appCfg.Server.DefaultPageSize, appCfg.Server.MaxPageSize),
		server.NewSyncController(accountStore, syncService, credSource),
		server.NewDashboardController(metricStore, cacheStore, appCfg.Server.DashboardCacheTTL, appLogger),
		server.NewAnomalyController(detector),
	)
	if err != nil {
		appLogger.Fatal("Failed to create server: %v", err)
	}

	if err := srv.Start(ctx); err != nil {
		appLogger.Fatal("Server failed: %v", err)
	}
}
