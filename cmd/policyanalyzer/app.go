package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bryanwahyu/policy-analyzer/internal/application"
	appanalyses "github.com/bryanwahyu/policy-analyzer/internal/application/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/config"
	"github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/domain/failures"
	"github.com/bryanwahyu/policy-analyzer/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/policy-analyzer/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/policy-analyzer/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/policy-analyzer/internal/infra/db/sqlite"
	"github.com/bryanwahyu/policy-analyzer/internal/infra/extractor/pdfkitchen"
	"github.com/bryanwahyu/policy-analyzer/internal/infra/pdfinspect"
	minioStore "github.com/bryanwahyu/policy-analyzer/internal/infra/storage"
	"github.com/bryanwahyu/policy-analyzer/internal/middleware"
)

// app holds everything a command needs; close releases it.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *sql.DB
	svc      *appanalyses.Service
	checkers map[string]middleware.HealthChecker
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config load: %w", err)
	}
	log, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

type repositories struct {
	analyses analyses.Repository
	failures failures.Repository
	migrate  func(context.Context, *sql.DB) error
}

// openDatabase connect sesuai database.driver
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, repositories, error) {
	var (
		db    *sql.DB
		repos repositories
		err   error
	)
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		if db, err = mysqlp.Connect(ctx, cfg.MySQLDSN()); err == nil {
			repos = repositories{mysqlp.NewPolicyAnalysisRepository(db), mysqlp.NewFailureRepository(db), mysqlp.Migrate}
		}
	case config.DriverPostgres:
		if db, err = postgresp.Connect(ctx, cfg.PostgresDSN()); err == nil {
			repos = repositories{postgresp.NewPolicyAnalysisRepository(db), postgresp.NewFailureRepository(db), postgresp.Migrate}
		}
	case config.DriverSQLite:
		if db, err = sqlitep.Connect(ctx, cfg.SQLiteDSN()); err == nil {
			repos = repositories{sqlitep.NewPolicyAnalysisRepository(db), sqlitep.NewFailureRepository(db), sqlitep.Migrate}
		}
	default:
		return nil, repos, fmt.Errorf("database.driver %q is not supported", cfg.Database.Driver)
	}
	if err != nil {
		return nil, repos, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	return db, repos, nil
}

// newApp wires the full service from config. metrics may be nil.
func newApp(ctx context.Context, configPath string, metrics *middleware.Metrics) (*app, error) {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, repos, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// sqlite dipakai lokal, bikin tabel otomatis
	if cfg.Database.Driver == config.DriverSQLite {
		if err := repos.migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	requester, err := openai.NewClient(openai.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	}, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	svc := &appanalyses.Service{
		Repo:      repos.analyses,
		Failures:  repos.failures,
		Extractor: pdfkitchen.NewClient(cfg.Extractor.BaseURL, cfg.Extractor.Timeout, log),
		Inspector: pdfinspect.New(),
		Requester: requester,
		Clock:     application.SystemClock{},
		Log:       log.Named("pipeline"),
		MaxPages:  cfg.Extractor.MaxPages,
	}
	if metrics != nil {
		svc.Observer = metrics
	}

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	// init minio (optional)
	if cfg.MinioEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		svc.Archive = store
		checkers["archive"] = store
	}

	log.Info("service wired",
		zap.String("driver", cfg.Database.Driver),
		zap.String("model", cfg.LLM.Model),
		zap.String("extractor", cfg.Extractor.BaseURL),
		zap.Bool("archive", cfg.MinioEnabled()),
	)
	return &app{cfg: cfg, log: log, db: db, svc: svc, checkers: checkers}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("database close", zap.Error(err))
	}
	_ = a.log.Sync()
}
