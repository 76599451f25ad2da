package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/platform/logger"
	"github.com/yungbote/movielens-insights/internal/types"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string
	DSN    string
}

// Enabled reports whether a store was configured at all.
func (c Config) Enabled() bool { return strings.TrimSpace(c.Driver) != "" }

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "":
		return nil
	case DriverSQLite, DriverPostgres:
	default:
		return apperr.Invalid("unknown store driver %q", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return apperr.Invalid("store driver %q requires a dsn", c.Driver)
	}
	return nil
}

type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	driver string
}

func Open(log *logger.Logger, cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, apperr.Invalid("store driver is not configured")
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	serviceLog := log.With("service", "ResultStore", "driver", driver)

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	}

	serviceLog.Info("Connecting to result store...", "store_dsn", cfg.DSN)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		serviceLog.Error("Failed to connect to result store", "error", err)
		return nil, fmt.Errorf("connect to %s store: %w", driver, err)
	}
	return &Service{db: gdb, log: serviceLog, driver: driver}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating result tables...")
	err := s.db.AutoMigrate(
		&types.PipelineRun{},
		&types.ClusterScore{},
		&types.ClusterAssignment{},
		&types.GenreRanking{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for result tables", "error", err)
		return err
	}
	return nil
}

func (s *Service) DB() *gorm.DB {
	return s.db
}

func (s *Service) Driver() string { return s.driver }

// Transaction runs fn in a single transaction bound to ctx.
func (s *Service) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
