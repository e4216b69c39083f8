package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"todoapi/pkg/config"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// ParseDialect maps the configured driver name onto a supported dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (d Dialect) String() string {
	return string(d)
}

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}

	return "sqlite3"
}

func (d Dialect) system() string {
	if d == Postgres {
		return "postgresql"
	}

	return "sqlite"
}

func (d Dialect) placeholder() squirrel.PlaceholderFormat {
	if d == Postgres {
		return squirrel.Dollar
	}

	return squirrel.Question
}

type DB struct {
	*sql.DB
	QueryBuilder squirrel.StatementBuilderType
	Dialect      Dialect
}

// Open connects to the configured store, instruments it and applies the
// embedded migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *otelzap.Logger) (*DB, error) {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}

	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := otelsql.Open(dialect.driverName(), cfg.DSN,
		otelsql.WithDBSystem(dialect.system()),
		otelsql.WithDBName(cfg.Name),
		otelsql.WithTracerProvider(otel.GetTracerProvider()),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if cfg.LogQueries {
		sqlDB = withQueryLog(sqlDB, cfg.DSN, zerolog.New(os.Stdout).With().Timestamp().Str("component", "sql").Logger())
	}

	configurePool(sqlDB, dialect, cfg)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	if cfg.AutoMigrate {
		if err := migrateStore(ctx, sqlDB, dialect, cfg); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	logger.Ctx(ctx).Info("Database ready",
		zap.String("dialect", string(dialect)),
		zap.String("name", cfg.Name),
		zap.Bool("log_queries", cfg.LogQueries),
		zap.Bool("auto_migrate", cfg.AutoMigrate))

	return New(sqlDB, dialect), nil
}

// New wraps an already opened connection pool.
func New(sqlDB *sql.DB, dialect Dialect) *DB {
	return &DB{
		DB:           sqlDB,
		QueryBuilder: squirrel.StatementBuilder.PlaceholderFormat(dialect.placeholder()),
		Dialect:      dialect,
	}
}

// withQueryLog reopens sqlDB's driver behind sqldb-logger and closes the
// original pool, which has no connections in use yet.
func withQueryLog(sqlDB *sql.DB, dsn string, logger zerolog.Logger) *sql.DB {
	logged := sqldblogger.OpenDriver(dsn, sqlDB.Driver(), zerologadapter.New(logger.Level(zerolog.DebugLevel)),
		sqldblogger.WithMinimumLevel(sqldblogger.LevelDebug),
		sqldblogger.WithLogArguments(false),
	)

	_ = sqlDB.Close()

	return logged
}

func configurePool(sqlDB *sql.DB, dialect Dialect, cfg config.DatabaseConfig) {
	// every connection to :memory: is a separate empty database
	if dialect == SQLite && IsMemoryDSN(cfg.DSN) {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		return
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

func IsMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// migrateStore runs migrations on the pool itself for SQLite, so in-memory
// databases see the schema. Postgres gets a short-lived pool because its
// migration driver pins a connection until closed.
func migrateStore(ctx context.Context, sqlDB *sql.DB, dialect Dialect, cfg config.DatabaseConfig) error {
	if dialect == SQLite {
		return RunMigrations(sqlDB, dialect)
	}

	migrationDB, err := sql.Open(dialect.driverName(), cfg.DSN)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	// Close is idempotent, RunMigrations may already have closed it
	defer migrationDB.Close()

	if err := migrationDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migration connection: %w", err)
	}

	return RunMigrations(migrationDB, dialect)
}

// Ping runs the trivial query the health check relies on.
func (db *DB) Ping(ctx context.Context) error {
	var one int

	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}

	return nil
}
