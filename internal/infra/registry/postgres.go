package registry

import (
	"context"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Use pgx via database/sql
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/vietddude/routefleet/internal/core/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Postgres reads sources from the sources table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres opens and pings the database.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set pool configuration
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(4)
	}

	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(1)
	}

	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Migrate applies the embedded goose migrations.
func (p *Postgres) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, p.db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// List returns enabled sources ordered by id.
func (p *Postgres) List(ctx context.Context) ([]domain.SourceID, error) {
	query := `
		SELECT id
		FROM sources
		WHERE enabled
		ORDER BY id
	`

	var ids []string
	if err := p.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sortedIDs(ids), nil
}

// Add registers sources, ignoring ids that already exist.
func (p *Postgres) Add(ctx context.Context, ids ...domain.SourceID) error {
	if err := validateAdd(ids); err != nil {
		return err
	}

	query := `
		INSERT INTO sources (id, enabled, created_at)
		VALUES ($1, TRUE, NOW())
		ON CONFLICT (id) DO NOTHING
	`

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, string(id)); err != nil {
			return fmt.Errorf("failed to add source %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sources: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}
