// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/msavelyev/authkeeper/internal/dbx"
	"github.com/msavelyev/authkeeper/internal/server/migrations"
	"github.com/msavelyev/authkeeper/internal/server/repositories/onetimetokens"
	"github.com/msavelyev/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/msavelyev/authkeeper/internal/server/repositories/users"
)

type PostgresManager struct{}

// NewPostgresManager constructs a manager for PostgreSQL-backed repositories.
func NewPostgresManager() *PostgresManager {
	return &PostgresManager{}
}

func (m *PostgresManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (m *PostgresManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresManager) VerificationTokens(db dbx.DBTX) onetimetokens.Repository {
	return onetimetokens.NewVerificationRepository(db)
}

func (m *PostgresManager) ResetTokens(db dbx.DBTX) onetimetokens.Repository {
	return onetimetokens.NewResetRepository(db)
}

// Open connects to PostgreSQL through the pgx stdlib driver and runs the
// embedded migrations.
func Open(ctx context.Context, dsn string) (*sql.DB, *PostgresManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, err
	}

	m := NewPostgresManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, m, nil
}
