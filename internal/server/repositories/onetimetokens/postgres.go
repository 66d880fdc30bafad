package onetimetokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msavelyev/authkeeper/internal/common"
	"github.com/msavelyev/authkeeper/internal/dbx"
	"github.com/msavelyev/authkeeper/internal/server/models"
)

// tables maps a token kind to its physical table. Queries interpolate the
// table name from this fixed map only, never from caller input.
var tables = map[Kind]string{
	KindVerification: "email_verification_tokens",
	KindReset:        "password_reset_tokens",
}

// PostgresRepository implements Repository over dbx.DBTX for one token kind.
type PostgresRepository struct {
	db    dbx.DBTX
	table string
}

// NewPostgresRepository constructs a repository bound to the given DBTX
// and token kind.
func NewPostgresRepository(db dbx.DBTX, kind Kind) (*PostgresRepository, error) {
	table, ok := tables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown token kind: %q", kind)
	}
	return &PostgresRepository{db: db, table: table}, nil
}

// NewVerificationRepository binds a repository to the verification table.
func NewVerificationRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, table: tables[KindVerification]}
}

// NewResetRepository binds a repository to the reset table.
func NewResetRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, table: tables[KindReset]}
}

func (r *PostgresRepository) Create(ctx context.Context, userID, token string, expiresAt time.Time) (*models.OneTimeToken, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, r.table)

	row := &models.OneTimeToken{Token: token, UserID: userID, ExpiresAt: expiresAt}
	err := r.db.QueryRowContext(ctx, query, token, userID, expiresAt).
		Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return row, nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.OneTimeToken, error) {
	query := fmt.Sprintf(`
		SELECT id, token, user_id, expires_at, used_at, created_at
		FROM %s
		WHERE token = $1
	`, r.table)

	row := &models.OneTimeToken{}
	var usedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&row.ID, &row.Token, &row.UserID, &row.ExpiresAt, &usedAt, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if usedAt.Valid {
		row.UsedAt = &usedAt.Time
	}
	return row, nil
}

func (r *PostgresRepository) InvalidateActiveForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET used_at = $2
		WHERE user_id = $1 AND used_at IS NULL
	`, r.table)

	res, err := r.db.ExecContext(ctx, query, userID, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id int64, usedAt time.Time) error {
	// Conditional update keeps used_at monotonic under concurrent callers.
	query := fmt.Sprintf(`
		UPDATE %s SET used_at = $2
		WHERE id = $1 AND used_at IS NULL
	`, r.table)

	res, err := r.db.ExecContext(ctx, query, id, usedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE expires_at < $1
	`, r.table)

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
