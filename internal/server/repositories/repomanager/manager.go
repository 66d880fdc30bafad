package repomanager

import (
	"context"
	"database/sql"

	"github.com/msavelyev/authkeeper/internal/dbx"
	"github.com/msavelyev/authkeeper/internal/server/repositories/onetimetokens"
	"github.com/msavelyev/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/msavelyev/authkeeper/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a DBTX, so a service
// can run the same repository code against the pool or inside a
// transaction opened with dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	VerificationTokens(db dbx.DBTX) onetimetokens.Repository
	ResetTokens(db dbx.DBTX) onetimetokens.Repository
}
