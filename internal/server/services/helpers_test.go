package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/msavelyev/authkeeper/internal/dbx"
	"github.com/msavelyev/authkeeper/internal/logging"
	"github.com/msavelyev/authkeeper/internal/server/events"
	"github.com/msavelyev/authkeeper/internal/server/models"
	onetimetokensrepo "github.com/msavelyev/authkeeper/internal/server/repositories/onetimetokens"
	refreshtokensrepo "github.com/msavelyev/authkeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/msavelyev/authkeeper/internal/server/repositories/users"
)

// --- shared test doubles ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (l nopLogger) With(args ...any) logging.Logger                  { return l }

// recordLogger counts Error calls for tests asserting a failure is logged.
type recordLogger struct {
	errors int
}

func (l *recordLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (l *recordLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (l *recordLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (l *recordLogger) Error(ctx context.Context, msg string, args ...any) { l.errors++ }
func (l *recordLogger) With(args ...any) logging.Logger                    { return l }

// fakeHasher lets tests control password matching without bcrypt cost.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) Verify(password, hash string) bool    { return hash == "hashed:"+password }

type capturePublisher struct {
	published []events.UserEvent
}

func (p *capturePublisher) Publish(ctx context.Context, event events.UserEvent) {
	p.published = append(p.published, event)
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byEmailOut *models.User
	byEmailErr error

	byIDOut *models.User
	byIDErr error

	existsOut bool
	existsErr error

	updatePasswordErr error
	updatedPassword   string

	markVerifiedErr error
	verifiedIDs     []string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmailOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}

func (f *fakeUsersRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	return f.existsOut, f.existsErr
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id, hashedPassword string) error {
	if f.updatePasswordErr != nil {
		return f.updatePasswordErr
	}
	f.updatedPassword = hashedPassword
	return nil
}

func (f *fakeUsersRepo) MarkEmailVerified(ctx context.Context, id string) error {
	if f.markVerifiedErr != nil {
		return f.markVerifiedErr
	}
	f.verifiedIDs = append(f.verifiedIDs, id)
	return nil
}

type fakeRefreshRepo struct {
	createErr      error
	createdDigests []string

	findOut *models.RefreshToken
	findErr error

	deleteRows    int64
	deleteErr     error
	deletedDigest string

	deleteAllErr    error
	deleteAllCalled bool

	deleteExpiredN int64
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID, hashedToken string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createdDigests = append(f.createdDigests, hashedToken)
	return nil
}

func (f *fakeRefreshRepo) FindByUserAndHash(ctx context.Context, userID, hashedToken string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) DeleteByUserAndHash(ctx context.Context, userID, hashedToken string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deletedDigest = hashedToken
	return f.deleteRows, nil
}

func (f *fakeRefreshRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	if f.deleteAllErr != nil {
		return f.deleteAllErr
	}
	f.deleteAllCalled = true
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return f.deleteExpiredN, nil
}

type fakeOneTimeRepo struct {
	createErr     error
	createdTokens []string

	findOut *models.OneTimeToken
	findErr error

	invalidatedN   int64
	invalidateErr  error
	invalidateFor  []string

	markUsedErr error
	markUsedIDs []int64

	deleteExpiredN int64
}

func (f *fakeOneTimeRepo) Create(ctx context.Context, userID, token string, expiresAt time.Time) (*models.OneTimeToken, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdTokens = append(f.createdTokens, token)
	return &models.OneTimeToken{ID: int64(len(f.createdTokens)), UserID: userID, Token: token, ExpiresAt: expiresAt}, nil
}

func (f *fakeOneTimeRepo) FindByToken(ctx context.Context, token string) (*models.OneTimeToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeOneTimeRepo) InvalidateActiveForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	if f.invalidateErr != nil {
		return 0, f.invalidateErr
	}
	f.invalidateFor = append(f.invalidateFor, userID)
	return f.invalidatedN, nil
}

func (f *fakeOneTimeRepo) MarkUsed(ctx context.Context, id int64, usedAt time.Time) error {
	if f.markUsedErr != nil {
		return f.markUsedErr
	}
	f.markUsedIDs = append(f.markUsedIDs, id)
	return nil
}

func (f *fakeOneTimeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return f.deleteExpiredN, nil
}

type fakeRepoManager struct {
	u  *fakeUsersRepo
	r  *fakeRefreshRepo
	vt *fakeOneTimeRepo
	rt *fakeOneTimeRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u:  &fakeUsersRepo{},
		r:  &fakeRefreshRepo{},
		vt: &fakeOneTimeRepo{},
		rt: &fakeOneTimeRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return m.r
}
func (m *fakeRepoManager) VerificationTokens(db dbx.DBTX) onetimetokensrepo.Repository {
	return m.vt
}
func (m *fakeRepoManager) ResetTokens(db dbx.DBTX) onetimetokensrepo.Repository {
	return m.rt
}
