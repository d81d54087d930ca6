package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/vculp/identity-server/internal/domain"
	"github.com/vculp/identity-server/internal/infrastructure/database"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

const userColumns = `id, user_name, email, password_hash, lockout_enabled, access_failed_count, lockout_end, created_at, updated_at`

// UserRepository is the Postgres implementation of domain.UserRepository
type UserRepository struct {
	logger *zap.Logger
	db     *database.Postgres
}

func NewUserRepository(db *database.Postgres, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.Exec(ctx, `
		INSERT INTO users (id, user_name, normalized_user_name, email, password_hash,
			lockout_enabled, access_failed_count, lockout_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, user.ID.String(), user.UserName, domain.NormalizeUserName(user.UserName), user.Email, user.PasswordHash,
		user.LockoutEnabled, user.AccessFailedCount, user.LockoutEnd, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrUserAlreadyExists
		}
		r.logger.Error("failed to create user", zap.Error(err))
		return domain.ErrDatabaseQuery
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id ulid.ULID) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	return r.scanUser(row, "id")
}

func (r *UserRepository) FindByUserName(ctx context.Context, userName string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE normalized_user_name = $1`,
		domain.NormalizeUserName(userName))
	return r.scanUser(row, "user name")
}

func (r *UserRepository) scanUser(row pgx.Row, by string) (*domain.User, error) {
	var (
		user domain.User
		id   string
	)
	err := row.Scan(&id, &user.UserName, &user.Email, &user.PasswordHash, &user.LockoutEnabled,
		&user.AccessFailedCount, &user.LockoutEnd, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.logger.Error("failed to find user", zap.String("by", by), zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}

	user.ID, err = ulid.Parse(id)
	if err != nil {
		r.logger.Error("stored user id is not a ULID", zap.String("id", id), zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}
	return &user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID ulid.ULID, passwordHash string) error {
	return r.update(ctx, "update password", `
		UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3
	`, passwordHash, time.Now().UTC(), userID.String())
}

// RecordFailedAccess increments the counter inside the UPDATE; concurrent
// failures serialize on the row lock.
func (r *UserRepository) RecordFailedAccess(ctx context.Context, userID ulid.ULID, maxAttempts int, lockoutEnd time.Time) (bool, error) {
	var lockedOut bool
	err := r.db.QueryRow(ctx, `
		UPDATE users SET
			access_failed_count = CASE WHEN access_failed_count + 1 >= $1 THEN 0 ELSE access_failed_count + 1 END,
			lockout_end = CASE WHEN access_failed_count + 1 >= $1 THEN $2 ELSE lockout_end END,
			updated_at = $3
		WHERE id = $4
		RETURNING access_failed_count = 0
	`, maxAttempts, lockoutEnd, time.Now().UTC(), userID.String()).Scan(&lockedOut)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrUserNotFound
		}
		r.logger.Error("failed to record failed access", zap.Error(err))
		return false, domain.ErrDatabaseQuery
	}
	return lockedOut, nil
}

func (r *UserRepository) ResetAccessFailed(ctx context.Context, userID ulid.ULID) error {
	return r.update(ctx, "reset failed access", `
		UPDATE users SET access_failed_count = 0, lockout_end = NULL, updated_at = $1 WHERE id = $2
	`, time.Now().UTC(), userID.String())
}

func (r *UserRepository) update(ctx context.Context, op, sql string, args ...interface{}) error {
	tag, err := r.db.ExecRaw(ctx, sql, args...)
	if err != nil {
		r.logger.Error("failed to "+op, zap.Error(err))
		return domain.ErrDatabaseQuery
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) AddClaims(ctx context.Context, userID ulid.ULID, claims []domain.Claim) error {
	if len(claims) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		r.logger.Error("failed to begin transaction", zap.Error(err))
		return domain.ErrDatabaseQuery
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, c := range claims {
		batch.Queue(`INSERT INTO user_claims (user_id, claim_type, claim_value) VALUES ($1, $2, $3)`,
			userID.String(), c.Type, c.Value)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error("failed to add claims", zap.String("user_id", userID.String()), zap.Error(err))
		return domain.ErrDatabaseQuery
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("failed to commit claims", zap.Error(err))
		return domain.ErrDatabaseQuery
	}
	return nil
}

func (r *UserRepository) ListClaims(ctx context.Context, userID ulid.ULID) ([]domain.Claim, error) {
	rows, err := r.db.Query(ctx, `
		SELECT claim_type, claim_value FROM user_claims WHERE user_id = $1 ORDER BY id
	`, userID.String())
	if err != nil {
		r.logger.Error("failed to list claims", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			r.logger.Error("failed to scan claim", zap.Error(err))
			return nil, domain.ErrDatabaseQuery
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("failed to iterate claims", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}
	return claims, nil
}
