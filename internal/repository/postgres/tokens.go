package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
)

// RefreshTokenRepository implements port.RefreshTokenRepository using
// PostgreSQL. Tokens are stored as SHA-256 hashes; a row's presence is the
// only thing that keeps a session alive.
type RefreshTokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRefreshTokenRepository wires a PostgreSQL-backed refresh token store.
func NewRefreshTokenRepository(exec pgExecutor) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Exists reports whether the token hash is present in the store.
func (r *RefreshTokenRepository) Exists(ctx context.Context, tokenHash string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		From("refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select refresh token sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select refresh token: %w", err)
	}

	return true, nil
}

// Save persists the token unless the hash is already present.
func (r *RefreshTokenRepository) Save(ctx context.Context, token domain.RefreshToken) error {
	stmt, args, err := r.builder.Insert("refresh_tokens").
		Columns("token_hash", "email", "created_at").
		Values(token.TokenHash, token.Email, token.CreatedAt).
		Suffix("ON CONFLICT (token_hash) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// DeleteByToken revokes the session held by the token hash.
func (r *RefreshTokenRepository) DeleteByToken(ctx context.Context, tokenHash string) error {
	stmt, args, err := r.builder.Delete("refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete refresh token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

// DeleteByTokenAndEmail revokes the token scoped to its owner's email.
func (r *RefreshTokenRepository) DeleteByTokenAndEmail(ctx context.Context, tokenHash, email string) error {
	stmt, args, err := r.builder.Delete("refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete refresh token by email sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete refresh token by email: %w", err)
	}

	return nil
}

var _ port.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
