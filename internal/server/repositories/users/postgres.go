package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/dbx"
	"github.com/dmitrijs2005/zkvault/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	query :=
		`INSERT INTO users (id, username, password_hash, salt)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, user.ID, user.UserName, user.PasswordHash, user.Salt).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, userName string) (*models.User, error) {
	return r.getOne(ctx,
		`SELECT id, username, password_hash, salt, created_at FROM users
		 WHERE username = $1`, userName)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx,
		`SELECT id, username, password_hash, salt, created_at FROM users
		 WHERE id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var (
		user models.User
		salt sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.UserName, &user.PasswordHash, &salt, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.Salt = salt.String
	return &user, nil
}

func (r *PostgresRepository) SetSaltIfEmpty(ctx context.Context, id, salt string) (bool, error) {
	query :=
		`UPDATE users SET salt = $2
		 WHERE id = $1 AND (salt IS NULL OR salt = '')`

	res, err := r.db.ExecContext(ctx, query, id, salt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}
