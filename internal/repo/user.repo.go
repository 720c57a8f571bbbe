package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"nuge-api/internal/domain"
)

type UserRepo interface {
	List(ctx context.Context, limit, offset int) ([]domain.User, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, id uuid.UUID, upd domain.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, email, raw_user_meta_data, created_at, updated_at`

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Metadata, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Metadata, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update patches only the supplied fields; metadata is merged into the
// existing jsonb document.
func (r *userRepo) Update(ctx context.Context, id uuid.UUID, upd domain.UserUpdate) (*domain.User, error) {
	if upd.Email == nil && upd.Metadata == nil {
		return r.FindByID(ctx, id)
	}

	query := `
		UPDATE users
		SET email = COALESCE($2, email),
		    raw_user_meta_data = CASE
		        WHEN $3::jsonb IS NULL THEN raw_user_meta_data
		        ELSE COALESCE(raw_user_meta_data, '{}'::jsonb) || $3::jsonb
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	var meta any
	if upd.Metadata != nil {
		meta = []byte(upd.Metadata)
	}
	var u domain.User
	err := r.db.QueryRowContext(ctx, query, id, upd.Email, meta).
		Scan(&u.ID, &u.Email, &u.Metadata, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
