package postgres

import (
	"context"
	"database/sql"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, credit_score, blacklisted FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreditScore, &u.Blacklisted)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError("user %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) SetBlacklisted(ctx context.Context, id string, blacklisted bool, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET blacklisted = $1, blacklist_reason = $2, updated_at = $3 WHERE id = $4`,
		blacklisted, reason, time.Now(), id)
	return err
}

func (r *userRepository) AdjustCreditScore(ctx context.Context, id string, delta int32) error {
	// Credit score floors at zero.
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET credit_score = GREATEST(credit_score + $1, 0), updated_at = $2 WHERE id = $3`,
		delta, time.Now(), id)
	return err
}
