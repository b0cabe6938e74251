package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"shelfwise/api/models"
)

// ErrUserNotFound is returned when a lookup matches no user row.
var ErrUserNotFound = errors.New("user not found")

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts a new user with default role/status and a zero
// engagement score.
func (s *UserStore) CreateUser(ctx context.Context, email string, hashedPassword []byte, firstName, lastName string) (*models.User, error) {
	user := &models.User{}
	query := `
		INSERT INTO users (email, hashed_password, first_name, last_name, role, status, engagement_score)
		VALUES ($1, $2, $3, $4, 'user', 'active', 0)
		RETURNING id, email, first_name, last_name, role, status, engagement_score, last_activity, created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query, email, hashedPassword, firstName, lastName).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Status,
		&user.EngagementScore,
		&user.LastActivity,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return nil, fmt.Errorf("user with email '%s' already exists", email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, hashed_password, first_name, last_name, role, status, engagement_score, last_activity, created_at, updated_at
		FROM users
		WHERE email = $1;
	`
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Status,
		&user.EngagementScore,
		&user.LastActivity,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, hashed_password, first_name, last_name, role, status, engagement_score, last_activity, created_at, updated_at
		FROM users
		WHERE id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Status,
		&user.EngagementScore,
		&user.LastActivity,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// GetEngagement returns the current engagement score and last activity
// timestamp for a user, for the scorer's read-modify-write cycle.
func (s *UserStore) GetEngagement(ctx context.Context, id int64) (float64, *time.Time, error) {
	var score float64
	var lastActivity *time.Time
	query := `SELECT engagement_score, last_activity FROM users WHERE id = $1;`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&score, &lastActivity)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil, ErrUserNotFound
		}
		return 0, nil, fmt.Errorf("failed to get engagement for user %d: %w", id, err)
	}
	return score, lastActivity, nil
}

// UpdateEngagement persists a newly computed engagement score and bumps the
// user's last activity timestamp.
func (s *UserStore) UpdateEngagement(ctx context.Context, id int64, score float64, lastActivity time.Time) error {
	query := `UPDATE users SET engagement_score = $2, last_activity = $3, updated_at = now() WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id, score, lastActivity)
	if err != nil {
		return fmt.Errorf("failed to update engagement for user %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check engagement update for user %d: %w", id, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetDisplayNamesByIDs resolves user ids to display names for read-side
// enrichment of analytics views. Missing ids are simply absent from the map.
func (s *UserStore) GetDisplayNamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string)
	if len(ids) == 0 {
		return names, nil
	}

	query := `SELECT id, email, first_name, last_name FROM users WHERE id = ANY($1);`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan user display row: %w", err)
		}
		names[u.ID] = u.DisplayName()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during user display query: %w", err)
	}

	return names, nil
}
