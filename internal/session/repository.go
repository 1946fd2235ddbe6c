package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	pkgerrors "askline/pkg/errors"
)

type Repository interface {
	Create(ctx context.Context, sess *Session) error
	GetByCode(ctx context.Context, code string) (*Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]Session, error)
	End(ctx context.Context, id string, endedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, sess *Session) error {
	query := `
		INSERT INTO sessions (id, code, title, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		sess.ID, sess.Code, sess.Title, sess.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("code", sess.Code)
			}
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Session, error) {
	query := `
		SELECT id, code, title, created_at, ended_at
		FROM sessions
		WHERE code = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, code))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, code, title, created_at, ended_at
		FROM sessions
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) List(ctx context.Context) ([]Session, error) {
	query := `
		SELECT id, code, title, created_at, ended_at
		FROM sessions
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.ID, &sess.Code, &sess.Title, &sess.CreatedAt, &sess.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

func (r *PostgresRepository) End(ctx context.Context, id string, endedAt time.Time) error {
	query := `
		UPDATE sessions
		SET ended_at = $1
		WHERE id = $2 AND ended_at IS NULL
	`

	res, err := r.db.ExecContext(ctx, query, endedAt, id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("session not found or already ended")
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("session not found")
	}

	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID, &sess.Code, &sess.Title, &sess.CreatedAt, &sess.EndedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &sess, nil
}
