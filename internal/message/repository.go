package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"askline/pkg/models"
)

type Repository interface {
	Create(ctx context.Context, msg *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.Message, error)
	Update(ctx context.Context, msg *models.Message) error
	Delete(ctx context.Context, id string) error
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, session_id, type, content, created_at, read, answered)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.SessionID, msg.Type, msg.Content,
		msg.CreatedAt, msg.Read, msg.Answered,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	query := `
		SELECT id, session_id, type, content, created_at, read, answered
		FROM messages
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	var msg models.Message
	err := row.Scan(
		&msg.ID, &msg.SessionID, &msg.Type, &msg.Content,
		&msg.CreatedAt, &msg.Read, &msg.Answered,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &msg, nil
}

// ListBySession returns the session's messages in submission order.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Message, error) {
	query := `
		SELECT id, session_id, type, content, created_at, read, answered
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID, &msg.SessionID, &msg.Type, &msg.Content,
			&msg.CreatedAt, &msg.Read, &msg.Answered,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, msg *models.Message) error {
	query := `
		UPDATE messages
		SET read = $1, answered = $2
		WHERE id = $3
	`

	res, err := r.db.ExecContext(ctx, query, msg.Read, msg.Answered, msg.ID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("message not found")
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM messages WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("message not found")
	}

	return nil
}

func (r *PostgresRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	query := `DELETE FROM messages WHERE session_id = $1`

	res, err := r.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear messages: %w", err)
	}

	return res.RowsAffected()
}
