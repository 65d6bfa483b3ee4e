// Package messages provides PostgreSQL-backed persistence for encrypted
// message envelopes. Byte fields (ciphertext, salt, nonce, auth tag) are
// stored as bytea so they round-trip losslessly.
package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sigilosec/sigilo/internal/common"
	"github.com/sigilosec/sigilo/internal/dbx"
	"github.com/sigilosec/sigilo/internal/models"
)

// PostgresRepository implements envelope storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, sender, recipient, ciphertext, salt, nonce, auth_tag, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.Sender, msg.Recipient, msg.Ciphertext, msg.Salt, msg.Nonce, msg.AuthTag,
		string(msg.Status), msg.SentAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := `
		SELECT id, sender, recipient, ciphertext, salt, nonce, auth_tag, status, sent_at
		FROM messages
		WHERE id = $1
	`
	msg := &models.Message{}
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID, &msg.Sender, &msg.Recipient, &msg.Ciphertext, &msg.Salt, &msg.Nonce, &msg.AuthTag,
		&status, &msg.SentAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	msg.Status = models.Status(status)
	return msg, nil
}

func (r *PostgresRepository) FindUnreadFor(ctx context.Context, handle string) ([]*models.Message, error) {
	query := `
		SELECT id, sender, recipient, ciphertext, salt, nonce, auth_tag, status, sent_at
		FROM messages
		WHERE recipient = $1 AND status = 'unread'
		ORDER BY sent_at DESC
	`
	return r.selectMessages(ctx, query, handle)
}

func (r *PostgresRepository) FindUnreadFrom(ctx context.Context, handle, sender string) ([]*models.Message, error) {
	query := `
		SELECT id, sender, recipient, ciphertext, salt, nonce, auth_tag, status, sent_at
		FROM messages
		WHERE recipient = $1 AND sender = $2 AND status = 'unread'
		ORDER BY sent_at DESC
	`
	return r.selectMessages(ctx, query, handle, sender)
}

func (r *PostgresRepository) CountUnreadFor(ctx context.Context, handle string) (int64, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE recipient = $1 AND status = 'unread'
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, handle).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// MarkRead performs the optimistic unread->read transition. Zero rows affected
// means another reader already consumed the message (or it never existed).
func (r *PostgresRepository) MarkRead(ctx context.Context, id string) error {
	query := `
		UPDATE messages SET status = 'read'
		WHERE id = $1 AND status = 'unread'
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) selectMessages(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		var item models.Message
		var status string
		if err := rows.Scan(
			&item.ID, &item.Sender, &item.Recipient, &item.Ciphertext, &item.Salt, &item.Nonce,
			&item.AuthTag, &status, &item.SentAt,
		); err != nil {
			return nil, err
		}
		item.Status = models.Status(status)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
