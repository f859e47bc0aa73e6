package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"foodloop/internal/foodloop/models"
)

func (r *Repository) CreateMessage(ctx context.Context, m *models.ContactMessage) error {
	if m.CreatedAt == "" {
		m.CreatedAt = r.timestamp()
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO contact_messages (id, name, email, subject, message, replied, created_at)
        VALUES (?, ?, ?, ?, ?, 0, ?)
    `, m.ID, m.Name, m.Email, m.Subject, m.Message, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages возвращает сообщения (новые первыми) вместе с ответами.
func (r *Repository) ListMessages(ctx context.Context) ([]models.ContactMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, email, subject, message, replied, created_at
        FROM contact_messages
        ORDER BY created_at DESC, id
    `)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	var (
		out   []models.ContactMessage
		index = make(map[string]int)
	)
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.Replied, &m.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		m.Replies = []models.Reply{}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	replies, err := r.db.QueryContext(ctx, `
        SELECT id, message_id, admin_id, body, created_at
        FROM message_replies
        ORDER BY created_at, id
    `)
	if err != nil {
		return nil, fmt.Errorf("query replies: %w", err)
	}
	defer replies.Close()

	for replies.Next() {
		var rp models.Reply
		if err := replies.Scan(&rp.ID, &rp.MessageID, &rp.AdminID, &rp.Body, &rp.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[rp.MessageID]; ok {
			out[i].Replies = append(out[i].Replies, rp)
		}
	}
	return out, replies.Err()
}

// AddReply сохраняет ответ администратора и помечает сообщение отвеченным.
func (r *Repository) AddReply(ctx context.Context, rp *models.Reply) error {
	if rp.CreatedAt == "" {
		rp.CreatedAt = r.timestamp()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists string
	err = tx.QueryRowContext(ctx, `SELECT id FROM contact_messages WHERE id = ?`, rp.MessageID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO message_replies (id, message_id, admin_id, body, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, rp.ID, rp.MessageID, rp.AdminID, rp.Body, rp.CreatedAt); err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE contact_messages SET replied = 1 WHERE id = ?`, rp.MessageID); err != nil {
		return fmt.Errorf("mark replied: %w", err)
	}
	return tx.Commit()
}
