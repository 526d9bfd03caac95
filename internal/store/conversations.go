package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Conversation is a chat session.
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single turn within a conversation. Metadata carries tool
// call details as JSON when present.
type Message struct {
	ID             int64           `json:"id"`
	ConversationID int64           `json:"conversation_id"`
	Role           string          `json:"role"`
	Content        string          `json:"content"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CreateConversation starts a new conversation, optionally titled.
func (db *DB) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO conversations (title) VALUES (?)`,
		nullString(title),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetConversation(ctx, id)
}

// GetConversation returns a conversation by id, or nil, nil if not found.
func (db *DB) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	var c Conversation
	var title, summary sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, title, summary, started_at, updated_at FROM conversations WHERE id = ?`,
		id,
	).Scan(&c.ID, &title, &summary, &c.StartedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Title = title.String
	c.Summary = summary.String
	return &c, nil
}

// RecentConversations returns the most recently updated conversations.
func (db *DB) RecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, title, summary, started_at, updated_at
		 FROM conversations ORDER BY updated_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		var title, summary sql.NullString
		if err := rows.Scan(&c.ID, &title, &summary, &c.StartedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Title = title.String
		c.Summary = summary.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetConversationTitle updates a conversation's title.
func (db *DB) SetConversationTitle(ctx context.Context, id int64, title string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set conversation title: %w", err)
	}
	return nil
}

// SetConversationSummary updates a conversation's summary.
func (db *DB) SetConversationSummary(ctx context.Context, id int64, summary string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE conversations SET summary = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		summary, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set conversation summary: %w", err)
	}
	return nil
}

// SaveMessage appends a message to a conversation and bumps the
// conversation's updated_at.
func (db *DB) SaveMessage(ctx context.Context, conversationID int64, role, content string, metadata json.RawMessage) (*Message, error) {
	var meta any
	if len(metadata) > 0 {
		meta = string(metadata)
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, metadata) VALUES (?, ?, ?, ?)`,
		conversationID, role, content, meta,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		conversationID,
	); err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	var m Message
	var raw sql.NullString
	err = db.QueryRowContext(ctx,
		`SELECT id, conversation_id, role, content, metadata, created_at FROM messages WHERE id = ?`,
		id,
	).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &raw, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if raw.Valid {
		m.Metadata = json.RawMessage(raw.String)
	}
	return &m, nil
}

// RecentMessages returns the last limit messages of a conversation in
// chronological order.
func (db *DB) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, metadata, created_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		conversationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Flip to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ConversationMessages returns all messages of a conversation in
// chronological order.
func (db *DB) ConversationMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, metadata, created_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY created_at, id`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// DeleteConversation removes a conversation and its messages.
func (db *DB) DeleteConversation(ctx context.Context, id int64) (bool, error) {
	if _, err := db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var m Message
		var raw sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &raw, &m.CreatedAt); err != nil {
			return nil, err
		}
		if raw.Valid {
			m.Metadata = json.RawMessage(raw.String)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
