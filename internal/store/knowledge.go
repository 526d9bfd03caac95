package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Knowledge is a fact the assistant knows about the user.
type Knowledge struct {
	ID         int64     `json:"id"`
	Category   string    `json:"category"`
	Subject    string    `json:"subject"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SaveKnowledge stores a knowledge entry. If an entry in the same category
// already covers the subject (substring match), its content is replaced
// instead of creating a duplicate.
func (db *DB) SaveKnowledge(ctx context.Context, category, subject, content, source string, confidence float64) (*Knowledge, error) {
	var existingID int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM knowledge WHERE subject LIKE ? AND category = ? LIMIT 1`,
		"%"+subject+"%", category,
	).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		res, err := db.ExecContext(ctx,
			`INSERT INTO knowledge (category, subject, content, source, confidence) VALUES (?, ?, ?, ?, ?)`,
			category, subject, content, source, confidence,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert knowledge: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return db.getKnowledge(ctx, id)
	case err != nil:
		return nil, fmt.Errorf("failed to look up knowledge: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE knowledge SET content = ?, source = ?, confidence = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		content, source, confidence, existingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update knowledge: %w", err)
	}
	return db.getKnowledge(ctx, existingID)
}

func (db *DB) getKnowledge(ctx context.Context, id int64) (*Knowledge, error) {
	var k Knowledge
	err := db.QueryRowContext(ctx,
		`SELECT id, category, subject, content, source, confidence, created_at, updated_at FROM knowledge WHERE id = ?`,
		id,
	).Scan(&k.ID, &k.Category, &k.Subject, &k.Content, &k.Source, &k.Confidence, &k.CreatedAt, &k.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// SearchKnowledge finds active entries whose subject, content or category
// matches the query (substring, case-insensitive for ASCII).
func (db *DB) SearchKnowledge(ctx context.Context, query string) ([]Knowledge, error) {
	wildcard := "%" + query + "%"
	rows, err := db.QueryContext(ctx,
		`SELECT id, category, subject, content, source, confidence, created_at, updated_at
		 FROM knowledge
		 WHERE active = 1 AND (subject LIKE ? OR content LIKE ? OR category LIKE ?)
		 ORDER BY updated_at DESC`,
		wildcard, wildcard, wildcard,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledge(rows)
}

// ListKnowledge returns all active knowledge entries.
func (db *DB) ListKnowledge(ctx context.Context) ([]Knowledge, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, category, subject, content, source, confidence, created_at, updated_at
		 FROM knowledge WHERE active = 1 ORDER BY category, subject`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledge(rows)
}

// UpdateKnowledge replaces the content of an entry. Returns false when the
// entry does not exist.
func (db *DB) UpdateKnowledge(ctx context.Context, id int64, content string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE knowledge SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND active = 1`,
		content, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update knowledge: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteKnowledge soft-deletes an entry.
func (db *DB) DeleteKnowledge(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE knowledge SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND active = 1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete knowledge: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanKnowledge(rows *sql.Rows) ([]Knowledge, error) {
	var out []Knowledge
	for rows.Next() {
		var k Knowledge
		if err := rows.Scan(&k.ID, &k.Category, &k.Subject, &k.Content, &k.Source, &k.Confidence, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
