package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Instruction is a standing directive for the assistant's behavior.
type Instruction struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	Instruction string    `json:"instruction"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AddInstruction stores a new instruction.
func (db *DB) AddInstruction(ctx context.Context, category, instruction, source string) (*Instruction, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO instructions (category, instruction, source) VALUES (?, ?, ?)`,
		category, instruction, source,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert instruction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var inst Instruction
	err = db.QueryRowContext(ctx,
		`SELECT id, category, instruction, source, created_at, updated_at FROM instructions WHERE id = ?`,
		id,
	).Scan(&inst.ID, &inst.Category, &inst.Instruction, &inst.Source, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// ListInstructions returns all active instructions ordered by category.
func (db *DB) ListInstructions(ctx context.Context) ([]Instruction, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, category, instruction, source, created_at, updated_at
		 FROM instructions WHERE active = 1 ORDER BY category, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInstructions(rows)
}

// InstructionsByCategory returns the active instructions in one category.
func (db *DB) InstructionsByCategory(ctx context.Context, category string) ([]Instruction, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, category, instruction, source, created_at, updated_at
		 FROM instructions WHERE active = 1 AND category = ? ORDER BY id`,
		category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInstructions(rows)
}

// DeleteInstruction soft-deletes an instruction.
func (db *DB) DeleteInstruction(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE instructions SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND active = 1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete instruction: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanInstructions(rows *sql.Rows) ([]Instruction, error) {
	var out []Instruction
	for rows.Next() {
		var inst Instruction
		if err := rows.Scan(&inst.ID, &inst.Category, &inst.Instruction, &inst.Source, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
