package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SchedulingRule is a dynamic scheduling constraint or preference. Config
// holds a rule-type specific JSON document.
type SchedulingRule struct {
	ID        int64           `json:"id"`
	RuleType  string          `json:"rule_type"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AddSchedulingRule stores a new rule.
func (db *DB) AddSchedulingRule(ctx context.Context, ruleType, name string, config json.RawMessage) (*SchedulingRule, error) {
	if !json.Valid(config) {
		return nil, fmt.Errorf("rule config is not valid JSON")
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO scheduling_rules (rule_type, name, config) VALUES (?, ?, ?)`,
		ruleType, name, string(config),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert scheduling rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var rule SchedulingRule
	var raw string
	err = db.QueryRowContext(ctx,
		`SELECT id, rule_type, name, config, created_at, updated_at FROM scheduling_rules WHERE id = ?`,
		id,
	).Scan(&rule.ID, &rule.RuleType, &rule.Name, &raw, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rule.Config = json.RawMessage(raw)
	return &rule, nil
}

// ListSchedulingRules returns all active rules.
func (db *DB) ListSchedulingRules(ctx context.Context) ([]SchedulingRule, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, rule_type, name, config, created_at, updated_at
		 FROM scheduling_rules WHERE active = 1 ORDER BY rule_type, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// SchedulingRulesByType returns the active rules of one type.
func (db *DB) SchedulingRulesByType(ctx context.Context, ruleType string) ([]SchedulingRule, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, rule_type, name, config, created_at, updated_at
		 FROM scheduling_rules WHERE active = 1 AND rule_type = ? ORDER BY id`,
		ruleType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// DeleteSchedulingRule soft-deletes a rule.
func (db *DB) DeleteSchedulingRule(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE scheduling_rules SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND active = 1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete scheduling rule: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanRules(rows *sql.Rows) ([]SchedulingRule, error) {
	var out []SchedulingRule
	for rows.Next() {
		var rule SchedulingRule
		var raw string
		if err := rows.Scan(&rule.ID, &rule.RuleType, &rule.Name, &raw, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rule.Config = json.RawMessage(raw)
		out = append(out, rule)
	}
	return out, rows.Err()
}
