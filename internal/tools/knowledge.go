package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hcdonia/planner-app/internal/store"
)

// Knowledge categories the model may file facts under.
var knowledgeCategories = []string{"business", "people", "preferences", "task_types", "general"}

// Instruction categories for learned behavior.
var instructionCategories = []string{"scheduling", "communication", "preferences", "behavior"}

// Scheduling rule types.
var ruleTypes = []string{"time_block", "buffer", "preference", "constraint"}

// instructionSource marks instructions the model taught itself from
// conversation, as opposed to explicit user configuration.
const instructionSource = "ai_learned"

func registerKnowledgeTools(r *Registry) {
	r.register(Definition{
		Name: "save_knowledge",
		Description: "Save a fact learned about the user or their work for future conversations. " +
			"Saving a subject that already exists in the same category updates it.",
		Schema: ObjectSchema(Properties{
			"category": {Type: "string", Enum: knowledgeCategories, Description: "What kind of fact this is."},
			"subject":  {Type: "string", Description: "Short subject the fact is about, e.g. 'weekly team meeting'."},
			"content":  {Type: "string", Description: "The fact itself."},
		}, "category", "subject", "content"),
		Handler: handleSaveKnowledge,
	})
	r.register(Definition{
		Name:        "get_knowledge",
		Description: "Search saved knowledge about the user. Searches subject, content and category.",
		Schema: ObjectSchema(Properties{
			"query": {Type: "string", Description: "Search text. Empty returns everything."},
		}),
		Handler: handleGetKnowledge,
	})
	r.register(Definition{
		Name:        "update_knowledge",
		Description: "Replace the content of a saved knowledge entry by ID.",
		Schema: ObjectSchema(Properties{
			"knowledge_id": {Type: "integer", Description: "ID of the entry to update."},
			"content":      {Type: "string", Description: "New content."},
		}, "knowledge_id", "content"),
		Handler: handleUpdateKnowledge,
	})
	r.register(Definition{
		Name: "add_instruction",
		Description: "Remember a standing instruction about how to behave, learned from the user. " +
			"Use when the user corrects you or states a lasting preference about your behavior.",
		Schema: ObjectSchema(Properties{
			"category":    {Type: "string", Enum: instructionCategories, Description: "What the instruction governs."},
			"instruction": {Type: "string", Description: "The instruction to follow from now on."},
		}, "category", "instruction"),
		Handler: handleAddInstruction,
	})
	r.register(Definition{
		Name: "add_scheduling_rule",
		Description: "Save a recurring scheduling rule, like 'no meetings before 10am' or " +
			"'keep Friday afternoons free'.",
		Schema: ObjectSchema(Properties{
			"rule_type": {Type: "string", Enum: ruleTypes, Description: "Kind of rule."},
			"name":      {Type: "string", Description: "Short rule name."},
			"config":    {Type: "object", Description: "Rule parameters, free-form JSON object."},
		}, "rule_type", "name", "config"),
		Handler: handleAddSchedulingRule,
	})
}

func handleSaveKnowledge(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		Category string `json:"category"`
		Subject  string `json:"subject"`
		Content  string `json:"content"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Category == "" || in.Subject == "" || in.Content == "" {
		return nil, invalidArgs("category, subject and content are required")
	}
	if !oneOf(in.Category, knowledgeCategories) {
		return nil, invalidArgs("invalid category %q", in.Category)
	}

	entry, err := deps.Store.SaveKnowledge(ctx, in.Category, in.Subject, in.Content, "conversation", 1.0)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"id":      entry.ID,
		"message": fmt.Sprintf("Saved knowledge about '%s'", entry.Subject),
	}, nil
}

func handleGetKnowledge(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	var entries []store.Knowledge
	var err error
	if in.Query == "" {
		entries, err = deps.Store.ListKnowledge(ctx)
	} else {
		entries, err = deps.Store.SearchKnowledge(ctx, in.Query)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success":   true,
		"count":     len(entries),
		"knowledge": entries,
	}, nil
}

func handleUpdateKnowledge(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		KnowledgeID int64  `json:"knowledge_id"`
		Content     string `json:"content"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.KnowledgeID == 0 || in.Content == "" {
		return nil, invalidArgs("knowledge_id and content are required")
	}

	updated, err := deps.Store.UpdateKnowledge(ctx, in.KnowledgeID, in.Content)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, fmt.Errorf("knowledge entry %d not found", in.KnowledgeID)
	}
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Updated knowledge entry %d", in.KnowledgeID),
	}, nil
}

func handleAddInstruction(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		Category    string `json:"category"`
		Instruction string `json:"instruction"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Category == "" || in.Instruction == "" {
		return nil, invalidArgs("category and instruction are required")
	}
	if !oneOf(in.Category, instructionCategories) {
		return nil, invalidArgs("invalid category %q", in.Category)
	}

	inst, err := deps.Store.AddInstruction(ctx, in.Category, in.Instruction, instructionSource)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"id":      inst.ID,
		"message": "I'll remember that instruction",
	}, nil
}

func handleAddSchedulingRule(ctx context.Context, deps *Deps, args json.RawMessage) (any, error) {
	var in struct {
		RuleType string          `json:"rule_type"`
		Name     string          `json:"name"`
		Config   json.RawMessage `json:"config"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.RuleType == "" || in.Name == "" || len(in.Config) == 0 {
		return nil, invalidArgs("rule_type, name and config are required")
	}
	if !oneOf(in.RuleType, ruleTypes) {
		return nil, invalidArgs("invalid rule_type %q", in.RuleType)
	}

	rule, err := deps.Store.AddSchedulingRule(ctx, in.RuleType, in.Name, in.Config)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"id":      rule.ID,
		"message": fmt.Sprintf("Added scheduling rule '%s'", rule.Name),
	}, nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
