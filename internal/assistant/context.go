package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hcdonia/planner-app/internal/calendar"
	"github.com/hcdonia/planner-app/internal/config"
	"github.com/hcdonia/planner-app/internal/llm"
	"github.com/hcdonia/planner-app/internal/store"
)

// maxHistoryTurns bounds how much conversation history is replayed to the
// model on each request.
const maxHistoryTurns = 20

const basePrompt = `You are an intelligent planning assistant. You help schedule tasks, manage calendars, and learn about the user to become more helpful over time.

## Core Capabilities
- Schedule tasks and events on the user's calendars
- Check calendar availability across multiple calendars
- Remember and learn from conversations
- Store knowledge about the user, their business, and preferences
- Modify your own instructions and behavior based on user feedback
- Add, update, or remove calendars dynamically

## Personality
- Be conversational but efficient
- Ask clarifying questions when needed
- Proactively ask for context that would help you assist better
- Learn and adapt to the user's preferences
- Be direct and helpful`

const functionGuidance = `## How to Use Your Functions

### Calendar Operations
- Use check_availability to find free time slots
- Use schedule_task to create events (always confirm with user first)
- Use get_day_schedule or get_week_overview for schedule context

### Self-Modification
- Use save_knowledge when you learn something important about the user
- Use add_instruction when the user tells you how to behave
- Use add_scheduling_rule for scheduling preferences
- Use add_calendar when the user wants to track a new calendar

### Important Guidelines
1. Always confirm before creating or modifying calendar events
2. Save important context using save_knowledge
3. When the user gives you instructions about behavior, save them with add_instruction
4. Ask for clarification when the user's request is ambiguous
5. Proactively ask for context that would help you assist better`

// ContextBuilder assembles the dynamic system prompt and message history
// sent to the model. The prompt reflects the stored state at build time, so
// it is rebuilt before every model round.
type ContextBuilder struct {
	store    *store.DB
	calendar calendar.Service
	config   *config.Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewContextBuilder wires a builder. calendar may be nil when no Google
// account is connected; the schedule section is then omitted.
func NewContextBuilder(db *store.DB, cal calendar.Service, cfg *config.Config, logger *slog.Logger) *ContextBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextBuilder{
		store:    db,
		calendar: cal,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (b *ContextBuilder) SetNow(now func() time.Time) { b.now = now }

// BuildSystemPrompt assembles the full system prompt. Sections with no
// stored content are omitted entirely.
func (b *ContextBuilder) BuildSystemPrompt(ctx context.Context) string {
	parts := []string{basePrompt, b.timeSection()}

	for _, section := range []func(context.Context) string{
		b.instructionsSection,
		b.knowledgeSection,
		b.calendarSection,
		b.rulesSection,
		b.todaySection,
	} {
		if s := section(ctx); s != "" {
			parts = append(parts, s)
		}
	}

	parts = append(parts, functionGuidance)
	return strings.Join(parts, "\n\n")
}

// BuildMessages returns the message array for one model request: system
// prompt, recent history, then the new user message.
func (b *ContextBuilder) BuildMessages(ctx context.Context, conversationID int64, userMessage string) ([]llm.Message, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: b.BuildSystemPrompt(ctx)},
	}

	history, err := b.store.RecentMessages(ctx, conversationID, maxHistoryTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	return messages, nil
}

func (b *ContextBuilder) timeSection() string {
	now := b.now().In(b.config.Location())
	return fmt.Sprintf(`## Current Context
- Current time: %s
- Today: %s
- Timezone: %s`,
		now.Format("03:04 PM"),
		now.Format("Monday, January 02, 2006"),
		b.config.Timezone)
}

func (b *ContextBuilder) instructionsSection(ctx context.Context) string {
	instructions, err := b.store.ListInstructions(ctx)
	if err != nil {
		b.logger.Warn("failed to load instructions for prompt", "error", err)
		return ""
	}
	if len(instructions) == 0 {
		return ""
	}

	byCategory := make(map[string][]string)
	for _, inst := range instructions {
		byCategory[inst.Category] = append(byCategory[inst.Category], inst.Instruction)
	}

	var sb strings.Builder
	sb.WriteString("## Custom Instructions")
	for _, category := range sortedKeys(byCategory) {
		fmt.Fprintf(&sb, "\n\n### %s", titleCase(category))
		for _, inst := range byCategory[category] {
			fmt.Fprintf(&sb, "\n- %s", inst)
		}
	}
	return sb.String()
}

func (b *ContextBuilder) knowledgeSection(ctx context.Context) string {
	entries, err := b.store.ListKnowledge(ctx)
	if err != nil {
		b.logger.Warn("failed to load knowledge for prompt", "error", err)
		return ""
	}
	if len(entries) == 0 {
		return ""
	}

	byCategory := make(map[string][]store.Knowledge)
	for _, k := range entries {
		byCategory[k.Category] = append(byCategory[k.Category], k)
	}

	var sb strings.Builder
	sb.WriteString("## What I Know About You")
	for _, category := range sortedKeys(byCategory) {
		fmt.Fprintf(&sb, "\n\n### %s", titleCase(category))
		for _, k := range byCategory[category] {
			fmt.Fprintf(&sb, "\n- **%s**: %s", k.Subject, k.Content)
		}
	}
	return sb.String()
}

func (b *ContextBuilder) calendarSection(ctx context.Context) string {
	calendars, err := b.store.ListCalendars(ctx)
	if err != nil {
		b.logger.Warn("failed to load calendars for prompt", "error", err)
		return ""
	}
	if len(calendars) == 0 {
		return "## Calendars\nNo calendars configured yet. Ask the user which calendars they want to track."
	}

	var sb strings.Builder
	sb.WriteString("## Calendars I Have Access To")
	for _, cal := range calendars {
		perm := "read only"
		if cal.Writable() {
			perm = "read & write"
		}
		fmt.Fprintf(&sb, "\n- **%s** (%s)", cal.Name, perm)
	}
	return sb.String()
}

func (b *ContextBuilder) rulesSection(ctx context.Context) string {
	rules, err := b.store.ListSchedulingRules(ctx)
	if err != nil {
		b.logger.Warn("failed to load scheduling rules for prompt", "error", err)
		return ""
	}
	if len(rules) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Scheduling Rules")
	for _, rule := range rules {
		fmt.Fprintf(&sb, "\n- **%s** (%s): %s", rule.Name, rule.RuleType, string(rule.Config))
	}
	return sb.String()
}

// todaySection summarizes today's events. A calendar failure just drops the
// section; the account might not be connected yet.
func (b *ContextBuilder) todaySection(ctx context.Context) string {
	if b.calendar == nil {
		return ""
	}

	calendars, err := b.store.ListCalendars(ctx)
	if err != nil {
		return ""
	}
	ids := make([]string, 0, len(calendars))
	for _, cal := range calendars {
		ids = append(ids, cal.GoogleCalendarID)
	}
	if len(ids) == 0 {
		ids = []string{"primary"}
	}

	today := b.now().In(b.config.Location())
	events, err := b.calendar.GetDaySchedule(ids, today)
	if err != nil {
		b.logger.Debug("failed to load today's schedule for prompt", "error", err)
		return ""
	}
	if len(events) == 0 {
		return "## Today's Schedule\nNo events scheduled for today."
	}
	return "## Today's Schedule\n" + calendar.FormatScheduleSummary(events)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// titleCase capitalizes the first letter of each underscore- or
// space-separated word, so "task_types" renders as "Task_Types".
func titleCase(s string) string {
	out := []byte(s)
	upper := true
	for i, c := range out {
		if upper && c >= 'a' && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
		upper = c == '_' || c == ' '
	}
	return string(out)
}
