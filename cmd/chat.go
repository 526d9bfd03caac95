package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hcdonia/planner-app/internal/assistant"
)

func newChatCmd() *cobra.Command {
	var conversationID int64

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive planning conversation",
		Long: `Start an interactive conversation with the planning assistant in the
terminal. The assistant can check calendar availability, schedule tasks,
manage your to-do list, and remembers what it learns across sessions.

Requires OPENAI_API_KEY. Calendar features additionally require a Google
OAuth token (GOOGLE_TOKEN_PATH or GOOGLE_TOKEN_JSON).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.OpenAIAPIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required for chat")
			}

			return runChat(ctx, a, conversationID)
		},
	}

	cmd.Flags().Int64Var(&conversationID, "conversation", 0, "Resume an existing conversation by ID")
	return cmd
}

func runChat(ctx context.Context, a *app, conversationID int64) error {
	orch := a.orchestrator()

	conv, err := resumeOrCreate(ctx, a, conversationID)
	if err != nil {
		return err
	}
	fmt.Printf("planner ready (conversation %d). Type your message, or 'exit' to quit.\n\n", conv)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		events, err := orch.ProcessMessage(ctx, conv, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		renderEvents(events)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func resumeOrCreate(ctx context.Context, a *app, conversationID int64) (int64, error) {
	if conversationID != 0 {
		conv, err := a.db.GetConversation(ctx, conversationID)
		if err != nil {
			return 0, err
		}
		if conv == nil {
			return 0, fmt.Errorf("conversation %d not found", conversationID)
		}
		return conv.ID, nil
	}

	conv, err := a.db.CreateConversation(ctx, "")
	if err != nil {
		return 0, err
	}
	return conv.ID, nil
}

// renderEvents prints the assistant's event stream to the terminal.
func renderEvents(events <-chan assistant.Event) {
	startedText := false
	for ev := range events {
		switch ev.Type {
		case assistant.EventChunk:
			if !startedText {
				fmt.Print("assistant> ")
				startedText = true
			}
			fmt.Print(ev.Content)
		case assistant.EventFunctionCall:
			if startedText {
				fmt.Println()
				startedText = false
			}
			fmt.Printf("  [calling %s]\n", ev.Function)
		case assistant.EventTitleUpdate:
			// Shown once the exchange is done.
		case assistant.EventError:
			if startedText {
				fmt.Println()
				startedText = false
			}
			fmt.Fprintf(os.Stderr, "error: %s\n", ev.Error)
		case assistant.EventComplete:
			if startedText {
				fmt.Println()
			}
			fmt.Println()
		}
	}
}
