package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danpun9/memocore/internal/agent"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with your documents",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.cleanup()

	fmt.Println("Memocore - chat with your documents. Type /exit to quit.")
	if has, err := app.docs.HasDocuments(ctx); err == nil && !has {
		fmt.Println("No documents stored yet. Add some with: memocore docs add <file.md>")
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	var history []agent.ChatMessage

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" || input == "/quit" {
			fmt.Println("Goodbye!")
			break
		}

		history = converse(ctx, app, scanner, history, input)
		fmt.Println()
	}
	return scanner.Err()
}

// converse runs one user query to completion, including any confirmation
// round-trips, and returns the updated history.
func converse(ctx context.Context, app *app, scanner *bufio.Scanner, history []agent.ChatMessage, input string) []agent.ChatMessage {
	events := app.agent.GenerateResponse(ctx, history, input, false)
	history = append(history, agent.ChatMessage{Role: agent.RoleUser, Content: input})

	for {
		answer, sources, action, err := render(events)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return history
		}
		if action == nil {
			printSources(sources)
			return append(history, agent.ChatMessage{
				Role:    agent.RoleModel,
				Content: answer,
				Sources: sources,
			})
		}

		if confirmAction(scanner, action) {
			events, history = app.agent.Confirm(ctx, history, *action)
		} else {
			events, history = app.agent.Reject(ctx, history, *action)
		}
	}
}

// render consumes one event sequence, printing status lines and streaming
// text as it arrives, and returns the terminal outcome.
func render(events <-chan agent.Event) (answer string, sources []agent.RetrievedContext, action *agent.ToolAction, err error) {
	printed := 0
	for ev := range events {
		switch ev.Type {
		case agent.EventStatus:
			if printed > 0 {
				fmt.Println()
				printed = 0
			}
			fmt.Printf("  [%s]\n", ev.Text)

		case agent.EventStreaming:
			// Streaming text is the whole answer so far; print only the new
			// suffix. When the content resets (the answer marker appeared),
			// start over on a fresh line.
			if len(ev.Text) < printed {
				fmt.Println()
				printed = 0
			}
			fmt.Print(ev.Text[printed:])
			printed = len(ev.Text)

		case agent.EventFinalAnswer:
			if printed == 0 {
				fmt.Print(ev.Text)
			}
			fmt.Println()
			answer, sources = ev.Text, ev.Sources

		case agent.EventConfirmationRequired:
			if printed > 0 {
				fmt.Println()
			}
			action = ev.Action

		case agent.EventError:
			if printed > 0 {
				fmt.Println()
			}
			err = ev.Err
		}
	}
	return answer, sources, action, err
}

// confirmAction shows the pending mutation and asks for approval.
func confirmAction(scanner *bufio.Scanner, action *agent.ToolAction) bool {
	fmt.Println()
	switch action.Type {
	case agent.ActionCreate:
		fmt.Printf("The assistant wants to create '%s':\n", action.Title)
		fmt.Println(indent(action.Content))
	case agent.ActionEdit:
		fmt.Printf("The assistant wants to overwrite '%s'.\n", action.Title)
		if action.OriginalKnown {
			fmt.Println("Current content:")
			fmt.Println(indent(action.OriginalContent))
		} else {
			fmt.Println("The document does not exist yet.")
		}
		fmt.Println("New content:")
		fmt.Println(indent(action.Content))
	case agent.ActionDelete:
		fmt.Printf("The assistant wants to delete '%s'.\n", action.Title)
	default:
		fmt.Printf("The assistant wants to run a %s action.\n", action.Type)
	}

	fmt.Print("Apply this change? [y/N] ")
	if !scanner.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func printSources(sources []agent.RetrievedContext) {
	if len(sources) == 0 {
		return
	}
	seen := make(map[string]struct{})
	var names []string
	for _, src := range sources {
		if _, ok := seen[src.FileName]; ok {
			continue
		}
		seen[src.FileName] = struct{}{}
		names = append(names, src.FileName)
	}
	fmt.Printf("  (sources: %s)\n", strings.Join(names, ", "))
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
