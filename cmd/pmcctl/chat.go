package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pmcbot/internal/service"
	"pmcbot/internal/storage"
)

const replHelp = "Type a question in English or Marathi. /reset starts a new session, /quit exits."

func newChatCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if sessionID != "" && a.DB != nil {
				describeSession(ctx, storage.NewTurnRepo(a.DB), sessionID, cmd.OutOrStdout())
			}
			return runREPL(ctx, a.Chat, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "continue an existing session")
	return cmd
}

type sessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (*storage.SessionRecord, error)
}

// describeSession tells the user what a resumed session holds.
func describeSession(ctx context.Context, sessions sessionLookup, sessionID string, out io.Writer) {
	rec, err := sessions.GetSession(ctx, sessionID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintf(out, "No stored history for session %s; starting it fresh.\n", sessionID)
	case err != nil:
		fmt.Fprintln(out, "could not read session history:", err)
	default:
		fmt.Fprintf(out, "Resuming session %s (%d stored turns, last active %s).\n",
			rec.ID, rec.Turns, rec.UpdatedAt.Local().Format(time.DateTime))
	}
}

// runREPL reads one question per line until EOF or /quit.
func runREPL(ctx context.Context, chat service.ChatService, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, replHelp)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if sessionID != "" {
				if err := chat.Reset(ctx, sessionID); err != nil {
					fmt.Fprintln(out, "reset failed:", err)
					continue
				}
			}
			sessionID = ""
			fmt.Fprintln(out, "Started a new session.")
			continue
		}

		resp, err := chat.Chat(ctx, service.ChatRequest{UserInput: line, SessionID: sessionID})
		if err != nil {
			var validationErr *service.ValidationError
			if errors.As(err, &validationErr) {
				fmt.Fprintln(out, validationErr.Message)
				continue
			}
			return err
		}
		sessionID = resp.SessionID
		fmt.Fprintf(out, "\n%s\n\n", resp.Answer)
	}
}
