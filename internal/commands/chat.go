package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vizbench/vzb/internal/conversation"
	"github.com/vizbench/vzb/internal/workbench"
)

var chatCmd = &cobra.Command{
	Use:   "chat <file-id> [message]",
	Short: "Ask the AI assistant about a file",
	Long: `Chat with the AI assistant about the data of a file.

With a message, sends it and prints the reply. Without one, reads messages
line by line from stdin (an interactive prompt when stdin is a terminal).

Interactive commands:
  /open <file-id>  - Switch to another file (starts a new conversation)
  /summary         - Print the AI summary of the current file
  /history         - Print the conversation so far
  /quit            - Exit

Examples:
  vzb chat 3 "Which city has the highest average age?"
  vzb chat 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	id, err := parseFileID(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	thread := conversation.New(newClient(cfg), conversation.WithLogger(logger))

	if len(args) > 1 {
		thread.Focus(id)
		return sendOnce(cmd.Context(), cmd.OutOrStdout(), thread, strings.Join(args[1:], " "))
	}

	ctrl := newController(cfg, 0)
	defer ctrl.Close()
	thread.Bind(ctrl)
	ctrl.SelectFile(cmd.Context(), workbench.FileRef{ID: id})

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && cmd.InOrStdin() == os.Stdin
	return runChatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), ctrl, thread, interactive)
}

func sendOnce(ctx context.Context, out io.Writer, thread *conversation.Thread, text string) error {
	reply, err := thread.Send(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, formatMessage(reply))
	return nil
}

func runChatLoop(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	ctrl *workbench.Controller,
	thread *conversation.Thread,
	interactive bool,
) error {
	if interactive {
		fmt.Fprintln(out, formatMessage(thread.Messages()[0]))
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, styled(headingStyle, "> "))
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runChatCommand(ctx, out, ctrl, thread, line)
			if err != nil {
				fmt.Fprintln(out, styled(errorStyle, err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		reply, err := thread.Send(ctx, line)
		switch {
		case errors.Is(err, conversation.ErrStale):
			continue
		case err != nil:
			fmt.Fprintln(out, styled(errorStyle, err.Error()))
			continue
		}
		fmt.Fprintln(out, formatMessage(reply))
	}
	return scanner.Err()
}

// runChatCommand handles a /command line. It reports whether the loop should end.
func runChatCommand(ctx context.Context, out io.Writer, ctrl *workbench.Controller, thread *conversation.Thread, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/open":
		if len(fields) != 2 {
			return false, errors.New("usage: /open <file-id>")
		}
		id, err := parseFileID(fields[1])
		if err != nil {
			return false, err
		}
		ctrl.SelectFile(ctx, workbench.FileRef{ID: id})
		fmt.Fprintln(out, formatMessage(thread.Messages()[0]))
		return false, nil
	case "/summary":
		s, err := ctrl.Wait(ctx)
		if err != nil {
			return false, err
		}
		if s.State != workbench.Ready {
			return false, fmt.Errorf("no summary: file is %s", s.State)
		}
		fmt.Fprintln(out, strings.TrimSpace(s.Summary))
		return false, nil
	case "/history":
		fmt.Fprint(out, formatHistory(thread.Messages()))
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}

func formatMessage(m conversation.Message) string {
	switch {
	case m.IsError:
		return styled(errorStyle, m.Text)
	case m.Sender == conversation.User:
		return styled(mutedStyle, "you: ") + m.Text
	default:
		return styled(successStyle, "assistant: ") + m.Text
	}
}

func formatHistory(messages []conversation.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(formatMessage(m) + "\n")
	}
	return sb.String()
}
