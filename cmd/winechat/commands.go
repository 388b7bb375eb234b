package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rrens/sommelier/internal/domain"
)

func newNewCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			a.ready(cmd.Context())

			id, err := a.manager.CreateNewConversation(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "conversation %d\n", id)
			return nil
		},
	}
}

func newSendCommand(current func() *app) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:     "send <text>",
		Aliases: []string{"say"},
		Short:   "Add a message to the current conversation",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := domain.MessageRole(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			a := current()
			a.ready(cmd.Context())

			msg, ok := a.manager.AddMessage(r, strings.Join(args, " "))
			if !ok {
				return errors.New("no current conversation")
			}
			a.manager.Wait()

			printMessage(cmd.OutOrStdout(), msg)
			if err := a.manager.Snapshot().LocalSaveError; err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: message not saved locally: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "message role (user or assistant)")
	return cmd
}

func newShowCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			a.ready(cmd.Context())

			state := a.manager.Snapshot()
			out := cmd.OutOrStdout()
			if state.CurrentConversationID == 0 {
				fmt.Fprintln(out, "no current conversation")
				return nil
			}

			fmt.Fprintf(out, "conversation %d\n", state.CurrentConversationID)
			for _, msg := range state.Messages {
				printMessage(out, msg)
			}
			return nil
		},
	}
}

func newListCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations for the wine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			a.ready(cmd.Context())

			state := a.manager.Snapshot()
			out := cmd.OutOrStdout()
			for _, c := range state.Conversations {
				marker := " "
				if c.ID == state.CurrentConversationID {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %6d  %s  %s\n", marker, c.ID, c.CreatedAt.Local().Format(time.DateTime), c.Title)
			}
			return nil
		},
	}
}

func newUseCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <conversation-id>",
		Short: "Switch to another conversation, 0 clears the selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}

			a := current()
			a.ready(cmd.Context())
			return a.manager.SetCurrentConversationID(cmd.Context(), id)
		},
	}
}

func newClearCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every message from the current conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			a.ready(cmd.Context())
			return a.manager.ClearConversation(cmd.Context())
		},
	}
}

func newPatchLastCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "patch-last <text>",
		Short: "Replace the content of the last assistant message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			a.ready(cmd.Context())

			if !a.manager.UpdateLastAssistantMessage(strings.Join(args, " ")) {
				return errors.New("no assistant message to update")
			}
			a.manager.Wait()
			return nil
		},
	}
}

func printMessage(w io.Writer, msg domain.Message) {
	fmt.Fprintf(w, "[%s] %-9s %s\n", msg.CreatedAt.Local().Format(time.TimeOnly), msg.Role+":", msg.Content)
}
