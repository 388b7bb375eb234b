package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Rrens/sommelier/internal/config"
	"github.com/Rrens/sommelier/internal/logging"
)

type rootOptions struct {
	wineID      string
	traceEvents bool
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	var (
		current   *app
		logCloser io.Closer
	)

	root := &cobra.Command{
		Use:           "winechat",
		Short:         "Chat about a wine from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logCloser, err = logging.Setup(cfg.Logging); err != nil {
				return err
			}

			current = openApp(cmd.Context(), cfg, opts.wineID, opts.traceEvents)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if current != nil {
				current.Close()
			}
			if logCloser != nil {
				_ = logCloser.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.wineID, "wine", "", "wine id scoping the conversation")
	root.PersistentFlags().BoolVar(&opts.traceEvents, "trace-events", false, "log every session state change")

	currentApp := func() *app { return current }
	root.AddCommand(
		newNewCommand(currentApp),
		newSendCommand(currentApp),
		newShowCommand(currentApp),
		newListCommand(currentApp),
		newUseCommand(currentApp),
		newClearCommand(currentApp),
		newPatchLastCommand(currentApp),
	)
	return root
}
