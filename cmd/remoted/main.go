package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Rrens/sommelier/internal/config"
	"github.com/Rrens/sommelier/internal/logging"
)

var (
	cfg       *config.Config
	logCloser io.Closer
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "remoted",
		Short:         "Reference server for the Remote Conversation API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadEnv()

			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}

			logCloser, err = logging.Setup(cfg.Logging)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				_ = logCloser.Close()
			}
		},
	}

	root.AddCommand(newServeCommand(), newMigrateCommand(), newTokenCommand())
	return root
}

func loadEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			log.Debug().Str("path", p).Msg("loaded .env")
			return
		}
	}
}
