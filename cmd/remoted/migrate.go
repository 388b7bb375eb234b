package main

import (
	"github.com/spf13/cobra"

	"github.com/Rrens/sommelier/internal/repository/postgres"
)

func newMigrateCommand() *cobra.Command {
	var (
		source   string
		rollback int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the conversation API schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rollback > 0 {
				return postgres.RollbackMigrations(cfg.Database.DSN(), source, rollback)
			}
			return postgres.RunMigrations(cfg.Database.DSN(), source)
		},
	}

	cmd.Flags().StringVar(&source, "source", "file://migrations", "migration source URL")
	cmd.Flags().IntVar(&rollback, "rollback", 0, "roll back this many migrations instead of migrating up")
	return cmd
}
