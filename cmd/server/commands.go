package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"service-queue/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return a.Store.Migrate(cmd.Context())
		},
	}
}

func newEntryCmd() *cobra.Command {
	entryCmd := &cobra.Command{
		Use:   "entry",
		Short: "Manage queue entries",
	}

	entryCmd.AddCommand(&cobra.Command{
		Use:   "call <key> <location>",
		Short: "Summon an entry to a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			affected, err := a.Queue.ChangeStatus(cmd.Context(), args[0], "S", args[1])
			if err != nil {
				return err
			}
			if affected < 1 {
				return fmt.Errorf("entry %s was changed concurrently, nothing updated", args[0])
			}
			a.Logger.Info("entry called", zap.String("key", args[0]), zap.String("location", args[1]))
			fmt.Fprintf(cmd.OutOrStdout(), "Entry %s called to %s\n", args[0], args[1])
			return nil
		},
	})
	return entryCmd
}

func newOperatorCmd() *cobra.Command {
	operatorCmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage operators",
	}

	var in app.OperatorInput
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.Store.Migrate(cmd.Context()); err != nil {
				return err
			}
			operator, err := a.CreateOperator(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Operator %d created (%s)\n", operator.ID, operator.Email)
			return nil
		},
	}
	createCmd.Flags().StringVar(&in.Name, "name", "", "Operator name")
	createCmd.Flags().StringVar(&in.Email, "email", "", "Operator email")
	createCmd.Flags().StringVar(&in.Password, "password", "", "Operator password (min 8 chars)")
	createCmd.Flags().StringVar(&in.Permissions, "permissions", "SQM_ENTRY:CRU", "Permissions, e.g. SQM_ENTRY:CRU")
	for _, name := range []string{"name", "email", "password"} {
		if err := createCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	operatorCmd.AddCommand(createCmd)
	return operatorCmd
}
