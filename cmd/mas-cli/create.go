package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/npolatykin/mas-sandbox/internal/app"
	"github.com/npolatykin/mas-sandbox/internal/config"
)

func createCmd() *cobra.Command {
	var (
		userID      string
		description string
		date        string
	)

	cmd := &cobra.Command{
		Use:   "create <task name>",
		Short: "Create a task directly, without the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			name := strings.Join(args, " ")
			taskID, err := a.Store.CreateTask(ctx, userID, name, description, date)
			if err != nil {
				return err
			}
			fmt.Printf("created task %s\n", taskID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user id (required)")
	cmd.Flags().StringVar(&description, "desc", "", "task description")
	cmd.Flags().StringVar(&date, "date", "", "due date YYYY-MM-DD (today when empty)")
	return cmd
}
