package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/npolatykin/mas-sandbox/internal/app"
	"github.com/npolatykin/mas-sandbox/internal/config"
	"github.com/npolatykin/mas-sandbox/internal/search"
)

func searchCmd() *cobra.Command {
	var (
		userID     string
		taskID     string
		status     string
		date       string
		dateFrom   string
		dateTo     string
		noSemantic bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search tasks by text and exact filters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			criteria := search.Criteria{
				UserID:            userID,
				TaskID:            taskID,
				Status:            status,
				Date:              date,
				DateFrom:          dateFrom,
				DateTo:            dateTo,
				UseSemanticSearch: !noSemantic,
			}
			if len(args) == 1 {
				criteria.Name = args[0]
			}
			if criteria.Empty() {
				return fmt.Errorf("give a search text or at least one filter flag")
			}

			tasks, err := a.Engine.Search(ctx, criteria)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(tasks)
			}
			if len(tasks) == 0 {
				fmt.Println("no matching tasks")
				return nil
			}
			for _, t := range tasks {
				fmt.Printf("[%s] %s (%s, %s, user %s)\n", t.TaskID, t.Name, t.Status, t.Date, t.UserID)
				if t.Description != "" {
					fmt.Printf("    %s\n", t.Description)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "filter by owning user id")
	cmd.Flags().StringVar(&taskID, "id", "", "filter by task id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&date, "date", "", "filter by exact date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dateFrom, "from", "", "start of date range (inclusive)")
	cmd.Flags().StringVar(&dateTo, "to", "", "end of date range (inclusive)")
	cmd.Flags().BoolVar(&noSemantic, "exact", false, "disable semantic search, use substring match")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
