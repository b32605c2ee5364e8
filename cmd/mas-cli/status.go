package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/npolatykin/mas-sandbox/internal/app"
	"github.com/npolatykin/mas-sandbox/internal/config"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store and index status",
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

			fmt.Printf("data file:      %s\n", cfg.DataFile)
			fmt.Printf("tasks:          %d\n", a.Store.CountTasks())
			if a.Index != nil {
				fmt.Printf("semantic index: %d vectors (%s)\n", a.Index.Len(), cfg.IndexDB)
			} else {
				fmt.Println("semantic index: unavailable, substring matching only")
			}
			return nil
		},
	}
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the vector index from the task store",
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

			if a.Index == nil {
				return fmt.Errorf("embedding model unavailable, cannot rebuild")
			}
			if err := a.Index.Build(ctx, a.Store.ListAllTasks()); err != nil {
				return err
			}
			fmt.Printf("indexed %d task(s)\n", a.Index.Len())
			return nil
		},
	}
}
