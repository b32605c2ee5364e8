package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/npolatykin/mas-sandbox/internal/app"
	"github.com/npolatykin/mas-sandbox/internal/config"
)

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in a REPL",
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

			// One session id for the whole REPL so conversational memory
			// held outside the core stays scoped to this run.
			if sessionID == "" {
				sessionID = "cli-session-" + uuid.NewString()[:8]
			}

			fmt.Println("Task assistant ready. Type 'exit' to quit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("\nyou> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					fmt.Println("bye")
					return nil
				}

				response := a.Agent.HandleMessage(ctx, sessionID, line)
				fmt.Printf("assistant> %s\n", response)
			}
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session identifier (random when empty)")
	return cmd
}
