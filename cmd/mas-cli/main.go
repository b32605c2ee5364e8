package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err == nil {
		log.Println(".env file loaded")
	}

	rootCmd := &cobra.Command{
		Use:     "mas",
		Short:   "MAS - conversational task assistant",
		Version: Version,
	}

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
