package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pesocoin/colorgame/internal/migrations"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the color game Postgres schema",
	Long: `Apply the embedded goose migrations for the accounts, wagers,
ledger_events, draws and members tables.`,
	SilenceUsage: true,
}

func init() {
	_ = godotenv.Load()
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")

	for _, name := range migrations.Commands {
		rootCmd.AddCommand(gooseCmd(name))
	}
	rootCmd.AddCommand(listCmd)
}

func gooseCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [args]",
		Short: "Run goose " + name,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrations.Run(cmd.Context(), databaseURL, name, args...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", name)
			return nil
		},
	}
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List embedded migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		files, err := migrations.Files()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(files, "\n"))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
