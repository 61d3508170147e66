package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"roverchat/internal/di"
	"roverchat/internal/structures"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %s\n", err)
		os.Exit(1)
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &structures.CliFlags{}

	cmd := &cobra.Command{
		Use:          "roverchat",
		Short:        "Real-time chat and rover poll server",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "config.yml", "path to the config file")
	cmd.PersistentFlags().BoolVarP(&flags.DebugMode, "debug", "d", false, "mirror logs to the console")

	cmd.AddCommand(newServeCommand(flags))
	return cmd
}

func newServeCommand(flags *structures.CliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := di.InitApp(flags)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer cleanup()
			return app.Run(cmd.Context())
		},
	}
}
