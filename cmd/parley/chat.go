package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/adapters/console"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the agent from the terminal",
	Long: `Runs the flow in the terminal as subscriber --number. Type quit to leave and
"/media <url> [caption]" to send a file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		number, _ := cmd.Flags().GetString("number")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		term := console.New(os.Stdin, os.Stdout, console.WithNumber(number), console.WithLogger(logger))
		app, err := cli.Build(ctx, cfg, logger, term)
		if err != nil {
			return err
		}
		defer app.Close()

		go app.History.Monitor(ctx)

		if console.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
		}

		if err := term.Run(ctx, app.Agent.Dispatcher()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("number", console.DefaultNumber, "Subscriber id used for this session")
}
