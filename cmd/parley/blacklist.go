package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage subscribers the agent ignores",
	Long:  `Changes are only shared with running servers when state.redis_url is configured.`,
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add <number>...",
	Short: "Stop answering one or more subscribers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildOffline(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		for _, number := range args {
			if err := app.Agent.Dispatcher().AddToBlacklist(cmd.Context(), number); err != nil {
				return fmt.Errorf("error adding '%s': %w", number, err)
			}
			fmt.Printf("Blacklisted '%s'\n", number)
		}
		return nil
	},
}

var blacklistRmCmd = &cobra.Command{
	Use:   "rm <number>...",
	Short: "Answer one or more subscribers again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildOffline(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		for _, number := range args {
			if err := app.Agent.Dispatcher().RemoveFromBlacklist(cmd.Context(), number); err != nil {
				return fmt.Errorf("error removing '%s': %w", number, err)
			}
			fmt.Printf("Removed '%s' from the blacklist\n", number)
		}
		return nil
	},
}

var blacklistCheckCmd = &cobra.Command{
	Use:   "check <number>",
	Short: "Report whether a subscriber is blacklisted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildOffline(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ok, err := app.Agent.Dispatcher().IsBlacklisted(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %t\n", args[0], ok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blacklistCmd)
	blacklistCmd.AddCommand(blacklistAddCmd)
	blacklistCmd.AddCommand(blacklistRmCmd)
	blacklistCmd.AddCommand(blacklistCheckCmd)
}
