// Package main is the entry point for the homework status bot.
//
// Usage:
//
//	homework-bot            # poll forever (same as "run")
//	homework-bot run        # poll forever
//	homework-bot once       # run a single cycle and exit
//	homework-bot check-env  # verify required environment variables
//	homework-bot version    # show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "homework-bot",
	Short: "Notifies a Telegram chat when a homework review status changes",
	Long: `homework-bot polls the homework review API every RETRY_INTERVAL
(or on POLL_SCHEDULE) and sends a Telegram message to TELEGRAM_CHAT_ID
whenever the status of the latest submission changes.

Required environment (a .env file in the working directory is also read):
  PRACTICUM_TOKEN   review API OAuth token
  TELEGRAM_TOKEN    Telegram bot token
  TELEGRAM_CHAT_ID  destination chat id`,
	SilenceUsage: true,
	RunE:         runBot,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "homework-bot %s (commit %s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
