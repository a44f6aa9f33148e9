package main

import (
	"fmt"

	"homework_status_bot/internal/infra/config"
	"homework_status_bot/internal/infra/scheduler"

	"github.com/spf13/cobra"
)

var checkEnvCmd = &cobra.Command{
	Use:   "check-env",
	Short: "Verify the environment without contacting any API",
	Long: `Load the environment (and .env, if present) the same way "run" does
and report what is missing or invalid.

Exit codes:
  0 - environment is complete
  1 - something is missing or invalid`,
	RunE: runCheckEnv,
}

func init() {
	rootCmd.AddCommand(checkEnvCmd)
}

func runCheckEnv(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if _, err := scheduler.ParseSchedule(cfg.PollSchedule, cfg.RetryInterval); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Environment is valid!")
	fmt.Fprintf(out, "  Chat ID:         %d\n", cfg.TelegramChatID)
	fmt.Fprintf(out, "  Endpoint:        %s\n", cfg.Endpoint)
	if cfg.PollSchedule != "" {
		fmt.Fprintf(out, "  Poll schedule:   %s\n", cfg.PollSchedule)
	} else {
		fmt.Fprintf(out, "  Retry interval:  %s\n", cfg.RetryInterval)
	}
	fmt.Fprintf(out, "  Request timeout: %s\n", cfg.RequestTimeout)
	return nil
}
