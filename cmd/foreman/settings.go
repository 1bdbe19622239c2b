package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkettering/foreman/internal/config"
	"github.com/mkettering/foreman/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Dynamic settings commands",
		Long:  "Settings live in a JSON file the daemon re-reads every iteration, so changes apply to a running daemon.",
	}

	cmd.AddCommand(newSettingsShowCmd())
	cmd.AddCommand(newSettingsSetCmd())
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			s := settings.Load(cfg.SettingsPath())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Auth mode:         %s\n", s.AuthMode)
			fmt.Fprintf(out, "Model:             %s\n", s.Model)
			fmt.Fprintf(out, "Max turns:         %d\n", s.MaxTurns)
			fmt.Fprintf(out, "Poll interval:     %ds\n", s.PollIntervalSecs)
			fmt.Fprintf(out, "Loop paused:       %t\n", s.LoopPaused)
			if s.MaxIterations > 0 {
				fmt.Fprintf(out, "Max iterations:    %d\n", s.MaxIterations)
			} else {
				fmt.Fprintln(out, "Max iterations:    unlimited")
			}
			fmt.Fprintf(out, "Commit enabled:    %t\n", s.CommitEnabledOrDefault())
			fmt.Fprintf(out, "Commit branch:     %s", s.CommitBranchMode)
			if s.CommitBranchMode == "other" {
				fmt.Fprintf(out, " (%s)", s.CommitBranchName)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Doc retention:     %d days\n", s.DocRetentionDays)
			fmt.Fprintf(out, "Doc cleanup cron:  %s\n", s.DocCleanupCron)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

func newSettingsSetCmd() *cobra.Command {
	var (
		configPath    string
		authMode      string
		model         string
		maxTurns      int
		pollInterval  int
		maxIterations int
		commit        string
		branchMode    string
		branchName    string
		docRetention  int
		docCron       string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			s := settings.Load(cfg.SettingsPath())

			if cmd.Flags().Changed("auth-mode") {
				s.AuthMode = authMode
			}
			if cmd.Flags().Changed("model") {
				s.Model = model
			}
			if cmd.Flags().Changed("max-turns") {
				s.MaxTurns = maxTurns
			}
			if cmd.Flags().Changed("poll-interval") {
				s.PollIntervalSecs = pollInterval
			}
			if cmd.Flags().Changed("max-iterations") {
				s.MaxIterations = maxIterations
			}
			if cmd.Flags().Changed("commit") {
				switch commit {
				case "enabled":
					v := true
					s.CommitEnabled = &v
				case "disabled":
					v := false
					s.CommitEnabled = &v
				case "default":
					s.CommitEnabled = nil
				default:
					return fmt.Errorf("--commit must be enabled, disabled, or default")
				}
			}
			if cmd.Flags().Changed("branch-mode") {
				s.CommitBranchMode = branchMode
			}
			if cmd.Flags().Changed("branch-name") {
				s.CommitBranchName = branchName
			}
			if cmd.Flags().Changed("doc-retention") {
				s.DocRetentionDays = docRetention
			}
			if cmd.Flags().Changed("doc-cleanup-cron") {
				s.DocCleanupCron = docCron
			}

			if err := settings.Save(cfg.SettingsPath(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings saved to %s\n", cfg.SettingsPath())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().StringVar(&authMode, "auth-mode", "", "agent auth mode (api, max)")
	cmd.Flags().StringVar(&model, "model", "", "default model")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "max agent turns per phase")
	cmd.Flags().IntVar(&pollInterval, "poll-interval", 0, "daemon poll interval in seconds")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "stop the daemon after N iterations (0 = unlimited)")
	cmd.Flags().StringVar(&commit, "commit", "", "global commit phase default (enabled, disabled, default)")
	cmd.Flags().StringVar(&branchMode, "branch-mode", "", "commit branch mode (current, other)")
	cmd.Flags().StringVar(&branchName, "branch-name", "", "commit branch name for mode 'other'")
	cmd.Flags().IntVar(&docRetention, "doc-retention", 0, "doc retention in days (0 disables cleanup)")
	cmd.Flags().StringVar(&docCron, "doc-cleanup-cron", "", "doc cleanup schedule (5-field cron)")
	return cmd
}
