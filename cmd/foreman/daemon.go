package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkettering/foreman/internal/agent"
	"github.com/mkettering/foreman/internal/config"
	"github.com/mkettering/foreman/internal/loop"
	"github.com/mkettering/foreman/internal/notify"
	"github.com/mkettering/foreman/internal/notify/discord"
	"github.com/mkettering/foreman/internal/notify/slack"
	"github.com/mkettering/foreman/internal/settings"
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Work loop daemon commands",
	}

	cmd.AddCommand(newDaemonRunCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())
	cmd.AddCommand(newDaemonPauseCmd(true))
	cmd.AddCommand(newDaemonPauseCmd(false))
	return cmd
}

func newDaemonRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the work loop in the foreground",
		Long:  "Claims pending requests one at a time and drives each through its current phase. Stops cleanly on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			if err := loop.WritePID(cfg.PIDPath()); err != nil {
				return err
			}
			defer loop.RemovePID(cfg.PIDPath())

			runner := agent.NewCLIRunner(cfg.Agent.Binary)
			notifier := buildNotifier(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d := loop.New(gdb, cfg, runner, notifier, cmd.OutOrStdout())
			return d.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

func newDaemonStopCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := loop.StopDaemon(cfg.PIDPath()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stop signal sent")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

func newDaemonStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			pid, running := loop.DaemonStatus(cfg.PIDPath())
			if running {
				fmt.Fprintf(out, "Daemon running (pid %d)\n", pid)
			} else {
				fmt.Fprintln(out, "Daemon not running")
			}

			s := settings.Load(cfg.SettingsPath())
			if s.LoopPaused {
				fmt.Fprintln(out, "Loop is paused")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

// newDaemonPauseCmd builds the pause or resume command; both just flip the
// settings flag the daemon re-reads each iteration.
func newDaemonPauseCmd(pause bool) *cobra.Command {
	var configPath string

	use, short := "pause", "Pause the work loop without stopping the daemon"
	if !pause {
		use, short = "resume", "Resume a paused work loop"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			s := settings.Load(cfg.SettingsPath())
			s.LoopPaused = pause
			if err := settings.Save(cfg.SettingsPath(), s); err != nil {
				return err
			}
			if pause {
				fmt.Fprintln(cmd.OutOrStdout(), "Loop paused")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Loop resumed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

// buildNotifier creates the notifier from whichever chat adapters are
// configured. Misconfigured adapters are logged and skipped.
func buildNotifier(cfg *config.Config) *notify.Notifier {
	var adapters []notify.Adapter

	if cfg.Notify.Slack.BotToken != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
		if err != nil {
			log.Printf("notify: slack disabled: %v", err)
		} else {
			adapters = append(adapters, a)
		}
	}
	if cfg.Notify.Discord.BotToken != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			log.Printf("notify: discord disabled: %v", err)
		} else {
			adapters = append(adapters, a)
		}
	}
	return notify.New(adapters...)
}
