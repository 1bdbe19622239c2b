package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/store"
)

func newLearningCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learning",
		Short: "Learning note commands",
		Long:  "Learnings are short notes injected into future prompts. Project learnings apply to one project; global learnings apply to all.",
	}

	cmd.AddCommand(newLearningAddCmd())
	cmd.AddCommand(newLearningListCmd())
	cmd.AddCommand(newLearningRemoveCmd())
	return cmd
}

func newLearningAddCmd() *cobra.Command {
	var (
		configPath string
		project    int
		global     bool
		text       string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a learning note",
		RunE: func(cmd *cobra.Command, args []string) error {
			if global {
				project = models.GlobalLearningID
			} else if project <= 0 {
				return fmt.Errorf("--project or --global is required")
			}
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := store.AddLearning(gdb, project, text); err != nil {
				return err
			}
			scope := fmt.Sprintf("project %d", project)
			if global {
				scope = "all projects"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added learning for %s\n", scope)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().IntVar(&project, "project", 0, "project id")
	cmd.Flags().BoolVar(&global, "global", false, "apply to all projects")
	cmd.Flags().StringVar(&text, "text", "", "learning text (required)")
	cmd.MarkFlagRequired("text")
	return cmd
}

func newLearningListCmd() *cobra.Command {
	var (
		configPath string
		project    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learnings for a project (including globals)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			rows, err := store.LearningsWithGlobal(gdb, project)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No learnings found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCOPE\tTEXT")
			for _, l := range rows {
				fmt.Fprintf(w, "%d\t%s\t%s\n", l.LrnID, l.Scope, l.Desc)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().IntVar(&project, "project", 0, "project id (required)")
	cmd.MarkFlagRequired("project")
	return cmd
}

func newLearningRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a learning note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := store.DeleteLearning(gdb, uint(v)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed learning %d\n", v)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}
