package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/store"
)

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request management commands",
	}

	cmd.AddCommand(newRequestCreateCmd())
	cmd.AddCommand(newRequestListCmd())
	cmd.AddCommand(newRequestShowCmd())
	cmd.AddCommand(newRequestUpdateCmd())
	cmd.AddCommand(newRequestRequeueCmd())
	cmd.AddCommand(newRequestDeleteCmd())
	return cmd
}

func newRequestCreateCmd() *cobra.Command {
	var (
		configPath string
		project    uint
		name       string
		promptText string
		reqType    string
		priority   int
		codeDir    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Queue a new request",
		Long:  "Queues a request against a project. It enters the plan phase as pending work.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			req := models.Request{
				PrjID:    project,
				Name:     name,
				Prompt:   promptText,
				Type:     models.RequestType(reqType),
				Priority: priority,
				CodeDir:  codeDir,
			}
			if err := store.CreateRequest(gdb, &req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued request %d (%s) in %s phase\n",
				req.ReqID, req.Name, req.Phase)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().UintVar(&project, "project", 0, "owning project id (required)")
	cmd.Flags().StringVar(&name, "name", "", "request name (required)")
	cmd.Flags().StringVar(&promptText, "prompt", "", "what to build (required)")
	cmd.Flags().StringVar(&reqType, "type", "new_feature", "request type (new_feature, bug_fix, enhancement)")
	cmd.Flags().IntVar(&priority, "priority", models.DefaultPriority, "priority (1=highest, 10=lowest)")
	cmd.Flags().StringVar(&codeDir, "code-dir", "", "working directory override")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("prompt")
	return cmd
}

func newRequestListCmd() *cobra.Command {
	var (
		configPath string
		project    uint
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			views, err := store.ListRequests(gdb, project, models.Status(status))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No requests found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROJECT\tTYPE\tPHASE\tSTATUS\tPRI\tRETRIES")
			for _, v := range views {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
					v.ReqID, v.Name, v.PrjName, v.Type, v.Phase, v.Status, v.Priority, v.TestRetries)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().UintVar(&project, "project", 0, "filter by project id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (tbd, wip, done, err, tmout)")
	return cmd
}

func newRequestShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show request details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			v, err := store.GetRequestView(gdb, id)
			if err != nil {
				return err
			}
			infra, err := store.EffectiveInfrastructure(gdb, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Request %d: %s\n", v.ReqID, v.Name)
			fmt.Fprintf(out, "  Project:  %s (%d)\n", v.PrjName, v.PrjID)
			fmt.Fprintf(out, "  Type:     %s\n", v.Type)
			fmt.Fprintf(out, "  Phase:    %s\n", v.Phase)
			fmt.Fprintf(out, "  Status:   %s\n", v.Status)
			fmt.Fprintf(out, "  Priority: %d\n", v.Priority)
			fmt.Fprintf(out, "  Code dir: %s\n", v.EffectiveCodeDir())
			if v.TestRetries > 0 {
				fmt.Fprintf(out, "  Test retries: %d\n", v.TestRetries)
			}
			if v.DocPath != "" {
				fmt.Fprintf(out, "  Last doc: %s\n", v.DocPath)
			}
			if v.PlanPath != "" {
				fmt.Fprintf(out, "  Plan:     %s\n", v.PlanPath)
			}
			if v.LastError != "" {
				fmt.Fprintf(out, "  Error:    %s\n", v.LastError)
			}
			if len(infra) > 0 {
				fmt.Fprintln(out, "  Infrastructure:")
				for _, e := range infra {
					fmt.Fprintf(out, "    %s: %s (%s) [%s]\n", e.Type, e.Provider, e.Value, e.Source)
				}
			}
			fmt.Fprintf(out, "\nPrompt:\n%s\n", v.Prompt)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

func newRequestUpdateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		promptText string
		reqType    string
		priority   int
		codeDir    string
		commit     string
		branch     string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update request fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			upd := store.RequestUpdate{}
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("prompt") {
				upd.Prompt = &promptText
			}
			if cmd.Flags().Changed("type") {
				t := models.RequestType(reqType)
				upd.Type = &t
			}
			if cmd.Flags().Changed("priority") {
				upd.Priority = &priority
			}
			if cmd.Flags().Changed("code-dir") {
				upd.CodeDir = &codeDir
			}
			if cmd.Flags().Changed("branch") {
				upd.CommitBranch = &branch
			}
			if cmd.Flags().Changed("commit") {
				switch commit {
				case "skip":
					v := models.CommitForceSkip
					upd.CommitEnabled = &v
				case "force":
					v := models.CommitForceInclude
					upd.CommitEnabled = &v
				case "default":
					upd.ClearCommitEnabled = true
				default:
					return fmt.Errorf("--commit must be skip, force, or default")
				}
			}

			if err := store.UpdateRequest(gdb, id, upd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated request %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().StringVar(&name, "name", "", "new request name")
	cmd.Flags().StringVar(&promptText, "prompt", "", "new prompt")
	cmd.Flags().StringVar(&reqType, "type", "", "request type")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority (1=highest, 10=lowest)")
	cmd.Flags().StringVar(&codeDir, "code-dir", "", "working directory override")
	cmd.Flags().StringVar(&commit, "commit", "", "commit phase override (skip, force, default)")
	cmd.Flags().StringVar(&branch, "branch", "", "commit branch override")
	return cmd
}

func newRequestRequeueCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "requeue <id>",
		Short: "Put a request back in the pending queue",
		Long:  "Marks a failed or stuck request pending again so the daemon retries its current phase.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := store.Requeue(gdb, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued request %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

func newRequestDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := store.DeleteRequest(gdb, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted request %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}
