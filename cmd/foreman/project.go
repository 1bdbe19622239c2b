package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/store"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project management commands",
	}

	cmd.AddCommand(newProjectCreateCmd())
	cmd.AddCommand(newProjectListCmd())
	cmd.AddCommand(newProjectShowCmd())
	cmd.AddCommand(newProjectUpdateCmd())
	cmd.AddCommand(newProjectDeleteCmd())
	return cmd
}

func newProjectCreateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		version    string
		priority   int
		phase      string
		desc       string
		codeDir    string
		guidelines string
		docPath    string
		model      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new project",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			prj := models.Project{
				Name:     name,
				Version:  models.Version(version),
				Priority: priority,
				Phase:    models.ProjectPhase(phase),
				Desc:     desc,
				CodeDir:  codeDir,
				Prompt:   guidelines,
				DocPath:  docPath,
				Model:    model,
			}
			if err := store.CreateProject(gdb, &prj); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %d (%s)\n", prj.PrjID, prj.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().StringVar(&name, "name", "", "project name (required)")
	cmd.Flags().StringVar(&version, "version", "poc", "version label (poc, mvp, v1, v1.1, v2)")
	cmd.Flags().IntVar(&priority, "priority", models.DefaultPriority, "priority (1=highest, 10=lowest)")
	cmd.Flags().StringVar(&phase, "phase", "dev", "project phase (dev, qa, uat, prod)")
	cmd.Flags().StringVar(&desc, "description", "", "project description")
	cmd.Flags().StringVar(&codeDir, "code-dir", "", "default working directory for requests")
	cmd.Flags().StringVar(&guidelines, "guidelines", "", "project guidelines appended to every prompt")
	cmd.Flags().StringVar(&docPath, "doc-path", "", "project documentation directory")
	cmd.Flags().StringVar(&model, "model", "", "model override for this project's requests")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			prjs, err := store.ListProjects(gdb)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(prjs) == 0 {
				fmt.Fprintln(out, "No projects found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tVERSION\tPHASE\tPRI\tCODE DIR")
			for _, p := range prjs {
				dir := p.CodeDir
				if dir == "" {
					dir = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
					p.PrjID, p.Name, p.Version, p.Phase, p.Priority, dir)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

func newProjectShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show project details",
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
			prj, err := store.GetProject(gdb, id)
			if err != nil {
				return err
			}
			infra, err := store.ListProjectInfra(gdb, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project %d: %s\n", prj.PrjID, prj.Name)
			fmt.Fprintf(out, "  Version:  %s\n", prj.Version)
			fmt.Fprintf(out, "  Phase:    %s\n", prj.Phase)
			fmt.Fprintf(out, "  Priority: %d\n", prj.Priority)
			if prj.Desc != "" {
				fmt.Fprintf(out, "  Description: %s\n", prj.Desc)
			}
			if prj.CodeDir != "" {
				fmt.Fprintf(out, "  Code dir: %s\n", prj.CodeDir)
			}
			if prj.Model != "" {
				fmt.Fprintf(out, "  Model:    %s\n", prj.Model)
			}
			switch {
			case prj.CommitEnabled == nil:
				fmt.Fprintln(out, "  Commit:   (global default)")
			case *prj.CommitEnabled == models.CommitDisabled:
				fmt.Fprintln(out, "  Commit:   disabled")
			default:
				fmt.Fprintln(out, "  Commit:   enabled")
			}
			if len(infra) > 0 {
				fmt.Fprintln(out, "  Infrastructure:")
				for _, inf := range infra {
					fmt.Fprintf(out, "    [%d] %s: %s (%s)\n", inf.InfID, inf.Type, inf.Provider, inf.Value)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

func newProjectUpdateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		version    string
		priority   int
		phase      string
		desc       string
		codeDir    string
		guidelines string
		model      string
		commit     string
		branchMode string
		branchName string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update project fields",
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

			upd := store.ProjectUpdate{}
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("version") {
				v := models.Version(version)
				upd.Version = &v
			}
			if cmd.Flags().Changed("priority") {
				upd.Priority = &priority
			}
			if cmd.Flags().Changed("phase") {
				p := models.ProjectPhase(phase)
				upd.Phase = &p
			}
			if cmd.Flags().Changed("description") {
				upd.Desc = &desc
			}
			if cmd.Flags().Changed("code-dir") {
				upd.CodeDir = &codeDir
			}
			if cmd.Flags().Changed("guidelines") {
				upd.Prompt = &guidelines
			}
			if cmd.Flags().Changed("model") {
				upd.Model = &model
			}
			if cmd.Flags().Changed("commit") {
				switch commit {
				case "enabled":
					v := models.CommitEnabled
					upd.CommitEnabled = &v
				case "disabled":
					v := models.CommitDisabled
					upd.CommitEnabled = &v
				case "default":
					upd.ClearCommitEnabled = true
				default:
					return fmt.Errorf("--commit must be enabled, disabled, or default")
				}
			}
			if cmd.Flags().Changed("branch-mode") {
				upd.CommitBranchMode = &branchMode
			}
			if cmd.Flags().Changed("branch-name") {
				upd.CommitBranchName = &branchName
			}

			if err := store.UpdateProject(gdb, id, upd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().StringVar(&name, "name", "", "new project name")
	cmd.Flags().StringVar(&version, "version", "", "version label")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority (1=highest, 10=lowest)")
	cmd.Flags().StringVar(&phase, "phase", "", "project phase")
	cmd.Flags().StringVar(&desc, "description", "", "project description")
	cmd.Flags().StringVar(&codeDir, "code-dir", "", "default working directory")
	cmd.Flags().StringVar(&guidelines, "guidelines", "", "project guidelines")
	cmd.Flags().StringVar(&model, "model", "", "model override")
	cmd.Flags().StringVar(&commit, "commit", "", "commit phase policy (enabled, disabled, default)")
	cmd.Flags().StringVar(&branchMode, "branch-mode", "", "commit branch mode (current, other)")
	cmd.Flags().StringVar(&branchName, "branch-name", "", "commit branch name for mode 'other'")
	return cmd
}

func newProjectDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and all of its requests",
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
			if err := store.DeleteProject(gdb, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

func parseID(raw string) (uint, error) {
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(v), nil
}
