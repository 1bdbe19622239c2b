package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkettering/foreman/internal/models"
	"github.com/mkettering/foreman/internal/store"
)

func newInfraCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infra",
		Short: "Infrastructure declaration commands",
	}

	cmd.AddCommand(newInfraAddCmd())
	cmd.AddCommand(newInfraListCmd())
	cmd.AddCommand(newInfraRemoveCmd())
	cmd.AddCommand(newInfraOptionsCmd())
	return cmd
}

func newInfraAddCmd() *cobra.Command {
	var (
		configPath string
		project    uint
		request    uint
		infType    string
		provider   string
		value      string
		note       string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Declare infrastructure for a project or request",
		Long:  "Declares one infra type at the project level, or as a request-level override with --request.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (project == 0) == (request == 0) {
				return fmt.Errorf("exactly one of --project or --request is required")
			}
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if project != 0 {
				inf := models.Infrastructure{
					PrjID:    project,
					Type:     models.InfraType(infType),
					Provider: models.Provider(provider),
					Value:    value,
					Note:     note,
				}
				if err := store.AddProjectInfra(gdb, &inf); err != nil {
					return err
				}
				fmt.Fprintf(out, "Added %s infrastructure %d to project %d\n", inf.Type, inf.InfID, project)
				return nil
			}

			inf := models.RequestInfrastructure{
				ReqID:    request,
				Type:     models.InfraType(infType),
				Provider: models.Provider(provider),
				Value:    value,
				Note:     note,
			}
			if err := store.AddRequestInfra(gdb, &inf); err != nil {
				return err
			}
			fmt.Fprintf(out, "Added %s override %d to request %d\n", inf.Type, inf.InfID, request)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().UintVar(&project, "project", 0, "project id")
	cmd.Flags().UintVar(&request, "request", 0, "request id (override)")
	cmd.Flags().StringVar(&infType, "type", "", "infra type (compute, storage, queue, access, ui)")
	cmd.Flags().StringVar(&provider, "provider", "local", "provider (local, container, aws, gcp, azure)")
	cmd.Flags().StringVar(&value, "value", "", "provider-specific value")
	cmd.Flags().StringVar(&note, "note", "", "free-text note")
	cmd.MarkFlagRequired("type")
	return cmd
}

func newInfraListCmd() *cobra.Command {
	var (
		configPath string
		project    uint
		request    uint
		effective  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declared infrastructure",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (project == 0) == (request == 0) {
				return fmt.Errorf("exactly one of --project or --request is required")
			}
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			if request != 0 && effective {
				entries, err := store.EffectiveInfrastructure(gdb, request)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "No infrastructure declared.")
					return nil
				}
				fmt.Fprintln(w, "TYPE\tPROVIDER\tVALUE\tSOURCE")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Type, e.Provider, e.Value, e.Source)
				}
				return w.Flush()
			}

			if project != 0 {
				rows, err := store.ListProjectInfra(gdb, project)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No infrastructure declared.")
					return nil
				}
				fmt.Fprintln(w, "ID\tTYPE\tPROVIDER\tVALUE\tNOTE")
				for _, r := range rows {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.InfID, r.Type, r.Provider, r.Value, r.Note)
				}
				return w.Flush()
			}

			rows, err := store.ListRequestInfra(gdb, request)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No infrastructure overrides declared.")
				return nil
			}
			fmt.Fprintln(w, "ID\tTYPE\tPROVIDER\tVALUE\tNOTE")
			for _, r := range rows {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.InfID, r.Type, r.Provider, r.Value, r.Note)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().UintVar(&project, "project", 0, "project id")
	cmd.Flags().UintVar(&request, "request", 0, "request id")
	cmd.Flags().BoolVar(&effective, "effective", false, "show the merged view for a request")
	return cmd
}

func newInfraRemoveCmd() *cobra.Command {
	var (
		configPath string
		request    bool
	)

	cmd := &cobra.Command{
		Use:   "remove <infra-id>",
		Short: "Remove an infrastructure declaration",
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
			if request {
				err = store.DeleteRequestInfra(gdb, id)
			} else {
				err = store.DeleteProjectInfra(gdb, id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed infrastructure %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().BoolVar(&request, "request", false, "the id names a request-level override")
	return cmd
}

func newInfraOptionsCmd() *cobra.Command {
	var (
		configPath string
		infType    string
	)

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the selectable infrastructure catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			opts, err := store.ListInfraOptions(gdb, models.InfraType(infType))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(opts) == 0 {
				fmt.Fprintln(out, "No options found. Run 'foreman db init' to seed the catalog.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tPROVIDER")
			for _, o := range opts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", o.Type, o.Name, o.Provider)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().StringVar(&infType, "type", "", "filter by infra type")
	return cmd
}
