package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkettering/foreman/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Foreman database",
		Long:  "Migrates all tables and seeds the maintenance project and the infrastructure option catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	_, gdb, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	prjID, err := db.SeedMaintenanceProject(gdb)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Maintenance project ready (id %d)\n", prjID)

	n, err := db.SeedInfraOptions(gdb)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d infrastructure options\n", n)

	fmt.Fprintln(out, "\nForeman database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate all tables",
		Long:  "Destroys all projects, requests, infrastructure, and learnings, then re-runs init.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foreman.yaml", "path to Foreman config file")
	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, force bool) error {
	out := cmd.OutOrStdout()

	if !force {
		fmt.Fprint(out, "This deletes ALL data. Type 'yes' to continue: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		line, _ := reader.ReadString('\n')
		if strings.TrimSpace(line) != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	_, gdb, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	for _, m := range db.AllModels() {
		if err := gdb.Migrator().DropTable(m); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	fmt.Fprintln(out, "Dropped all tables")

	return runDBInit(cmd, configPath)
}
