// Package projectcmder provides the project commands.
package projectcmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tickcli/tickcli/pkg/credentials"
	"github.com/tickcli/tickcli/pkg/oauth"
	"github.com/tickcli/tickcli/pkg/output"
	"github.com/tickcli/tickcli/pkg/ticktick"
)

// NewProjectCmd creates the project command tree.
func NewProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Work with TickTick projects",
	}

	cmd.AddCommand(newAddCmd(), newListCmd(), newGetCmd(), newDataCmd(), newUpdateCmd(), newDeleteCmd())

	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		color    string
		viewMode string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			created, err := client.CreateProject(cmd.Context(), &ticktick.Project{
				Name:     args[0],
				Color:    color,
				ViewMode: viewMode,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s: %s\n", created.ID, created.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "hex color, e.g. #F18181")
	cmd.Flags().StringVar(&viewMode, "view", "", "list, kanban, or timeline")

	return cmd
}

func newListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			projects, err := client.Projects(cmd.Context())
			if err != nil {
				return err
			}

			return output.Projects(cmd.OutOrStdout(), projects, f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "human", "human or json")

	return cmd
}

func newGetCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get <project-id>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			project, err := client.Project(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return output.Projects(cmd.OutOrStdout(), []ticktick.Project{*project}, f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "human", "human or json")

	return cmd
}

func newDataCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "data <project-id>",
		Short: "Show a project with its open tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			data, err := client.ProjectData(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f == output.FormatJSON {
				return output.Tasks(out, data.Tasks, f)
			}

			fmt.Fprintf(out, "Project: %s (%s)\n", data.Project.Name, data.Project.ID)
			return output.Tasks(out, data.Tasks, f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "human", "human or json")

	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		name     string
		color    string
		viewMode string
	)

	cmd := &cobra.Command{
		Use:     "update <project-id>",
		Aliases: []string{"edit"},
		Short:   "Update fields of an existing project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			// Only flags the caller set are applied; the rest of the
			// project is fetched and sent back unchanged.
			project, err := client.Project(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("name") {
				project.Name = name
			}
			if cmd.Flags().Changed("color") {
				project.Color = color
			}
			if cmd.Flags().Changed("view") {
				project.ViewMode = viewMode
			}

			updated, err := client.UpdateProject(cmd.Context(), args[0], project)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s: %s\n", updated.ID, updated.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&color, "color", "", "hex color, e.g. #F18181")
	cmd.Flags().StringVar(&viewMode, "view", "", "list, kanban, or timeline")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			if err := client.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}

	return cmd
}

func newAPIClient(cmd *cobra.Command) (*ticktick.Client, error) {
	cfg, err := oauth.LoadConfig()
	if err != nil {
		return nil, err
	}
	for _, warning := range cfg.Warnings {
		fmt.Fprintln(os.Stderr, "warning: "+warning)
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	store, err := credentials.NewStore(configDir)
	if err != nil {
		return nil, err
	}

	return ticktick.NewClient(oauth.NewManager(cfg, store, nil)), nil
}
