// Package taskcmder provides the task commands.
package taskcmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tickcli/tickcli/pkg/credentials"
	"github.com/tickcli/tickcli/pkg/oauth"
	"github.com/tickcli/tickcli/pkg/output"
	"github.com/tickcli/tickcli/pkg/ticktick"
)

// NewTaskCmd creates the task command tree.
func NewTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with TickTick tasks",
	}

	cmd.AddCommand(newAddCmd(), newListCmd(), newShowCmd(), newUpdateCmd(), newCompleteCmd(), newDeleteCmd())

	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		projectID string
		content   string
		priority  string
		due       string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prio, err := output.ParsePriority(priority)
			if err != nil {
				return err
			}

			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			task := &ticktick.Task{
				Title:     args[0],
				ProjectID: projectID,
				Content:   content,
				Priority:  prio,
				DueDate:   due,
			}

			created, err := client.CreateTask(cmd.Context(), task)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", created.ID, created.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id (defaults to the inbox)")
	cmd.Flags().StringVar(&content, "content", "", "task notes, markdown allowed")
	cmd.Flags().StringVar(&priority, "priority", "", "none, low, medium, or high")
	cmd.Flags().StringVar(&due, "due", "", "due date, e.g. 2026-09-01T10:00:00+0000")

	return cmd
}

func newListCmd() *cobra.Command {
	var (
		projectID string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open tasks in a project or the inbox",
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

			var tasks []ticktick.Task
			if projectID == "" {
				tasks, err = client.InboxTasks(cmd.Context())
			} else {
				var data *ticktick.ProjectData
				data, err = client.ProjectData(cmd.Context(), projectID)
				if data != nil {
					tasks = data.Tasks
				}
			}
			if err != nil {
				return err
			}

			return output.Tasks(cmd.OutOrStdout(), tasks, f)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id (defaults to the inbox)")
	cmd.Flags().StringVar(&format, "format", "human", "human or json")

	return cmd
}

func newShowCmd() *cobra.Command {
	var (
		projectID string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task in full, including notes",
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

			task, err := client.Task(cmd.Context(), projectID, args[0])
			if err != nil {
				return err
			}

			return output.TaskDetail(cmd.OutOrStdout(), task, f)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id the task belongs to")
	cmd.Flags().StringVar(&format, "format", "human", "human or json")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		projectID string
		title     string
		content   string
		priority  string
		due       string
	)

	cmd := &cobra.Command{
		Use:     "update <task-id>",
		Aliases: []string{"edit"},
		Short:   "Update fields of an existing task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only flags the caller set are applied; the rest of the task
			// is fetched and sent back unchanged.
			var prio int
			if cmd.Flags().Changed("priority") {
				var err error
				prio, err = output.ParsePriority(priority)
				if err != nil {
					return err
				}
			}

			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			task, err := client.Task(cmd.Context(), projectID, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("title") {
				task.Title = title
			}
			if cmd.Flags().Changed("content") {
				task.Content = content
			}
			if cmd.Flags().Changed("priority") {
				task.Priority = prio
			}
			if cmd.Flags().Changed("due") {
				task.DueDate = due
			}

			updated, err := client.UpdateTask(cmd.Context(), args[0], task)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s: %s\n", updated.ID, updated.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id the task belongs to")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new notes, markdown allowed")
	cmd.Flags().StringVar(&priority, "priority", "", "none, low, medium, or high")
	cmd.Flags().StringVar(&due, "due", "", "new due date")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newCompleteCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			if err := client.CompleteTask(cmd.Context(), projectID, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Completed task %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id the task belongs to")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			if err := client.DeleteTask(cmd.Context(), projectID, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id the task belongs to")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

// newAPIClient assembles the API client behind every task command: env
// config, credential store honoring --config-dir, and the token manager
// as the client's token source.
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
