// Package output renders tasks and projects for humans and scripts.
// Interactive terminals get tables; pipes get stable line-oriented
// output; --format json bypasses both.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/tickcli/tickcli/pkg/ticktick"
)

// Format selects the rendering mode.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatHuman:
		return FormatHuman, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected human or json)", s)
	}
}

// Tasks renders a task list.
func Tasks(w io.Writer, tasks []ticktick.Task, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, tasks)
	}

	if !isTerminal(w) {
		for _, t := range tasks {
			fmt.Fprintf(w, "%s|%s\n", t.ID, t.Title)
		}
		return nil
	}

	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Due"})
	for _, t := range tasks {
		tw.AppendRow(table.Row{t.ID, t.Title, PriorityLabel(t.Priority), dateOnly(t.DueDate)})
	}
	tw.Render()
	return nil
}

// Projects renders a project list.
func Projects(w io.Writer, projects []ticktick.Project, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, projects)
	}

	if !isTerminal(w) {
		for _, p := range projects {
			fmt.Fprintf(w, "%s|%s\n", p.ID, p.Name)
		}
		return nil
	}

	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"ID", "Name", "Color", "View"})
	for _, p := range projects {
		tw.AppendRow(table.Row{shortID(p.ID), p.Name, p.Color, p.ViewMode})
	}
	tw.Render()
	return nil
}

// TaskDetail renders a single task, including its notes. Markdown notes
// are rendered on terminals and passed through verbatim on pipes.
func TaskDetail(w io.Writer, task *ticktick.Task, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, task)
	}

	fmt.Fprintf(w, "ID:       %s\n", task.ID)
	fmt.Fprintf(w, "Project:  %s\n", task.ProjectID)
	fmt.Fprintf(w, "Title:    %s\n", task.Title)
	if task.Priority != ticktick.PriorityNone {
		fmt.Fprintf(w, "Priority: %s\n", PriorityLabel(task.Priority))
	}
	if task.DueDate != "" {
		fmt.Fprintf(w, "Due:      %s\n", dateOnly(task.DueDate))
	}
	if task.Status == ticktick.StatusCompleted {
		fmt.Fprintln(w, "Status:   completed")
	}
	for _, item := range task.Items {
		mark := " "
		if item.Status == ticktick.StatusCompleted {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s\n", mark, item.Title)
	}

	if task.Content != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, renderNotes(w, task.Content))
	}
	return nil
}

// PriorityLabel maps the API's numeric priority to its display name.
func PriorityLabel(priority int) string {
	switch priority {
	case ticktick.PriorityNone:
		return ""
	case ticktick.PriorityLow:
		return "Low"
	case ticktick.PriorityMedium:
		return "Medium"
	case ticktick.PriorityHigh:
		return "High"
	default:
		return strconv.Itoa(priority)
	}
}

// ParsePriority maps a --priority flag value to the API encoding.
func ParsePriority(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ticktick.PriorityNone, nil
	case "low":
		return ticktick.PriorityLow, nil
	case "medium":
		return ticktick.PriorityMedium, nil
	case "high":
		return ticktick.PriorityHigh, nil
	default:
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		return 0, fmt.Errorf("unknown priority %q (expected none, low, medium, or high)", s)
	}
}

func renderNotes(w io.Writer, content string) string {
	if !isTerminal(w) {
		return content + "\n"
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content + "\n"
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return rendered
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func dateOnly(date string) string {
	if i := strings.Index(date, "T"); i >= 0 {
		return date[:i]
	}
	return date
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
