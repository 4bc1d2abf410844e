package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/taskhub/task-tracker/internal/client"
	"github.com/taskhub/task-tracker/internal/clientsync"
	"github.com/taskhub/task-tracker/internal/core/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#27ae60"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")).Bold(true)

	priorityColors = map[domain.Priority]lipgloss.Color{
		domain.PriorityHigh:   lipgloss.Color("#e74c3c"),
		domain.PriorityMedium: lipgloss.Color("#f39c12"),
		domain.PriorityLow:    lipgloss.Color("#27ae60"),
	}

	stateStyles = map[clientsync.State]lipgloss.Style{
		clientsync.StateConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("#27ae60")),
		clientsync.StateConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("#f39c12")),
		clientsync.StateDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")),
	}
)

func priorityBadge(p domain.Priority) string {
	style := lipgloss.NewStyle().Bold(true).Width(7)
	if c, ok := priorityColors[p]; ok {
		style = style.Foreground(c)
	}
	return style.Render(string(p))
}

func statusMark(s domain.TaskStatus) string {
	if s == domain.StatusCompleted {
		return doneStyle.Render("[x]")
	}
	return "[ ]"
}

func taskLine(t domain.TaskView) string {
	var meta []string
	if !t.DueDate.IsZero() {
		meta = append(meta, "due "+t.DueDate.Format(time.DateOnly))
	}
	if t.AssignedTo != nil {
		meta = append(meta, "@"+t.AssignedTo.Name)
	} else {
		meta = append(meta, "@(deleted user)")
	}
	meta = append(meta, t.ID)

	title := titleStyle.Render(t.Title)
	if t.Status == domain.StatusCompleted {
		title = mutedStyle.Strikethrough(true).Render(t.Title)
	}
	return fmt.Sprintf("%s %s %s  %s", statusMark(t.Status), priorityBadge(t.Priority), title,
		mutedStyle.Render(strings.Join(meta, " | ")))
}

func renderTask(w io.Writer, t domain.TaskView) {
	fmt.Fprintln(w, taskLine(t))
	if d := strings.TrimSpace(t.Description); d != "" {
		fmt.Fprintln(w, mutedStyle.PaddingLeft(4).Render(d))
	}
}

func renderTasks(w io.Writer, tasks []domain.TaskView) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no tasks"))
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, taskLine(t))
	}
}

func renderTaskPage(w io.Writer, p *client.Page[domain.TaskView]) {
	renderTasks(w, p.Items)
	fmt.Fprintln(w, pageFooter(p.CurrentPage, p.TotalPages, p.TotalItems))
}

func pageFooter(current, total int, items int64) string {
	return mutedStyle.Render(fmt.Sprintf("page %d of %d, %d total", current, total, items))
}

func renderUsers(w io.Writer, users []domain.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no users"))
		return
	}
	for _, u := range users {
		role := u.Role
		if u.IsAdmin() {
			role = titleStyle.Render(role)
		}
		fmt.Fprintf(w, "%-24s %-32s %s  %s\n", u.Name, u.Email, role, mutedStyle.Render(u.ID))
	}
}

func renderStats(s clientsync.TaskStats) string {
	return fmt.Sprintf("%s %d   %s %d   %s %d",
		headerStyle.Render("Total"), s.Total,
		headerStyle.Render("Pending"), s.Pending,
		headerStyle.Render("Completed"), s.Completed)
}

func renderState(s clientsync.State) string {
	style, ok := stateStyles[s]
	if !ok {
		style = mutedStyle
	}
	return style.Render("● " + string(s))
}
