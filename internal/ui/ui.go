// Package ui renders boards, tasks and reports for the lanes CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/lanes/internal/archive"
	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/filter"
	"github.com/papapumpkin/lanes/internal/reconcile"
)

var (
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleDim     = lipgloss.NewStyle().Faint(true)
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	styleSuccess = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	styleWarn    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	styleID      = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// statusStyles colors each status label.
var statusStyles = map[board.Status]lipgloss.Style{
	board.StatusReady:         lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	board.StatusInProgress:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	board.StatusNeedsFeedback: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	board.StatusBlocked:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	board.StatusDone:          lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
}

// Printer writes command results to out and diagnostics to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
}

// New returns a Printer on stdout and stderr.
func New() *Printer {
	return &Printer{out: os.Stdout, errOut: os.Stderr}
}

// NewWriter returns a Printer on the given writers.
func NewWriter(out, errOut io.Writer) *Printer {
	return &Printer{out: out, errOut: errOut}
}

// Success prints a confirmation line to errOut.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.errOut, styleSuccess.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// Warn prints a warning line to errOut.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.errOut, styleWarn.Render("⚠")+" "+fmt.Sprintf(format, args...))
}

// Error prints msg as an error to errOut.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.errOut, styleError.Render("error:")+" "+msg)
}

// Info prints a dimmed informational line to errOut.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.errOut, styleDim.Render(msg))
}

// StatusLabel returns the styled status of t.
func StatusLabel(t board.Task) string {
	st := t.CurrentStatus()
	style, ok := statusStyles[st]
	if !ok {
		return string(st)
	}
	return style.Render(string(st))
}

// ColumnHeader formats a column name with its task count and WIP limit,
// e.g. "In Progress (2/3)".
func ColumnHeader(c board.Column, count int) string {
	if c.WIPLimit > 0 {
		return fmt.Sprintf("%s (%d/%d)", c.DisplayName(), count, c.WIPLimit)
	}
	return fmt.Sprintf("%s (%d)", c.DisplayName(), count)
}

// Board prints every column in position order with the tasks matching st.
// Columns whose tasks are all filtered out are still listed.
func (p *Printer) Board(b *board.Board, st filter.State) {
	if len(b.Columns) == 0 {
		fmt.Fprintln(p.out, styleDim.Render("(empty board; run lanes init)"))
		return
	}
	if !st.IsEmpty() {
		fmt.Fprintln(p.out, styleDim.Render("filter: "+st.String()))
	}
	for i := range b.Columns {
		col := &b.Columns[i]
		all := b.TasksIn(col.ID)
		header := styleHeader.Render(ColumnHeader(*col, len(all)))
		if b.OverWIPLimit(col.ID) {
			header += " " + styleWarn.Render("over WIP limit")
		}
		fmt.Fprintf(p.out, "%s %s\n", header, styleDim.Render(col.ID))

		tasks := filter.ApplyFilters(all, col, st)
		if len(tasks) == 0 {
			fmt.Fprintln(p.out, styleDim.Render("  (none)"))
		}
		for _, t := range tasks {
			fmt.Fprintln(p.out, "  "+TaskLine(t))
		}
		fmt.Fprintln(p.out)
	}
}

// TaskLine formats a task on one line: id, status, title, tags and owner.
func TaskLine(t board.Task) string {
	var sb strings.Builder
	sb.WriteString(styleID.Render(fmt.Sprintf("%-10s", t.ID)))
	sb.WriteString(" ")
	sb.WriteString(StatusLabel(t))
	sb.WriteString(" ")
	sb.WriteString(t.Title)
	if t.Priority != "" {
		sb.WriteString(" " + styleWarn.Render("!"+string(t.Priority)))
	}
	for _, tag := range t.Tags {
		sb.WriteString(" " + styleDim.Render("#"+tag))
	}
	if t.Owner != "" {
		sb.WriteString(" " + styleDim.Render("@"+t.Owner))
	}
	return sb.String()
}

// Tasks prints one line per task.
func (p *Printer) Tasks(tasks []board.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(p.out, styleDim.Render("(no matching tasks)"))
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(p.out, TaskLine(t))
	}
}

// Task prints every field of a task.
func (p *Printer) Task(t board.Task) {
	fmt.Fprintln(p.out, styleBold.Render(t.ID)+"  "+t.Title)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(p.out, "  %-10s %s\n", label+":", value)
		}
	}
	row("column", t.ColumnID)
	row("status", StatusLabel(t))
	row("priority", string(t.Priority))
	row("tags", strings.Join(t.Tags, ", "))
	row("owner", t.Owner)
	row("session", t.SessionID)
	if t.ClaimedAt != nil {
		row("claimed", formatTime(*t.ClaimedAt))
	}
	row("created", formatTime(t.CreatedAt))
	row("updated", formatTime(t.UpdatedAt))
	if t.Summary != "" {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "  "+strings.ReplaceAll(t.Summary, "\n", "\n  "))
	}
	if len(t.Checklist) > 0 {
		fmt.Fprintln(p.out)
		for _, item := range t.Checklist {
			box := "[ ]"
			if item.Done {
				box = "[x]"
			}
			fmt.Fprintf(p.out, "  %s %s\n", box, item.Text)
		}
	}
}

// Report prints what a reconciliation pass repaired.
func (p *Printer) Report(rep reconcile.Report, wrote bool) {
	if !rep.Changed() {
		p.Success("board is consistent")
		return
	}
	verb := "would repair"
	if wrote {
		verb = "repaired"
	}
	fmt.Fprintln(p.out, styleWarn.Render("board drift "+verb+":"))
	list := func(label string, ids []string) {
		if len(ids) > 0 {
			fmt.Fprintf(p.out, "  %-10s %s\n", label+":", strings.Join(ids, ", "))
		}
	}
	list("stale", rep.Stale)
	list("adopted", rep.Adopted)
	list("refreshed", rep.Refreshed)
	list("relocated", rep.Relocated)
	list("dropped", rep.Dropped)
	if rep.PositionsRenumbered {
		fmt.Fprintln(p.out, "  column positions renumbered")
	}
}

// Archived prints archive entries, newest first.
func (p *Printer) Archived(entries []archive.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(p.out, styleDim.Render("(archive is empty)"))
		return
	}
	for _, e := range entries {
		fmt.Fprintf(p.out, "%s %s\n", styleDim.Render(formatTime(e.ArchivedAt)), TaskLine(e.Task))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
