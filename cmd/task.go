package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/lifecycle"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, edit and list tasks",
}

func init() {
	createCmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task at the end of a column",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskCreate,
	}
	createCmd.Flags().String("column", "", "column id (default: the entry column)")
	createCmd.Flags().String("summary", "", "longer description")
	createCmd.Flags().StringSlice("tag", nil, "tag (repeatable, without #)")
	createCmd.Flags().String("priority", "", "low, medium, high or urgent")
	createCmd.Flags().String("status", "", "initial status (default ready)")
	createCmd.Flags().StringArray("item", nil, "checklist item (repeatable)")
	taskCmd.AddCommand(createCmd)

	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's fields",
		Long:  "Changes only the fields whose flags are given. Use --tag= to clear the tags.",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskEdit,
	}
	editCmd.Flags().String("title", "", "new title")
	editCmd.Flags().String("summary", "", "new description")
	editCmd.Flags().StringSlice("tag", nil, "replacement tags")
	editCmd.Flags().String("priority", "", "low, medium, high or urgent")
	editCmd.Flags().String("status", "", "new status")
	taskCmd.AddCommand(editCmd)

	taskCmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print every field of a task",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskShow,
	})

	listCmd := &cobra.Command{
		Use:   "list [filter]",
		Short: "List tasks in board order",
		Long: `Lists tasks column by column. The optional filter keeps tasks whose title
or summary contains each word and that carry each #tag.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTaskList,
	}
	listCmd.Flags().String("status", "", "only tasks with this status")
	listCmd.Flags().String("column", "", "only tasks in this column")
	taskCmd.AddCommand(listCmd)

	taskCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a task and its record for good",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskDelete,
	})

	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Suggest the next task from the entry column",
		Long: `Picks the highest-priority unclaimed task in the entry column, most
recently updated first among equals. With --claim the task is claimed for
--owner in the same step.`,
		Args: cobra.NoArgs,
		RunE: runTaskNext,
	}
	nextCmd.Flags().Bool("claim", false, "claim the suggested task")
	nextCmd.Flags().String("owner", "", "claimant for --claim")
	nextCmd.Flags().String("session", "", "session id for --claim")
	taskCmd.AddCommand(nextCmd)

	rootCmd.AddCommand(taskCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	in := lifecycle.NewTask{Title: args[0]}
	in.ColumnID, _ = cmd.Flags().GetString("column")
	in.Summary, _ = cmd.Flags().GetString("summary")
	in.Tags, _ = cmd.Flags().GetStringSlice("tag")
	if raw, _ := cmd.Flags().GetString("priority"); raw != "" {
		if in.Priority, err = board.ParsePriority(raw); err != nil {
			return err
		}
	}
	if raw, _ := cmd.Flags().GetString("status"); raw != "" {
		if in.Status, err = board.ParseStatus(raw); err != nil {
			return err
		}
	}
	items, _ := cmd.Flags().GetStringArray("item")
	for _, text := range items {
		in.Checklist = append(in.Checklist, board.ChecklistItem{Text: text})
	}

	t, err := s.svc.CreateTask(cmd.Context(), in)
	if err != nil {
		return err
	}
	s.printer.Success("created %s in %s", t.ID, t.ColumnID)
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	var p lifecycle.TaskPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		p.Title = &v
	}
	if flags.Changed("summary") {
		v, _ := flags.GetString("summary")
		p.Summary = &v
	}
	if flags.Changed("tag") {
		v, _ := flags.GetStringSlice("tag")
		p.Tags = &v
	}
	if flags.Changed("priority") {
		raw, _ := flags.GetString("priority")
		v, err := board.ParsePriority(raw)
		if err != nil {
			return err
		}
		p.Priority = &v
	}
	if flags.Changed("status") {
		raw, _ := flags.GetString("status")
		v, err := board.ParseStatus(raw)
		if err != nil {
			return err
		}
		p.Status = &v
	}

	t, err := s.svc.UpdateTask(cmd.Context(), args[0], p)
	if err != nil {
		return err
	}
	s.printer.Success("updated %s", t.ID)
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.svc.GetTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	s.printer.Task(t)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := filterArgs(cmd, args)
	if err != nil {
		return err
	}
	tasks, err := s.svc.ListTasks(cmd.Context(), st)
	if err != nil {
		return err
	}
	s.printer.Tasks(tasks)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.svc.DeleteTask(cmd.Context(), args[0]); err != nil {
		return err
	}
	s.printer.Success("deleted %s", args[0])
	return nil
}

func runTaskNext(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	id, ok, err := s.svc.PickNextTask(cmd.Context())
	if err != nil {
		return err
	}
	if !ok {
		s.printer.Info("no eligible task in the entry column")
		return nil
	}

	if claim, _ := cmd.Flags().GetBool("claim"); claim {
		owner, _ := cmd.Flags().GetString("owner")
		sessionID, _ := cmd.Flags().GetString("session")
		if strings.TrimSpace(owner) == "" {
			return board.Invalid("claim task", id, "--owner is required with --claim")
		}
		t, err := s.svc.ClaimTask(cmd.Context(), id, lifecycle.Claim{Owner: owner, SessionID: sessionID})
		if err != nil {
			return err
		}
		s.printer.Success("claimed %s for %s", t.ID, t.Owner)
		s.printer.Task(t)
		return nil
	}

	t, err := s.svc.GetTask(cmd.Context(), id)
	if err != nil {
		return err
	}
	s.printer.Task(t)
	return nil
}
