package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/lifecycle"
)

func init() {
	taskCmd.AddCommand(&cobra.Command{
		Use:   "move <id> <column>",
		Short: "Move a task to the end of another column",
		Args:  cobra.ExactArgs(2),
		RunE:  runTaskMove,
	})

	taskCmd.AddCommand(&cobra.Command{
		Use:   "reorder <id> <column> <index>",
		Short: "Place a task at a zero-based position in a column",
		Long: `Places a task at index in the column, which may be its current column.
An index past the end appends.`,
		Args: cobra.ExactArgs(3),
		RunE: runTaskReorder,
	})

	claimCmd := &cobra.Command{
		Use:   "claim <id>",
		Short: "Claim a task and mark it in progress",
		Long: `Marks the task in progress and records its owner. A task still in the
entry column moves to the next column.`,
		Args: cobra.ExactArgs(1),
		RunE: runTaskClaim,
	}
	claimCmd.Flags().String("owner", "", "who is taking the task (required)")
	claimCmd.Flags().String("session", "", "session identifier of the claimant")
	_ = claimCmd.MarkFlagRequired("owner")
	taskCmd.AddCommand(claimCmd)

	taskCmd.AddCommand(&cobra.Command{
		Use:   "release <id>",
		Short: "Drop a task's claim",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskRelease,
	})

	taskCmd.AddCommand(&cobra.Command{
		Use:   "done <id>",
		Short: "Move a task to the terminal column and mark it done",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskDone,
	})
}

// taskAction opens a session, runs fn and reports the resulting task.
func taskAction(cmd *cobra.Command, verb string, fn func(s *session) (board.Task, error)) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := fn(s)
	if err != nil {
		return err
	}
	s.printer.Success("%s %s (%s, %s)", verb, t.ID, t.ColumnID, t.CurrentStatus())
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	return taskAction(cmd, "moved", func(s *session) (board.Task, error) {
		return s.svc.MoveTask(cmd.Context(), args[0], args[1])
	})
}

func runTaskReorder(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[2])
	if err != nil {
		return board.Invalid("reorder task", args[0], "index %q is not a number", args[2])
	}
	return taskAction(cmd, "placed", func(s *session) (board.Task, error) {
		return s.svc.ReorderTask(cmd.Context(), args[0], args[1], index)
	})
}

func runTaskClaim(cmd *cobra.Command, args []string) error {
	owner, _ := cmd.Flags().GetString("owner")
	sessionID, _ := cmd.Flags().GetString("session")
	return taskAction(cmd, "claimed", func(s *session) (board.Task, error) {
		return s.svc.ClaimTask(cmd.Context(), args[0], lifecycle.Claim{Owner: owner, SessionID: sessionID})
	})
}

func runTaskRelease(cmd *cobra.Command, args []string) error {
	return taskAction(cmd, "released", func(s *session) (board.Task, error) {
		return s.svc.ReleaseTask(cmd.Context(), args[0])
	})
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	return taskAction(cmd, "completed", func(s *session) (board.Task, error) {
		return s.svc.MarkDone(cmd.Context(), args[0])
	})
}
