package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lanes/internal/board"
)

var columnCmd = &cobra.Command{
	Use:   "column",
	Short: "Add, remove, reorder and rename columns",
}

func init() {
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Append a column to the board",
		Args:  cobra.ExactArgs(1),
		RunE:  runColumnAdd,
	}
	addCmd.Flags().String("id", "", "column id (default: derived from the name)")
	addCmd.Flags().Int("wip", 0, "advisory WIP limit (0 for none)")
	columnCmd.AddCommand(addCmd)

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a column, relocating its tasks",
		Args:  cobra.ExactArgs(1),
		RunE:  runColumnRemove,
	}
	removeCmd.Flags().String("to", "", "column receiving the removed column's tasks")
	columnCmd.AddCommand(removeCmd)

	columnCmd.AddCommand(&cobra.Command{
		Use:   "move <id> [before-id]",
		Short: "Place a column before another, or last",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runColumnMove,
	})

	columnCmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Change a column's display name",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runColumnRename,
	})

	columnCmd.AddCommand(&cobra.Command{
		Use:   "wip <id> <limit>",
		Short: "Set a column's advisory WIP limit (0 clears it)",
		Args:  cobra.ExactArgs(2),
		RunE:  runColumnWIP,
	})

	rootCmd.AddCommand(columnCmd)
}

func runColumnAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	col := board.Column{Name: args[0]}
	col.ID, _ = cmd.Flags().GetString("id")
	col.WIPLimit, _ = cmd.Flags().GetInt("wip")
	added, err := s.svc.AddColumn(cmd.Context(), col)
	if err != nil {
		return err
	}
	s.printer.Success("added column %s (%s)", added.DisplayName(), added.ID)
	return nil
}

func runColumnRemove(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	to, _ := cmd.Flags().GetString("to")
	moved, err := s.svc.RemoveColumn(cmd.Context(), args[0], to)
	if err != nil {
		return err
	}
	if len(moved) > 0 {
		s.printer.Success("removed column %s; moved %s to %s", args[0], strings.Join(moved, ", "), to)
		return nil
	}
	s.printer.Success("removed column %s", args[0])
	return nil
}

func runColumnMove(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	var before string
	if len(args) > 1 {
		before = args[1]
	}
	if err := s.svc.MoveColumn(cmd.Context(), args[0], before); err != nil {
		return err
	}
	s.printer.Success("moved column %s", args[0])
	return nil
}

func runColumnRename(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	name := strings.Join(args[1:], " ")
	if err := s.svc.RenameColumn(cmd.Context(), args[0], name); err != nil {
		return err
	}
	s.printer.Success("renamed column %s to %q", args[0], name)
	return nil
}

func runColumnWIP(cmd *cobra.Command, args []string) error {
	limit, err := strconv.Atoi(args[1])
	if err != nil {
		return board.Invalid("set wip limit", args[0], "limit %q is not a number", args[1])
	}
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.svc.SetWIPLimit(cmd.Context(), args[0], limit); err != nil {
		return err
	}
	s.printer.Success("set WIP limit of %s to %d", args[0], limit)
	return nil
}
