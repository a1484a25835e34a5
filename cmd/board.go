package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/filter"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show, check and repair the board",
}

func init() {
	showCmd := &cobra.Command{
		Use:   "show [filter]",
		Short: "Print the board column by column",
		Long: `Prints every column with its tasks. The optional filter keeps tasks whose
title or summary contains each word and that carry each #tag.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBoardShow,
	}
	showCmd.Flags().Bool("json", false, "print the reconciled manifest as JSON")
	showCmd.Flags().String("status", "", "only tasks with this status")
	boardCmd.AddCommand(showCmd)

	boardCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Report drift between manifest and task records without writing",
		Args:  cobra.NoArgs,
		RunE:  runBoardCheck,
	})

	boardCmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Repair drift between manifest and task records",
		Args:  cobra.NoArgs,
		RunE:  runBoardReconcile,
	})

	writeCmd := &cobra.Command{
		Use:   "write <file|->",
		Short: "Replace the whole board from a manifest file",
		Long: `Replaces the stored board with the manifest read from a file, or stdin
with "-". The manifest must satisfy every structural invariant; task records
are written for its items and removed for tasks it no longer holds.`,
		Args: cobra.ExactArgs(1),
		RunE: runBoardWrite,
	}
	boardCmd.AddCommand(writeCmd)

	rootCmd.AddCommand(boardCmd)
}

// filterArgs builds a filter from an optional positional query and the
// --status and --column flags, when the command defines them.
func filterArgs(cmd *cobra.Command, args []string) (filter.State, error) {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	}
	st := filter.NewState(raw)
	if f := cmd.Flags().Lookup("status"); f != nil && f.Value.String() != "" {
		status, err := board.ParseStatus(f.Value.String())
		if err != nil {
			return filter.State{}, err
		}
		st.Status = status
	}
	if f := cmd.Flags().Lookup("column"); f != nil {
		st.ColumnID = f.Value.String()
	}
	return st, nil
}

func runBoardShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := filterArgs(cmd, args)
	if err != nil {
		return err
	}
	b, err := s.svc.ReadBoard(cmd.Context())
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	s.printer.Board(b, st)
	return nil
}

func runBoardCheck(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	rep, err := s.svc.CheckBoard(cmd.Context())
	if err != nil {
		return err
	}
	s.printer.Report(rep, false)
	return nil
}

func runBoardReconcile(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	rep, err := s.svc.Reconcile(cmd.Context())
	if err != nil {
		return err
	}
	s.printer.Report(rep, true)
	return nil
}

func runBoardWrite(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}
	var b board.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return board.Invalid("write board", "", "parsing manifest: %v", err)
	}
	if err := s.svc.WriteBoard(cmd.Context(), &b); err != nil {
		return err
	}
	s.printer.Success("board written (%d columns, %d tasks)", len(b.Columns), len(b.Items))
	return nil
}
