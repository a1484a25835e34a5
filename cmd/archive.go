package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/lanes/internal/archive"
	"github.com/papapumpkin/lanes/internal/board"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse and maintain archived tasks",
	Long: `Archived tasks leave the board but keep their records under
.lanes/archive/. An SQLite index (.lanes/archive.db) answers searches; it can
be rebuilt from the archive directory at any time.`,
}

func init() {
	taskCmd.AddCommand(&cobra.Command{
		Use:   "archive <id>",
		Short: "Take a task off the board and keep its record in the archive",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskArchive,
	})

	taskCmd.AddCommand(&cobra.Command{
		Use:   "archive-done",
		Short: "Archive every task in the terminal column",
		Args:  cobra.NoArgs,
		RunE:  runTaskArchiveDone,
	})

	taskCmd.AddCommand(&cobra.Command{
		Use:   "restore <id>",
		Short: "Put an archived task back on the board",
		Long: `Restores an archived task to the end of its former column, or of the
entry column when that column no longer exists.`,
		Args: cobra.ExactArgs(1),
		RunE: runTaskRestore,
	})

	listCmd := &cobra.Command{
		Use:   "list [text]",
		Short: "List archived tasks, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runArchiveList,
	}
	listCmd.Flags().String("tag", "", "only tasks carrying this tag")
	listCmd.Flags().Int("limit", 0, "maximum number of entries (0 for all)")
	archiveCmd.AddCommand(listCmd)

	archiveCmd.AddCommand(&cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the archive index from the archive directory",
		Args:  cobra.NoArgs,
		RunE:  runArchiveReindex,
	})

	rootCmd.AddCommand(archiveCmd)
}

func runTaskArchive(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.svc.ArchiveTask(cmd.Context(), args[0]); err != nil {
		return err
	}
	s.printer.Success("archived %s", args[0])
	return nil
}

func runTaskArchiveDone(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.svc.ArchiveAllDone(cmd.Context())
	if err != nil {
		return err
	}
	s.printer.Success("archived %d done task(s)", n)
	return nil
}

func runTaskRestore(cmd *cobra.Command, args []string) error {
	return taskAction(cmd, "restored", func(s *session) (board.Task, error) {
		return s.svc.RestoreTask(cmd.Context(), args[0])
	})
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	var q archive.Query
	if len(args) > 0 {
		q.Text = args[0]
	}
	q.Tag, _ = cmd.Flags().GetString("tag")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	if q.Limit < 0 {
		return board.Invalid("list archived", "", "--limit must be >= 0")
	}

	entries, err := s.svc.ListArchived(cmd.Context(), q)
	if err != nil {
		return err
	}
	s.printer.Archived(entries)
	return nil
}

func runArchiveReindex(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.svc.RebuildArchiveIndex(cmd.Context())
	if err != nil {
		return err
	}
	s.printer.Success("indexed %d archived task(s)", n)
	return nil
}
