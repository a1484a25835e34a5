package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lanes/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile the board whenever its files change",
	Long: `Watches .lanes/ for edits to the manifest and task records. Each change is
reported and followed by a reconciliation pass, so records added, removed or
edited by hand (or by git) are folded into the board right away.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if _, err := s.svc.Reconcile(ctx); err != nil {
		return err
	}

	w, err := watch.New(s.store.Dir(), s.cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.Start(); err != nil {
		return err
	}

	s.printer.Info(fmt.Sprintf("watching %s (ctrl-c to stop)", s.store.Dir()))
	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if c.TaskID != "" {
				fmt.Fprintf(out, "%s %s\n", c.Kind, c.TaskID)
			} else {
				fmt.Fprintln(out, c.Kind)
			}
			rep, err := s.svc.Reconcile(ctx)
			if err != nil {
				s.printer.Error(err.Error())
				continue
			}
			if rep.Changed() {
				s.printer.Report(rep, true)
			}
		}
	}
}
