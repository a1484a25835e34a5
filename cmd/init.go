package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lanes/internal/config"
	"github.com/papapumpkin/lanes/internal/template"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a board in the project directory",
	Long: `Creates .lanes/ with the columns of a board template and records the
template's entry and terminal columns in .lanes.yaml.

--template takes a built-in layout name (` + strings.Join(template.Names(), ", ") + `)
or the path of a TOML layout file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringP("template", "t", "", "board template name or TOML file (default "+template.Default+")")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	name, _ := cmd.Flags().GetString("template")
	if name == "" {
		name = s.cfg.Template
	}
	layout, err := template.Resolve(name)
	if err != nil {
		return err
	}

	res, err := s.svc.InitBoard(cmd.Context(), layout)
	if err != nil {
		return err
	}

	cfgPath := filepath.Join(s.cfg.Root, config.FileName)
	if err := config.SaveColumnDesignations(cfgPath, res.Entry, res.Terminal); err != nil {
		s.printer.Warn("board created but %s was not updated: %v", cfgPath, err)
	}

	s.printer.Success("initialized %s board in %s (%d columns)", layout.Name, s.store.Dir(), len(res.Board.Columns))
	fmt.Fprintf(cmd.OutOrStdout(), "entry column: %s\nterminal column: %s\n", res.Entry, res.Terminal)
	return nil
}
