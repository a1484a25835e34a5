// Package cmd provides the lanes command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/lanes/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "lanes",
	Short: "File-backed kanban board for people and agents",
	Long: `Lanes keeps a kanban board in .lanes/: a board.json manifest plus one JSON
record per task. Every read reconciles the two, so hand edits, partial
writes and merges heal themselves.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRootDefault,
}

// Execute runs the root command and exits non-zero on failure. An interrupt
// cancels the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .lanes.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("root", "", "project directory holding .lanes/ (default .)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".lanes")
		viper.SetConfigType("yaml")
		if root, _ := rootCmd.PersistentFlags().GetString("root"); root != "" {
			viper.AddConfigPath(root)
		}
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("LANES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// runRootDefault opens the TUI when a board exists in the project and a
// terminal is attached. Otherwise it shows help.
func runRootDefault(cmd *cobra.Command, _ []string) error {
	root := viper.GetString("root")
	if root == "" {
		root = "."
	}
	if _, err := os.Stat(filepath.Join(root, store.DirName)); err != nil || !isStderrTTY() {
		return cmd.Help()
	}
	return runTUI(cmd, nil)
}
