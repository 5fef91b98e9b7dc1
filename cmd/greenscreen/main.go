package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"greenscreen/internal/config"
	"greenscreen/internal/logging"
)

var (
	// Global flags
	configPath string
	debug      bool
	logDir     string

	// Loaded in PersistentPreRunE, visible to every subcommand.
	appConfig *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "greenscreen",
	Short: "greenscreen - workflow automation for 5250 terminal applications",
	Long: `greenscreen runs declarative workflows against IBM 5250 green-screen
applications over telnet, combining terminal navigation with calculation,
database, HTTP, approval and notification steps.

It also ships a mock 5250 host for local development and testing.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appConfig, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			appConfig.Logging.Debug = true
		}
		if logDir != "" {
			appConfig.Logging.Dir = logDir
		}
		return logging.Initialize(logging.Options{
			Debug: appConfig.Logging.Debug,
			Dir:   appConfig.Logging.Dir,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "greenscreen.yaml", "path to the application config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "write logs to a file under this directory instead of stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(screensCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
