package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wensia/callscribe/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "callscribe",
	Short: "Batch call transcription pipeline",
	Long: `Callscribe - multi-vendor batch transcription of recorded calls

Drives Tencent, Alibaba and Volcengine speech recognition services through
their asynchronous submit/poll APIs, normalizes the vendor result formats
into one speaker-attributed transcript shape, and processes large call
recording volumes concurrently and resumably.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(loadConfig)
}

// loadConfig loads the configuration when a command needs it
func loadConfig() {
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && cmd.Name() == "version" {
		return // Version command doesn't need config
	}

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}
