package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagDebug      bool
	flagConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "wkagent",
	Short: "Task-decomposing LLM agent with layered memory",
	Long: `wkagent answers prompts through an OpenAI-compatible or Anthropic model.

Simple prompts are answered with one call. Complex prompts are analysed,
split into sub-tasks that run serially (each building on the previous
results) or concurrently, and the results are synthesized into one answer.

Conversation turns are kept in short-term memory, compressed into
summaries as the history grows, and distilled into long-term facts that
persist across sessions.

Configuration is read from ~/.config/wkagent/config.yaml, a project
.wkagent.yaml, a .env file and WKAGENT_* environment variables.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Read configuration from this file only")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
