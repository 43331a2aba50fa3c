package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/wkagent/internal/agent"
)

var streamSystem string

var streamCmd = &cobra.Command{
	Use:   "stream <prompt>",
	Short: "Stream a direct answer",
	Long: `Stream a direct answer to the prompt as it is generated.

Streaming skips task analysis and decomposition, and the turn is not
recorded in memory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStream,
}

func init() {
	streamCmd.Flags().StringVar(&streamSystem, "system", "", "Override the system prompt")
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	stream, err := s.agent.Stream(ctx, strings.Join(args, " "), agent.ExecuteOptions{SystemPrompt: streamSystem})
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Next() {
		fmt.Fprint(os.Stdout, stream.Current())
	}
	fmt.Fprintln(os.Stdout)
	return stream.Err()
}
