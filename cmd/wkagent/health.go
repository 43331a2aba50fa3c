package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/wkagent/internal/config"
	"github.com/ShayCichocki/wkagent/internal/llm"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the completion service answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := llm.New(providerOptions(cfg))
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(contextOrBackground(cmd.Context()), healthTimeout)
		defer cancel()

		fmt.Printf("provider: %s  model: %s  key: %s\n",
			cfg.LLM.Provider, cfg.LLM.Model, config.MaskAPIKey(mustKey(cfg)))
		h := llm.HealthCheck(ctx, client)
		if !h.Healthy {
			printStatus("✗", "Unhealthy: "+h.Error, color.FgRed)
			return errors.New("health check failed")
		}
		printStatus("✓", fmt.Sprintf("Healthy (%s, %s)", h.Model, h.Latency.Round(time.Millisecond)), color.FgGreen)
		return nil
	},
}

func init() {
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 30*time.Second, "Time to wait for the service")
}

func mustKey(cfg *config.Config) string {
	key, _ := config.GetAPIKey(cfg)
	return key
}
