package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/wkagent/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .wkagent.yaml in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Initializing wkagent...")
		fmt.Println()

		if err := config.WriteStarter(config.ProjectFile); err != nil {
			printStatus("✗", err.Error(), color.FgRed)
			return err
		}
		printStatus("✓", "Created "+config.ProjectFile, color.FgGreen)

		cfg := config.Default()
		if _, err := config.GetAPIKey(cfg); err != nil {
			printStatus("⚠", "No API key in the environment (set DEEPSEEK_API_KEY or WKAGENT_LLM_API_KEY)", color.FgYellow)
		} else {
			printStatus("✓", fmt.Sprintf("API key found (%s)", config.GetAPIKeySource(cfg)), color.FgGreen)
		}

		fmt.Printf("\n%s wkagent initialization complete!\n\n", color.GreenString("✓"))
		fmt.Println("Next steps:")
		fmt.Println("  wkagent health")
		fmt.Println(`  wkagent run "summarise the trade-offs of event sourcing"`)
		return nil
	},
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	printStatusTo(os.Stdout, symbol, message, colorAttr)
}
