package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/wkagent/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wkagent %s\n", version.Full())
	},
}
